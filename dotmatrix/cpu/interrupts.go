package cpu

import "github.com/dmgx/dotmatrix/dotmatrix/addr"

// serviceInterrupt dispatches the highest priority pending interrupt:
// IME is cleared, the corresponding IF bit is acknowledged, PC is pushed
// and execution continues at the vector. Costs 5 machine cycles.
func (c *CPU) serviceInterrupt(source addr.Interrupt) int {
	c.ime = false
	c.memory.ClearInterrupt(source)
	c.pushStack(c.pc)
	c.pc = source.Vector()
	return 20
}
