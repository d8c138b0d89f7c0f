package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// exec writes a small program into WRAM, points PC at it and runs one
// instruction, returning its cycle cost.
func exec(t *testing.T, c *CPU, program ...byte) int {
	t.Helper()
	for i, b := range program {
		c.memory.Write(0xC000+uint16(i), b)
	}
	c.pc = 0xC000
	return c.Tick()
}

func TestCPU_instructionCycleCosts(t *testing.T) {
	testCases := []struct {
		desc    string
		program []byte
		cycles  int
	}{
		{desc: "NOP", program: []byte{0x00}, cycles: 4},
		{desc: "LD BC,nn", program: []byte{0x01, 0x34, 0x12}, cycles: 12},
		{desc: "LD B,n", program: []byte{0x06, 0x42}, cycles: 8},
		{desc: "LD B,C", program: []byte{0x41}, cycles: 4},
		{desc: "LD B,(HL)", program: []byte{0x46}, cycles: 8},
		{desc: "ADD A,B", program: []byte{0x80}, cycles: 4},
		{desc: "ADD A,(HL)", program: []byte{0x86}, cycles: 8},
		{desc: "INC (HL)", program: []byte{0x34}, cycles: 12},
		{desc: "LD (nn),SP", program: []byte{0x08, 0x00, 0xC1}, cycles: 20},
		{desc: "JP nn", program: []byte{0xC3, 0x00, 0xC1}, cycles: 16},
		{desc: "JP HL", program: []byte{0xE9}, cycles: 4},
		{desc: "CALL nn", program: []byte{0xCD, 0x00, 0xC1}, cycles: 24},
		{desc: "RET", program: []byte{0xC9}, cycles: 16},
		{desc: "RST 18H", program: []byte{0xDF}, cycles: 16},
		{desc: "PUSH BC", program: []byte{0xC5}, cycles: 16},
		{desc: "POP BC", program: []byte{0xC1}, cycles: 12},
		{desc: "ADD SP,n", program: []byte{0xE8, 0x01}, cycles: 16},
		{desc: "LD HL,SP+n", program: []byte{0xF8, 0x01}, cycles: 12},
		{desc: "LDH (n),A", program: []byte{0xE0, 0x80}, cycles: 12},
		{desc: "CB RLC B", program: []byte{0xCB, 0x00}, cycles: 8},
		{desc: "CB RLC (HL)", program: []byte{0xCB, 0x06}, cycles: 16},
		{desc: "CB BIT 7,(HL)", program: []byte{0xCB, 0x7E}, cycles: 12},
		{desc: "CB SET 0,(HL)", program: []byte{0xCB, 0xC6}, cycles: 16},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.sp = 0xFFF0
			c.setHL(0xC800)

			assert.Equal(t, tC.cycles, exec(t, c, tC.program...))
		})
	}
}

// Conditional control flow has distinct taken and not-taken costs.
func TestCPU_conditionalCycleCosts(t *testing.T) {
	testCases := []struct {
		desc     string
		program  []byte
		flag     Flag
		flagSet  bool
		taken    bool
		expected int
	}{
		{desc: "JR NZ taken", program: []byte{0x20, 0x05}, flag: zeroFlag, flagSet: false, expected: 12},
		{desc: "JR NZ not taken", program: []byte{0x20, 0x05}, flag: zeroFlag, flagSet: true, expected: 8},
		{desc: "JP Z taken", program: []byte{0xCA, 0x00, 0xC1}, flag: zeroFlag, flagSet: true, expected: 16},
		{desc: "JP Z not taken", program: []byte{0xCA, 0x00, 0xC1}, flag: zeroFlag, flagSet: false, expected: 12},
		{desc: "CALL NC taken", program: []byte{0xD4, 0x00, 0xC1}, flag: carryFlag, flagSet: false, expected: 24},
		{desc: "CALL NC not taken", program: []byte{0xD4, 0x00, 0xC1}, flag: carryFlag, flagSet: true, expected: 12},
		{desc: "RET C taken", program: []byte{0xD8}, flag: carryFlag, flagSet: true, expected: 20},
		{desc: "RET C not taken", program: []byte{0xD8}, flag: carryFlag, flagSet: false, expected: 8},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.sp = 0xFFF0
			c.pushStack(0xC100)
			c.setFlagToCondition(tC.flag, tC.flagSet)

			assert.Equal(t, tC.expected, exec(t, c, tC.program...))
		})
	}
}

// The operand of a not-taken relative jump is still consumed.
func TestCPU_notTakenJumpSkipsOperand(t *testing.T) {
	c, _ := newTestCPU()
	c.setFlag(zeroFlag)

	exec(t, c, 0x20, 0x05) // JR NZ, +5
	assert.Equal(t, uint16(0xC002), c.pc)

	c.resetFlag(zeroFlag)
	exec(t, c, 0x20, 0x05)
	assert.Equal(t, uint16(0xC007), c.pc)
}

func TestCPU_callPushesReturnAddress(t *testing.T) {
	c, _ := newTestCPU()
	c.sp = 0xFFF0

	exec(t, c, 0xCD, 0x00, 0xC8) // CALL 0xC800
	assert.Equal(t, uint16(0xC800), c.pc)
	assert.Equal(t, uint16(0xC003), c.popStack())
}

func TestCPU_rstVectors(t *testing.T) {
	c, _ := newTestCPU()
	c.sp = 0xFFF0

	exec(t, c, 0xFF) // RST 38H
	assert.Equal(t, uint16(0x38), c.pc)
	assert.Equal(t, uint16(0xC001), c.popStack())
}
