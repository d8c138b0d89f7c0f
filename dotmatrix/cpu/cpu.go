package cpu

import (
	"github.com/dmgx/dotmatrix/dotmatrix/bit"
	"github.com/dmgx/dotmatrix/dotmatrix/memory"
)

// Flag is one of the 4 possible flags in the flag register (low part of AF).
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// CPU holds the SM83 register file and interrupt state.
type CPU struct {
	memory *memory.MMU

	a, b, c, d, e, h, l uint8
	f                   uint8
	sp, pc              uint16

	ime    bool
	halted bool

	currentOpcode uint16
}

// New returns a CPU initialized to the DMG post-boot state, so execution
// starts directly at 0x0100 without running the boot ROM.
func New(memory *memory.MMU) *CPU {
	return &CPU{
		memory: memory,
		a:      0x01,
		f:      0xB0,
		b:      0x00,
		c:      0x13,
		d:      0x00,
		e:      0xD8,
		h:      0x01,
		l:      0x4D,
		sp:     0xFFFE,
		pc:     0x0100,
	}
}

// Tick executes a single instruction (or services an interrupt) and returns
// the number of clock cycles consumed.
func (c *CPU) Tick() int {
	if c.halted {
		if c.memory.PendingInterrupts() != 0 {
			// a pending interrupt always wakes the CPU; it only vectors
			// below if IME is also set
			c.halted = false
		} else {
			return 4
		}
	}

	if c.ime {
		if source, ok := c.memory.NextInterrupt(); ok {
			return c.serviceInterrupt(source)
		}
	}

	opcode := uint16(c.readImmediate())
	if opcode == 0xCB {
		opcode = 0xCB00 | uint16(c.readImmediate())
	}
	c.currentOpcode = opcode

	return decode(opcode)(c)
}

// GetPC returns the current program counter.
func (c *CPU) GetPC() uint16 {
	return c.pc
}

// IsHalted reports whether the CPU is waiting for an interrupt.
func (c *CPU) IsHalted() bool {
	return c.halted
}

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

func (c *CPU) getBC() uint16 { return bit.Combine(c.b, c.c) }
func (c *CPU) getDE() uint16 { return bit.Combine(c.d, c.e) }
func (c *CPU) getHL() uint16 { return bit.Combine(c.h, c.l) }
func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f) }

func (c *CPU) setBC(value uint16) {
	c.b = bit.High(value)
	c.c = bit.Low(value)
}

func (c *CPU) setDE(value uint16) {
	c.d = bit.High(value)
	c.e = bit.Low(value)
}

func (c *CPU) setHL(value uint16) {
	c.h = bit.High(value)
	c.l = bit.Low(value)
}

// setAF restores the flag register from the low byte; the bottom 4 bits
// of F do not exist in hardware and are always forced to zero.
func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	c.f = bit.Low(value) & 0xF0
}

// readImmediate reads the byte at PC and advances PC.
func (c *CPU) readImmediate() uint8 {
	value := c.memory.Read(c.pc)
	c.pc++
	return value
}

// readImmediateWord reads a little-endian word at PC and advances PC by 2.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}
