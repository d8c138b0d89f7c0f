package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgx/dotmatrix/dotmatrix/memory"
)

func newTestCPU() (*CPU, *memory.MMU) {
	mmu := memory.New()
	c := New(mmu)
	return c, mmu
}

func TestCPU_stack(t *testing.T) {
	c, mmu := newTestCPU()

	c.sp = 0xFFFE
	c.pushStack(0xABCD)

	assert.Equal(t, uint16(0xFFFC), c.sp)
	// low byte sits at the lower address
	assert.Equal(t, uint8(0xCD), mmu.Read(0xFFFC))
	assert.Equal(t, uint8(0xAB), mmu.Read(0xFFFD))

	popped := c.popStack()

	assert.Equal(t, uint16(0xABCD), popped)
	assert.Equal(t, uint16(0xFFFE), c.sp)
}

func TestCPU_inc(t *testing.T) {
	testCases := []struct {
		desc      string
		value     uint8
		expected  uint8
		zero      bool
		halfCarry bool
	}{
		{desc: "simple increment", value: 0x01, expected: 0x02},
		{desc: "low nibble overflow", value: 0x0F, expected: 0x10, halfCarry: true},
		{desc: "wrap to zero", value: 0xFF, expected: 0x00, zero: true, halfCarry: true},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.b = tC.value
			c.setFlag(carryFlag)

			c.inc(&c.b)

			assert.Equal(t, tC.expected, c.b)
			assert.Equal(t, tC.zero, c.isSetFlag(zeroFlag))
			assert.Equal(t, tC.halfCarry, c.isSetFlag(halfCarryFlag))
			assert.False(t, c.isSetFlag(subFlag))
			// INC does not affect carry
			assert.True(t, c.isSetFlag(carryFlag))
		})
	}
}

func TestCPU_dec(t *testing.T) {
	testCases := []struct {
		desc      string
		value     uint8
		expected  uint8
		zero      bool
		halfCarry bool
	}{
		{desc: "simple decrement", value: 0x02, expected: 0x01},
		{desc: "to zero", value: 0x01, expected: 0x00, zero: true},
		{desc: "borrow from high nibble", value: 0x10, expected: 0x0F, halfCarry: true},
		{desc: "wrap around", value: 0x00, expected: 0xFF, halfCarry: true},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.d = tC.value
			c.resetFlag(carryFlag)

			c.dec(&c.d)

			assert.Equal(t, tC.expected, c.d)
			assert.Equal(t, tC.zero, c.isSetFlag(zeroFlag))
			assert.Equal(t, tC.halfCarry, c.isSetFlag(halfCarryFlag))
			assert.True(t, c.isSetFlag(subFlag))
			assert.False(t, c.isSetFlag(carryFlag))
		})
	}
}

func TestCPU_addToA(t *testing.T) {
	testCases := []struct {
		desc      string
		a, value  uint8
		expected  uint8
		zero      bool
		halfCarry bool
		carry     bool
	}{
		{desc: "no carries", a: 0x11, value: 0x22, expected: 0x33},
		{desc: "half carry", a: 0x0F, value: 0x01, expected: 0x10, halfCarry: true},
		{desc: "full carry", a: 0xF0, value: 0x20, expected: 0x10, carry: true},
		{desc: "both carries to zero", a: 0xFF, value: 0x01, expected: 0x00, zero: true, halfCarry: true, carry: true},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tC.a

			c.addToA(tC.value)

			assert.Equal(t, tC.expected, c.a)
			assert.Equal(t, tC.zero, c.isSetFlag(zeroFlag))
			assert.Equal(t, tC.halfCarry, c.isSetFlag(halfCarryFlag))
			assert.Equal(t, tC.carry, c.isSetFlag(carryFlag))
			assert.False(t, c.isSetFlag(subFlag))
		})
	}
}

func TestCPU_sub(t *testing.T) {
	testCases := []struct {
		desc      string
		a, value  uint8
		expected  uint8
		zero      bool
		halfCarry bool
		carry     bool
	}{
		{desc: "no borrows", a: 0x33, value: 0x22, expected: 0x11},
		{desc: "to zero", a: 0x42, value: 0x42, expected: 0x00, zero: true},
		{desc: "half borrow", a: 0x10, value: 0x01, expected: 0x0F, halfCarry: true},
		{desc: "full borrow", a: 0x00, value: 0x01, expected: 0xFF, halfCarry: true, carry: true},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			c, _ := newTestCPU()
			c.a = tC.a

			c.sub(tC.value)

			assert.Equal(t, tC.expected, c.a)
			assert.Equal(t, tC.zero, c.isSetFlag(zeroFlag))
			assert.Equal(t, tC.halfCarry, c.isSetFlag(halfCarryFlag))
			assert.Equal(t, tC.carry, c.isSetFlag(carryFlag))
			assert.True(t, c.isSetFlag(subFlag))
		})
	}
}

func TestCPU_adcIncludesCarry(t *testing.T) {
	c, _ := newTestCPU()
	c.a = 0x10
	c.setFlag(carryFlag)

	c.adc(0x0F)

	assert.Equal(t, uint8(0x20), c.a)
	assert.True(t, c.isSetFlag(halfCarryFlag))
	assert.False(t, c.isSetFlag(carryFlag))
}

func TestCPU_sbcIncludesCarry(t *testing.T) {
	c, _ := newTestCPU()
	c.a = 0x10
	c.setFlag(carryFlag)

	c.sbc(0x0F)

	assert.Equal(t, uint8(0x00), c.a)
	assert.True(t, c.isSetFlag(zeroFlag))
	assert.True(t, c.isSetFlag(subFlag))
	assert.False(t, c.isSetFlag(carryFlag))
}

func TestCPU_cpLeavesAUntouched(t *testing.T) {
	c, _ := newTestCPU()
	c.a = 0x42

	c.cp(0x42)

	assert.Equal(t, uint8(0x42), c.a)
	assert.True(t, c.isSetFlag(zeroFlag))
	assert.True(t, c.isSetFlag(subFlag))
}

func TestCPU_logicFlags(t *testing.T) {
	c, _ := newTestCPU()
	c.a = 0xF0
	c.setFlag(carryFlag)

	c.and(0x0F)

	assert.Equal(t, uint8(0x00), c.a)
	assert.True(t, c.isSetFlag(zeroFlag))
	assert.True(t, c.isSetFlag(halfCarryFlag))
	assert.False(t, c.isSetFlag(carryFlag))

	c.a = 0x0F
	c.or(0xF0)
	assert.Equal(t, uint8(0xFF), c.a)
	assert.False(t, c.isSetFlag(zeroFlag))
	assert.False(t, c.isSetFlag(halfCarryFlag))

	c.xor(0xFF)
	assert.Equal(t, uint8(0x00), c.a)
	assert.True(t, c.isSetFlag(zeroFlag))
}

func TestCPU_rotates(t *testing.T) {
	c, _ := newTestCPU()

	// RLCA-style rotate: carry from bit 7, Z always cleared afterwards
	c.a = 0x80
	c.rlc(&c.a)
	c.resetFlag(zeroFlag)
	assert.Equal(t, uint8(0x01), c.a)
	assert.True(t, c.isSetFlag(carryFlag))
	assert.False(t, c.isSetFlag(zeroFlag))

	// CB-prefix rotate of zero sets Z
	c.b = 0x00
	c.rlc(&c.b)
	assert.True(t, c.isSetFlag(zeroFlag))
	assert.False(t, c.isSetFlag(carryFlag))

	// RRC takes the carry from bit 0
	c.c = 0x01
	c.rrc(&c.c)
	assert.Equal(t, uint8(0x80), c.c)
	assert.True(t, c.isSetFlag(carryFlag))

	// RR shifts the old carry into bit 7
	c.d = 0x00
	c.setFlag(carryFlag)
	c.rr(&c.d)
	assert.Equal(t, uint8(0x80), c.d)
	assert.False(t, c.isSetFlag(carryFlag))
}

func TestCPU_shifts(t *testing.T) {
	c, _ := newTestCPU()

	c.b = 0x81
	c.sla(&c.b)
	assert.Equal(t, uint8(0x02), c.b)
	assert.True(t, c.isSetFlag(carryFlag))

	c.c = 0x81
	c.sra(&c.c)
	assert.Equal(t, uint8(0xC0), c.c)
	assert.True(t, c.isSetFlag(carryFlag))

	c.d = 0x81
	c.srl(&c.d)
	assert.Equal(t, uint8(0x40), c.d)
	assert.True(t, c.isSetFlag(carryFlag))

	c.e = 0xAB
	c.swap(&c.e)
	assert.Equal(t, uint8(0xBA), c.e)
	assert.False(t, c.isSetFlag(carryFlag))
}

func TestCPU_bitTest(t *testing.T) {
	c, _ := newTestCPU()
	c.setFlag(carryFlag)

	c.bitTest(7, 0x80)
	assert.False(t, c.isSetFlag(zeroFlag))
	assert.True(t, c.isSetFlag(halfCarryFlag))
	assert.False(t, c.isSetFlag(subFlag))
	// BIT leaves carry untouched
	assert.True(t, c.isSetFlag(carryFlag))

	c.bitTest(6, 0x80)
	assert.True(t, c.isSetFlag(zeroFlag))
}

// DAA is a fixed point on valid BCD: after ADD of two BCD operands the
// result in A is the decimal sum modulo 100, with carry on overflow.
func TestCPU_daaAfterAddition(t *testing.T) {
	toBCD := func(n int) uint8 {
		return uint8(n/10<<4 | n%10)
	}

	for x := 0; x < 100; x += 7 {
		for y := 0; y < 100; y += 3 {
			c, _ := newTestCPU()
			c.f = 0
			c.a = toBCD(x)

			c.addToA(toBCD(y))
			c.daa()

			sum := x + y
			assert.Equal(t, toBCD(sum%100), c.a, "BCD %d + %d", x, y)
			assert.Equal(t, sum > 99, c.isSetFlag(carryFlag), "BCD carry %d + %d", x, y)
			assert.Equal(t, sum%100 == 0, c.isSetFlag(zeroFlag), "BCD zero %d + %d", x, y)
		}
	}
}

func TestCPU_daaAfterSubtraction(t *testing.T) {
	toBCD := func(n int) uint8 {
		return uint8(n/10<<4 | n%10)
	}

	for x := 0; x < 100; x += 7 {
		for y := 0; y <= x; y += 3 {
			c, _ := newTestCPU()
			c.f = 0
			c.a = toBCD(x)

			c.sub(toBCD(y))
			c.daa()

			assert.Equal(t, toBCD(x-y), c.a, "BCD %d - %d", x, y)
		}
	}
}

// POP AF always clears the low nibble of F: pushing the popped value back
// yields the original ANDed with 0xFFF0.
func TestCPU_popAFMask(t *testing.T) {
	c, _ := newTestCPU()
	c.sp = 0xFFFE

	c.pushStack(0x12FF)
	opcode0xF1(c) // POP AF

	assert.Equal(t, uint16(0x12F0), c.getAF())

	opcode0xF5(c) // PUSH AF
	assert.Equal(t, uint16(0x12F0), c.popStack())
}

func TestCPU_hlPostIncrementDecrement(t *testing.T) {
	c, mmu := newTestCPU()
	c.setHL(0xC123)
	c.a = 0x5A

	opcode0x22(c) // LD (HL+), A
	assert.Equal(t, uint16(0xC124), c.getHL())
	assert.Equal(t, uint8(0x5A), mmu.Read(0xC123))

	mmu.Write(0xC124, 0x77)
	opcode0x3A(c) // LD A, (HL-)
	assert.Equal(t, uint16(0xC123), c.getHL())
	assert.Equal(t, uint8(0x77), c.a)
	// the byte written via (HL+) is still there
	assert.Equal(t, uint8(0x5A), mmu.Read(c.getHL()))
}

func TestCPU_hlIncrementWraps(t *testing.T) {
	c, _ := newTestCPU()
	c.setHL(0xFFFF)

	opcode0x23(c) // INC HL
	assert.Equal(t, uint16(0x0000), c.getHL())

	opcode0x2B(c) // DEC HL
	assert.Equal(t, uint16(0xFFFF), c.getHL())
}

func TestCPU_addSignedToSP(t *testing.T) {
	c, _ := newTestCPU()

	c.sp = 0xFFF8
	result := c.addSignedToSP(0x08)
	assert.Equal(t, uint16(0x0000), result)
	assert.True(t, c.isSetFlag(halfCarryFlag))
	assert.True(t, c.isSetFlag(carryFlag))
	assert.False(t, c.isSetFlag(zeroFlag))
	assert.False(t, c.isSetFlag(subFlag))

	c.sp = 0x0005
	result = c.addSignedToSP(0xFE) // -2
	assert.Equal(t, uint16(0x0003), result)
}

func TestCPU_addToHLPreservesZero(t *testing.T) {
	c, _ := newTestCPU()
	c.setFlag(zeroFlag)
	c.setHL(0x0FFF)

	c.addToHL(0x0001)

	assert.Equal(t, uint16(0x1000), c.getHL())
	assert.True(t, c.isSetFlag(halfCarryFlag))
	assert.False(t, c.isSetFlag(carryFlag))
	assert.True(t, c.isSetFlag(zeroFlag))

	c.setHL(0xFFFF)
	c.addToHL(0x0001)
	assert.True(t, c.isSetFlag(carryFlag))
}

func TestCPU_jumpRelative(t *testing.T) {
	c, _ := newTestCPU()

	c.pc = 0xC100
	c.jumpRelative(5)
	assert.Equal(t, uint16(0xC105), c.pc)

	c.jumpRelative(-10)
	assert.Equal(t, uint16(0xC0FB), c.pc)
}
