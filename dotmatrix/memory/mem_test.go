package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgx/dotmatrix/dotmatrix/addr"
)

func TestMMU_wram(t *testing.T) {
	mmu := New()

	mmu.Write(0xC000, 0x12)
	mmu.Write(0xDFFF, 0x34)

	assert.Equal(t, uint8(0x12), mmu.Read(0xC000))
	assert.Equal(t, uint8(0x34), mmu.Read(0xDFFF))
}

func TestMMU_echoRegionIsOpen(t *testing.T) {
	mmu := New()

	mmu.Write(0xC000, 0x12)
	assert.Equal(t, uint8(0), mmu.Read(0xE000), "echo reads return 0")

	mmu.Write(0xE001, 0x99)
	assert.Equal(t, uint8(0), mmu.Read(0xC001), "echo writes are dropped")
}

func TestMMU_prohibitedRegion(t *testing.T) {
	mmu := New()

	assert.Equal(t, uint8(0), mmu.Read(0xFEA0))
	assert.Equal(t, uint8(0), mmu.Read(0xFEFF))
	mmu.Write(0xFEA0, 0xFF) // dropped, must not panic
	assert.Equal(t, uint8(0), mmu.Read(0xFEA0))
}

func TestMMU_noPanicsAcrossAddressSpace(t *testing.T) {
	mmu := New()

	for a := 0; a <= 0xFFFF; a += 17 {
		mmu.Write(uint16(a), uint8(a))
		_ = mmu.Read(uint16(a))
	}
	_ = mmu.Read(0xFFFF)
	mmu.Write(0xFFFF, 0x1F)
}

func TestMMU_interruptRegisters(t *testing.T) {
	mmu := New()

	mmu.Write(addr.IF, 0xFF)
	assert.Equal(t, uint8(0x1F), mmu.Read(addr.IF)&0x1F, "IF is 5 bits")
	assert.Equal(t, uint8(0xE0), mmu.Read(addr.IF)&0xE0, "IF upper bits read as 1")

	mmu.Write(addr.IE, 0xFF)
	assert.Equal(t, uint8(0x1F), mmu.Read(addr.IE), "IE is 5 bits")
}

func TestMMU_pendingInterrupts(t *testing.T) {
	mmu := New()
	mmu.Write(addr.IF, 0x00)
	mmu.Write(addr.IE, 0x00)

	assert.Equal(t, uint8(0), mmu.PendingInterrupts())

	mmu.RequestInterrupt(addr.TimerInterrupt)
	assert.Equal(t, uint8(0), mmu.PendingInterrupts(), "not pending while disabled")

	mmu.Write(addr.IE, uint8(addr.TimerInterrupt))
	assert.Equal(t, uint8(addr.TimerInterrupt), mmu.PendingInterrupts())

	source, ok := mmu.NextInterrupt()
	assert.True(t, ok)
	assert.Equal(t, addr.TimerInterrupt, source)

	mmu.ClearInterrupt(addr.TimerInterrupt)
	assert.Equal(t, uint8(0), mmu.PendingInterrupts())
	_, ok = mmu.NextInterrupt()
	assert.False(t, ok)
}

func TestMMU_nextInterruptPriority(t *testing.T) {
	mmu := New()
	mmu.Write(addr.IF, 0x00)
	mmu.Write(addr.IE, 0x1F)

	mmu.RequestInterrupt(addr.JoypadInterrupt)
	mmu.RequestInterrupt(addr.LCDSTATInterrupt)

	source, ok := mmu.NextInterrupt()
	assert.True(t, ok)
	assert.Equal(t, addr.LCDSTATInterrupt, source, "lowest bit wins")
}

func TestMMU_lyIsReadOnly(t *testing.T) {
	mmu := New()

	mmu.WriteDirect(addr.LY, 42)
	mmu.Write(addr.LY, 99)

	assert.Equal(t, uint8(42), mmu.Read(addr.LY))
}

func TestMMU_statWritableBits(t *testing.T) {
	mmu := New()

	mmu.WriteDirect(addr.STAT, 0x03) // mode 3, match clear
	mmu.Write(addr.STAT, 0xFF)

	stat := mmu.Read(addr.STAT)
	assert.Equal(t, uint8(0x03), stat&0x07, "mode and match bits survive CPU writes")
	assert.Equal(t, uint8(0x78), stat&0x78, "interrupt-select bits are writable")
}

func TestMMU_dmaTransfer(t *testing.T) {
	mmu := New()

	for i := uint16(0); i < 160; i++ {
		mmu.Write(0xC000+i, uint8(i)+1)
	}

	mmu.Write(addr.DMA, 0xC0)

	for i := uint16(0); i < 160; i++ {
		assert.Equal(t, uint8(i)+1, mmu.Read(addr.OAMStart+i))
	}
	assert.Equal(t, uint8(0xC0), mmu.Read(addr.DMA))
}

func TestMMU_unmappedIOBackingBytes(t *testing.T) {
	mmu := New()

	mmu.Write(0xFF03, 0x42)
	assert.Equal(t, uint8(0x42), mmu.Read(0xFF03))

	mmu.Write(0xFF7F, 0x99)
	assert.Equal(t, uint8(0x99), mmu.Read(0xFF7F))
}

func TestMMU_hram(t *testing.T) {
	mmu := New()

	mmu.Write(0xFF80, 0x11)
	mmu.Write(0xFFFE, 0x22)

	assert.Equal(t, uint8(0x11), mmu.Read(0xFF80))
	assert.Equal(t, uint8(0x22), mmu.Read(0xFFFE))
}

func TestMMU_joypadSelectors(t *testing.T) {
	mmu := New()

	// nothing pressed, d-pad selected (bit 4 low)
	mmu.Write(addr.P1, 0x20)
	assert.Equal(t, uint8(0x0F), mmu.Read(addr.P1)&0x0F)

	mmu.HandleKeyPress(JoypadLeft)
	assert.Equal(t, uint8(0b1101), mmu.Read(addr.P1)&0x0F, "left is active-low on bit 1")

	// switch to buttons (bit 5 low): left is not visible there
	mmu.Write(addr.P1, 0x10)
	assert.Equal(t, uint8(0x0F), mmu.Read(addr.P1)&0x0F)

	mmu.HandleKeyPress(JoypadA)
	assert.Equal(t, uint8(0b1110), mmu.Read(addr.P1)&0x0F)

	mmu.HandleKeyRelease(JoypadA)
	mmu.HandleKeyRelease(JoypadLeft)
	assert.Equal(t, uint8(0x0F), mmu.Read(addr.P1)&0x0F)
}

func TestMMU_joypadInterruptOnPress(t *testing.T) {
	mmu := New()
	mmu.Write(addr.IF, 0x00)

	mmu.HandleKeyPress(JoypadStart)
	assert.NotZero(t, mmu.Read(addr.IF)&uint8(addr.JoypadInterrupt))

	mmu.Write(addr.IF, 0x00)
	mmu.HandleKeyPress(JoypadStart) // already held: no new edge
	assert.Zero(t, mmu.Read(addr.IF)&uint8(addr.JoypadInterrupt))
}

func TestMMU_serialPassDetection(t *testing.T) {
	mmu := New()

	for _, b := range []byte("Passed") {
		mmu.Write(addr.SB, b)
		mmu.Write(addr.SC, 0x81)
	}

	assert.True(t, mmu.IsPassed())
	// completed transfers raise the serial interrupt
	assert.NotZero(t, mmu.Read(addr.IF)&uint8(addr.SerialInterrupt))
}
