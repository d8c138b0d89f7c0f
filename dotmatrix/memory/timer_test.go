package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgx/dotmatrix/dotmatrix/addr"
)

func TestTimer_disabled(t *testing.T) {
	var timer Timer

	timer.Write(addr.TAC, 0x00)
	timer.Tick(1000)

	assert.Equal(t, uint8(0), timer.Read(addr.TIMA))
}

// With TAC=0x05 (enabled, clock 1) TIMA increments on the falling edge of
// bit 3, once every 16 clock cycles: exactly every 4 machine cycles.
func TestTimer_clock1Rate(t *testing.T) {
	var timer Timer

	timer.Write(addr.TAC, 0x05)

	for i := 0; i < 15; i++ {
		timer.Tick(1)
	}
	assert.Equal(t, uint8(0), timer.Read(addr.TIMA))

	timer.Tick(1)
	assert.Equal(t, uint8(1), timer.Read(addr.TIMA))

	timer.Tick(16 * 9)
	assert.Equal(t, uint8(10), timer.Read(addr.TIMA))
}

func TestTimer_clockRates(t *testing.T) {
	testCases := []struct {
		tac    byte
		period int
	}{
		{tac: 0x04, period: 1024},
		{tac: 0x05, period: 16},
		{tac: 0x06, period: 64},
		{tac: 0x07, period: 256},
	}
	for _, tC := range testCases {
		var timer Timer
		timer.Write(addr.TAC, tC.tac)

		timer.Tick(tC.period * 4)
		assert.Equal(t, uint8(4), timer.Read(addr.TIMA), "TAC=0x%02X", tC.tac)
	}
}

func TestTimer_divIsCounterHighByte(t *testing.T) {
	var timer Timer

	timer.SetSeed(0xAB00)
	assert.Equal(t, uint8(0xAB), timer.Read(addr.DIV))

	timer.Tick(0x100)
	assert.Equal(t, uint8(0xAC), timer.Read(addr.DIV))
}

func TestTimer_divWriteResetsCounter(t *testing.T) {
	var timer Timer

	timer.SetSeed(0xABCC)
	timer.Write(addr.DIV, 0x77) // value is irrelevant

	assert.Equal(t, uint8(0), timer.Read(addr.DIV))
	assert.Equal(t, uint16(0), timer.systemCounter)
}

func TestTimer_overflowReloadsFromTMA(t *testing.T) {
	var timer Timer
	interrupts := 0
	timer.TimerInterruptHandler = func() { interrupts++ }

	timer.Write(addr.TMA, 0xAB)
	timer.Write(addr.TAC, 0x05)
	timer.Write(addr.TIMA, 0xFF)

	// the falling edge of bit 3 overflows TIMA
	timer.Tick(16)
	assert.Equal(t, uint8(0x00), timer.Read(addr.TIMA), "TIMA reads 0 during the overflow window")
	assert.Equal(t, 0, interrupts)

	// one machine cycle later TMA is loaded
	timer.Tick(4)
	assert.Equal(t, uint8(0xAB), timer.Read(addr.TIMA))
	assert.Equal(t, 0, interrupts)

	// and the interrupt fires one machine cycle after that
	timer.Tick(4)
	assert.Equal(t, 1, interrupts)
}

func TestTimer_registerReadback(t *testing.T) {
	var timer Timer

	timer.Write(addr.TIMA, 0x12)
	timer.Write(addr.TMA, 0x34)
	timer.Write(addr.TAC, 0x07)

	assert.Equal(t, uint8(0x12), timer.Read(addr.TIMA))
	assert.Equal(t, uint8(0x34), timer.Read(addr.TMA))
	assert.Equal(t, uint8(0x07), timer.Read(addr.TAC))
}
