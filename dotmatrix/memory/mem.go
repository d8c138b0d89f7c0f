package memory

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dmgx/dotmatrix/dotmatrix/addr"
	"github.com/dmgx/dotmatrix/dotmatrix/audio"
	"github.com/dmgx/dotmatrix/dotmatrix/bit"
	"github.com/dmgx/dotmatrix/dotmatrix/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionIO
)

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// MMU allows access to all memory mapped I/O and data/registers
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	memory    []byte
	APU       *audio.APU
	regionMap [256]memRegion

	joypadButtons uint8 // Actual state of buttons A/B/Start/Select, mapped to low bits of P1
	joypadDpad    uint8 // Actual state of d-pad directions, mapped to low bits of P1

	serialSink *serial.LogSink
	timer      Timer
}

// New creates a new memory unit with no cartridge loaded.
// Equivalent to turning on a Gameboy without a cartridge in.
func New() *MMU {
	mmu := &MMU{
		memory:        make([]byte, 0x10000),
		cart:          NewCartridge(),
		APU:           audio.New(),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	mmu.mbc = NewMBC(mmu.cart)
	mmu.serialSink = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	initRegionMap(mmu)
	mmu.initIORegisters()
	return mmu
}

// NewWithCartridge creates a new memory unit with the provided cartridge loaded.
// Equivalent to turning on a Gameboy with a cartridge in.
func NewWithCartridge(cart *Cartridge) *MMU {
	mmu := New()
	mmu.cart = cart
	mmu.mbc = NewMBC(cart)
	return mmu
}

// initIORegisters seeds the post-boot register values so execution can
// start directly at 0x0100 without running the boot ROM.
func (m *MMU) initIORegisters() {
	m.memory[addr.P1] = 0xCF
	m.memory[addr.IF] = 0xE1
	m.memory[addr.LCDC] = 0x91
	m.memory[addr.STAT] = 0x85
	m.memory[addr.LY] = 0x90
	m.memory[addr.BGP] = 0xFC
	m.timer.SetSeed(0xABCC)
}

// Tick advances any i/o that needs it, if any.
func (m *MMU) Tick(cycles int) {
	m.timer.Tick(cycles)
	if m.serialSink != nil {
		m.serialSink.Tick(cycles)
	}
}

// SetTimerSeed initializes the internal timer divider counter.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// IsPassed reports whether the serial stream ends with one of the test-ROM
// pass conventions (Blargg "Passed" / Mooneye Fibonacci bytes).
func (m *MMU) IsPassed() bool {
	return m.serialSink.IsPassed()
}

// Cartridge returns the loaded cartridge.
func (m *MMU) Cartridge() *Cartridge {
	return m.cart
}

func initRegionMap(m *MMU) {
	// ROM: 0x0000-0x7FFF
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	// VRAM: 0x8000-0x9FFF
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	// External RAM: 0xA000-0xBFFF
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	// Work RAM: 0xC000-0xDFFF
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	// Echo RAM: 0xE000-0xFDFF
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	// OAM: 0xFE00-0xFE9F, prohibited: 0xFEA0-0xFEFF
	m.regionMap[0xFE] = regionOAM
	// IO + HRAM + IE: 0xFF00-0xFFFF
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] |= uint8(interrupt) & 0x1F
}

// ClearInterrupt resets the IF bit for the chosen interrupt. Called by the
// CPU when it vectors.
func (m *MMU) ClearInterrupt(interrupt addr.Interrupt) {
	m.memory[addr.IF] &^= uint8(interrupt)
}

// PendingInterrupts returns the set of requested-and-enabled sources.
func (m *MMU) PendingInterrupts() uint8 {
	return m.memory[addr.IF] & m.memory[addr.IE] & 0x1F
}

// NextInterrupt returns the highest priority pending interrupt, which is
// the lowest set bit of IF & IE.
func (m *MMU) NextInterrupt() (addr.Interrupt, bool) {
	pending := m.PendingInterrupts()
	if pending == 0 {
		return 0, false
	}
	return addr.Interrupt(pending & -pending), true
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		return m.mbc.Read(address)
	case regionVRAM, regionWRAM:
		return m.memory[address]
	case regionEcho:
		// echo region is not mapped here; open reads return 0
		return 0
	case regionOAM:
		if address <= addr.OAMEnd {
			return m.memory[address]
		}
		// prohibited area 0xFEA0-0xFEFF
		return 0
	case regionIO:
		if address == addr.SB || address == addr.SC {
			return m.serialSink.Read(address)
		}
		if address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC {
			return m.timer.Read(address)
		}
		if address >= addr.AudioStart && address <= addr.AudioEnd {
			return m.APU.ReadRegister(address)
		}
		// The upper 3 bits of IF always read as 1.
		if address == addr.IF {
			return m.memory[address] | 0xE0
		}
		if address == addr.IE {
			return m.memory[address] & 0x1F
		}
		// HRAM and remaining IO registers read their backing byte
		return m.memory[address]
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM, regionExtRAM:
		m.mbc.Write(address, value)
	case regionVRAM, regionWRAM:
		m.memory[address] = value
	case regionEcho:
		// writes to the echo region are silently dropped
	case regionOAM:
		if address <= addr.OAMEnd {
			m.memory[address] = value
		}
		// prohibited area 0xFEA0-0xFEFF: dropped
	case regionIO:
		switch {
		case address == addr.P1:
			m.writeJoypad(value)
		case address == addr.SB || address == addr.SC:
			m.serialSink.Write(address, value)
		case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
			m.timer.Write(address, value)
		case address >= addr.AudioStart && address <= addr.AudioEnd:
			m.APU.WriteRegister(address, value)
		case address == addr.IF:
			m.memory[address] = value & 0x1F
		case address == addr.IE:
			m.memory[address] = value & 0x1F
		case address == addr.LY:
			// LY is read-only for the CPU
		case address == addr.STAT:
			// mode and LYC-match bits are read-only
			m.memory[address] = m.memory[address]&0x07 | value&0x78
		case address == addr.DMA:
			m.dmaTransfer(value)
		default:
			// HRAM and remaining IO registers land in the backing byte
			m.memory[address] = value
		}
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

// WriteDirect stores into the IO backing page without the CPU-side write
// protections. Used by the PPU to publish LY, STAT mode bits and the
// LYC-match flag.
func (m *MMU) WriteDirect(address uint16, value byte) {
	m.memory[address] = value
}

// dmaTransfer synchronously copies 160 bytes from value<<8 into OAM.
func (m *MMU) dmaTransfer(value byte) {
	sourceAddr := uint16(value) << 8
	for i := uint16(0); i < 160; i++ {
		m.memory[addr.OAMStart+i] = m.Read(sourceAddr + i)
	}
	m.memory[addr.DMA] = value
}

// LoadRAM restores battery-backed cartridge RAM from a prior save file.
// Missing or short files are not an error.
func (m *MMU) LoadRAM(dir string) {
	ram := m.mbc.RAM()
	if !m.cart.hasBattery || len(ram) == 0 || dir == "" {
		return
	}

	path := filepath.Join(dir, m.cart.title)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read save file", "path", path, "error", err)
		}
		return
	}

	copy(ram, data)
	slog.Info("Loaded battery RAM", "path", path, "size", len(data))
}

// SaveRAM persists battery-backed cartridge RAM as a raw dump of exactly
// ram_size bytes. Failures are logged and non-fatal.
func (m *MMU) SaveRAM(dir string) {
	ram := m.mbc.RAM()
	if !m.cart.hasBattery || len(ram) == 0 || dir == "" {
		return
	}

	path := filepath.Join(dir, m.cart.title)
	if err := os.WriteFile(path, ram, 0644); err != nil {
		slog.Error("Failed to write save file", "path", path, "error", err)
		return
	}
	slog.Info("Saved battery RAM", "path", path, "size", len(ram))
}

// updateJoypadRegister sets the joypad register (P1) according to selection
// bits and button state.
//
// The register is a selector (bits 4-5) that controls which set of inputs
// the low bits (0-3) are mapped to:
//   - if bit 4 is clear, bits 0-3 expose the 4 d-pad directions
//   - if bit 5 is clear, bits 0-3 expose A, B, Select, Start
//   - if both are selected, hardware ANDs the two sets
//   - if neither is selected, the low nibble floats high
//
// Inputs are active-low (0 = pressed). Bits 6-7 always read as 1.
func (m *MMU) updateJoypadRegister() {
	p1 := m.memory[addr.P1]
	result := uint8(0b11000000)
	result |= p1 & 0b00110000

	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && !selectDpad:
		result |= m.joypadButtons & 0x0F
	case selectDpad && !selectButtons:
		result |= m.joypadDpad & 0x0F
	case selectButtons && selectDpad:
		result |= m.joypadButtons & m.joypadDpad & 0x0F
	default:
		result |= 0x0F
	}

	m.memory[addr.P1] = result
}

func (m *MMU) writeJoypad(value uint8) {
	// Only bits 4-5 are writable (selection bits)
	m.memory[addr.P1] = value & 0b00110000
	m.updateJoypadRegister()
}

func (m *MMU) HandleKeyPress(key JoypadKey) {
	oldButtons := m.joypadButtons
	oldDpad := m.joypadDpad

	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Reset(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Reset(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Reset(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Reset(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Reset(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Reset(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Reset(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Reset(3, m.joypadButtons)
	}

	buttonTransitions := oldButtons & ^m.joypadButtons
	dpadTransitions := oldDpad & ^m.joypadDpad

	// only a selected group can pull a P1 line low
	p1 := m.memory[addr.P1]
	if bit.IsSet(5, p1) {
		buttonTransitions = 0
	}
	if bit.IsSet(4, p1) {
		dpadTransitions = 0
	}

	if buttonTransitions|dpadTransitions != 0 {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}

	m.updateJoypadRegister()
}

func (m *MMU) HandleKeyRelease(key JoypadKey) {
	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Set(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Set(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Set(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Set(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Set(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Set(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Set(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Set(3, m.joypadButtons)
	}

	m.updateJoypadRegister()
}
