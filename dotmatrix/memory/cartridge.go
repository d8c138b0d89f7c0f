package memory

import (
	"fmt"
)

const (
	titleAddress         = 0x134
	titleLength          = 16
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
	ramSizeAddress       = 0x149
	headerEndAddress     = 0x14F
)

// MBCType identifies the memory bank controller variant of a cartridge.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC3Type
	MBC5Type
)

// Cartridge holds the immutable ROM image plus the header fields the
// emulator consumes. The MBC state and external RAM live in the MBC
// implementation built from this cartridge.
type Cartridge struct {
	data  []byte
	title string

	cartType     uint8
	mbcType      MBCType
	romBankCount int
	ramSize      uint32
	ramBankCount uint8
	hasBattery   bool
	hasRTC       bool
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes.
// Equivalent to powering on without a cartridge inserted: all reads are open bus.
func NewCartridge() *Cartridge {
	data := make([]byte, 0x8000)
	for i := range data {
		data[i] = 0xFF
	}
	return &Cartridge{
		data:         data,
		title:        "(none)",
		mbcType:      NoMBCType,
		romBankCount: 2,
	}
}

// NewCartridgeWithData initializes a Cartridge from a raw ROM image,
// validating the header. Malformed headers (unknown MBC type, invalid
// RAM size code, undersized image) are fatal and surfaced to the caller.
func NewCartridgeWithData(data []byte) (*Cartridge, error) {
	if len(data) <= headerEndAddress {
		return nil, fmt.Errorf("ROM image too small to contain a header: %d bytes", len(data))
	}

	cartType := data[cartridgeTypeAddress]

	var mbcType MBCType
	switch {
	case cartType == 0x00:
		mbcType = NoMBCType
	case cartType >= 0x01 && cartType <= 0x03:
		mbcType = MBC1Type
	case cartType >= 0x0F && cartType <= 0x13:
		mbcType = MBC3Type
	case cartType >= 0x19 && cartType <= 0x1E:
		mbcType = MBC5Type
	default:
		return nil, fmt.Errorf("unsupported cartridge type: 0x%02X", cartType)
	}

	romSize := uint32(0x8000) << data[romSizeAddress]
	if uint32(len(data)) < romSize {
		return nil, fmt.Errorf("ROM image smaller than header declares: have %d, want %d", len(data), romSize)
	}

	var ramSize uint32
	switch data[ramSizeAddress] {
	case 0:
		ramSize = 0
	case 2:
		ramSize = 0x2000
	case 3:
		ramSize = 0x8000
	case 4:
		ramSize = 0x20000
	case 5:
		ramSize = 0x10000
	default:
		return nil, fmt.Errorf("invalid RAM size code: 0x%02X", data[ramSizeAddress])
	}

	cart := &Cartridge{
		data:         make([]byte, len(data)),
		title:        cleanTitle(data[titleAddress : titleAddress+titleLength]),
		cartType:     cartType,
		mbcType:      mbcType,
		romBankCount: int(romSize / 0x4000),
		ramSize:      ramSize,
		ramBankCount: uint8(ramSize / 0x2000),
		hasBattery:   cartHasBattery(cartType),
		hasRTC:       cartType == 0x0F || cartType == 0x10,
	}
	copy(cart.data, data)

	return cart, nil
}

func cartHasBattery(cartType uint8) bool {
	switch cartType {
	case 0x03, 0x06, 0x09, 0x0D, 0x0F, 0x10, 0x13, 0x1B, 0x1E:
		return true
	}
	return false
}

// Title returns the zero-trimmed, printable cartridge title.
func (c *Cartridge) Title() string {
	return c.title
}

// HasBattery reports whether the cartridge persists its external RAM.
func (c *Cartridge) HasBattery() bool {
	return c.hasBattery
}

// RAMSize returns the size of external RAM in bytes.
func (c *Cartridge) RAMSize() uint32 {
	return c.ramSize
}
