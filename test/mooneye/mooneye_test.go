package mooneye

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmgx/dotmatrix/dotmatrix"
)

const timeout = 30 * time.Second

// romTest steps the emulator until the ROM emits the Mooneye Fibonacci
// pass sequence over the serial port, or fails on timeout.
func romTest(t *testing.T, romPath string) {
	if _, err := os.Stat(romPath); os.IsNotExist(err) {
		t.Skipf("ROM file not found: %s", romPath)
		return
	}

	emu, err := dotmatrix.NewWithFile(romPath)
	if err != nil {
		t.Fatalf("Failed to create emulator: %v", err)
	}

	deadline := time.Now().Add(timeout)
	cnt := 0

	for !emu.IsPassed() {
		emu.RunOne()

		cnt++
		if cnt == 1000 {
			if time.Now().After(deadline) {
				t.Fatalf("Timed out waiting for %s to pass", romPath)
			}
			cnt = 0
		}
	}
}

func mbc1ROM(name string) string {
	return filepath.Join("..", "roms", "mooneye", "mbc1", name)
}

func TestMBC1BitsBank1(t *testing.T) {
	romTest(t, mbc1ROM("bits_bank1.gb"))
}

func TestMBC1BitsBank2(t *testing.T) {
	romTest(t, mbc1ROM("bits_bank2.gb"))
}

func TestMBC1BitsMode(t *testing.T) {
	romTest(t, mbc1ROM("bits_mode.gb"))
}

func TestMBC1BitsRamg(t *testing.T) {
	romTest(t, mbc1ROM("bits_ramg.gb"))
}

func TestMBC1ROM512KB(t *testing.T) {
	romTest(t, mbc1ROM("rom_512kb.gb"))
}

func TestMBC1ROM1MB(t *testing.T) {
	romTest(t, mbc1ROM("rom_1Mb.gb"))
}

func TestMBC1ROM2MB(t *testing.T) {
	romTest(t, mbc1ROM("rom_2Mb.gb"))
}

func TestMBC1ROM4MB(t *testing.T) {
	romTest(t, mbc1ROM("rom_4Mb.gb"))
}

func TestMBC1ROM8MB(t *testing.T) {
	romTest(t, mbc1ROM("rom_8Mb.gb"))
}
