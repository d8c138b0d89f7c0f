package acid2

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmgx/dotmatrix/dotmatrix"
)

// The DMG-ACID2 conformance image: after 10 frames the RGBA expansion of
// the framebuffer must match the committed golden reference byte-for-byte.
func TestDMGAcid2(t *testing.T) {
	romPath := filepath.Join("..", "roms", "dmg-acid2.gb")
	goldenPath := filepath.Join("testdata", "dmg-acid2.bin")

	if _, err := os.Stat(romPath); os.IsNotExist(err) {
		t.Skipf("ROM file not found: %s", romPath)
		return
	}

	golden, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Skipf("Golden reference not found: %s", goldenPath)
		return
	}

	emu, err := dotmatrix.NewWithFile(romPath)
	if err != nil {
		t.Fatalf("Failed to create emulator: %v", err)
	}

	for i := 0; i < 10; i++ {
		emu.RunUntilFrame()
	}

	actual := emu.GetCurrentFrame().ToBinaryData()

	if !bytes.Equal(actual, golden) {
		actualPath := filepath.Join(t.TempDir(), "dmg-acid2_actual.bin")
		os.WriteFile(actualPath, actual, 0644)
		t.Errorf("Framebuffer differs from golden reference; actual saved to %s", actualPath)
	}
}
