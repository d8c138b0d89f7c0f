package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmgx/dotmatrix/dotmatrix/addr"
	"github.com/dmgx/dotmatrix/dotmatrix/memory"
)

// writeSprite stores one OAM entry. x and y are screen coordinates; OAM
// stores them with the hardware +8/+16 offsets.
func writeSprite(mmu *memory.MMU, index int, x, y int, tile, flags byte) {
	base := addr.OAMStart + uint16(index*4)
	mmu.Write(base, byte(y+16))
	mmu.Write(base+1, byte(x+8))
	mmu.Write(base+2, tile)
	mmu.Write(base+3, flags)
}

// solidTile fills a tile with a single color index on every pixel.
func solidTile(mmu *memory.MMU, tile int, colorIndex int) {
	var low, high byte
	if colorIndex&1 != 0 {
		low = 0xFF
	}
	if colorIndex&2 != 0 {
		high = 0xFF
	}
	for row := 0; row < 8; row++ {
		base := addr.TileData0 + uint16(tile*16+row*2)
		mmu.Write(base, low)
		mmu.Write(base+1, high)
	}
}

func newSpriteTestGPU() (*GPU, *memory.MMU) {
	gpu, mmu := newTestGPU()
	mmu.Write(addr.LCDC, 0x93) // LCD on, BG on, sprites on, 8x8
	mmu.Write(addr.BGP, 0xE4)
	mmu.Write(addr.OBP0, 0xE4)
	mmu.Write(addr.OBP1, 0xE4)
	return gpu, mmu
}

// Four sprites at screen X 8, 10, 12, 14: the lowest X draws on top where
// they overlap.
func TestGPU_spritePriorityByX(t *testing.T) {
	g, mmu := newSpriteTestGPU()

	solidTile(mmu, 1, 1)
	solidTile(mmu, 2, 2)
	solidTile(mmu, 3, 3)
	solidTile(mmu, 4, 1)

	writeSprite(mmu, 0, 8, 0, 1, 0)
	writeSprite(mmu, 1, 10, 0, 2, 0)
	writeSprite(mmu, 2, 12, 0, 3, 0)
	writeSprite(mmu, 3, 14, 0, 4, 0)

	g.line = 0
	g.drawScanline()

	shades := g.framebuffer.ToGrayscale()

	// sprite 0 (X=8, color 1) owns its full 8 pixels
	for x := 8; x < 16; x++ {
		assert.Equal(t, byte(1), shades[x], "x=%d", x)
	}
	// sprite 1 (X=10) only keeps the pixels past sprite 0
	for x := 16; x < 18; x++ {
		assert.Equal(t, byte(2), shades[x], "x=%d", x)
	}
	// then sprite 2, then sprite 3
	for x := 18; x < 20; x++ {
		assert.Equal(t, byte(3), shades[x], "x=%d", x)
	}
	for x := 20; x < 22; x++ {
		assert.Equal(t, byte(1), shades[x], "x=%d", x)
	}
	// nothing to the left or right
	assert.Equal(t, byte(0), shades[7])
	assert.Equal(t, byte(0), shades[22])
}

// Transparent (color 0) pixels of a closer sprite show the sprite below.
func TestGPU_spriteTransparencyShowsSpriteBelow(t *testing.T) {
	g, mmu := newSpriteTestGPU()

	// tile 1: left half color 3, right half transparent
	for row := 0; row < 8; row++ {
		base := addr.TileData0 + uint16(16+row*2)
		mmu.Write(base, 0xF0)
		mmu.Write(base+1, 0xF0)
	}
	solidTile(mmu, 2, 2)

	writeSprite(mmu, 0, 10, 0, 1, 0) // closer (lower X)
	writeSprite(mmu, 1, 12, 0, 2, 0)

	g.line = 0
	g.drawScanline()

	shades := g.framebuffer.ToGrayscale()

	// sprite 0's opaque half
	for x := 10; x < 14; x++ {
		assert.Equal(t, byte(3), shades[x], "x=%d", x)
	}
	// sprite 0 is transparent from x=14 on, sprite 1 shows through
	for x := 14; x < 20; x++ {
		assert.Equal(t, byte(2), shades[x], "x=%d", x)
	}
}

func TestGPU_spriteScanlineLimit(t *testing.T) {
	g, mmu := newSpriteTestGPU()
	solidTile(mmu, 1, 3)

	// 12 sprites on the same line; only the first 10 in OAM order render
	for i := 0; i < 12; i++ {
		writeSprite(mmu, i, i*13, 0, 1, 0)
	}

	g.line = 0
	g.drawScanline()

	shades := g.framebuffer.ToGrayscale()
	assert.Equal(t, byte(3), shades[9*13], "10th sprite rendered")
	assert.Equal(t, byte(0), shades[10*13], "11th sprite dropped")
	assert.Equal(t, byte(0), shades[11*13], "12th sprite dropped")
}

func TestGPU_spriteFlipX(t *testing.T) {
	g, mmu := newSpriteTestGPU()

	// tile 1 row 0: single opaque pixel on the left edge
	writeTileRow(mmu, addr.TileData0+16, 0, 0x80, 0x80)

	writeSprite(mmu, 0, 0, 0, 1, 0x00)
	writeSprite(mmu, 1, 20, 0, 1, 0x20) // X-flipped

	g.line = 0
	g.drawScanline()

	shades := g.framebuffer.ToGrayscale()
	assert.Equal(t, byte(3), shades[0], "unflipped: leftmost pixel")
	assert.Equal(t, byte(0), shades[7])
	assert.Equal(t, byte(0), shades[20], "flipped: leftmost pixel clear")
	assert.Equal(t, byte(3), shades[27], "flipped: rightmost pixel set")
}

func TestGPU_spriteFlipY(t *testing.T) {
	g, mmu := newSpriteTestGPU()

	// tile 1: only row 0 is opaque
	writeTileRow(mmu, addr.TileData0+16, 0, 0xFF, 0xFF)

	writeSprite(mmu, 0, 0, 0, 1, 0x00)
	writeSprite(mmu, 1, 20, 0, 1, 0x40) // Y-flipped

	// on line 7 the unflipped sprite shows nothing, the flipped one its row 0
	g.line = 7
	g.drawScanline()

	shades := g.framebuffer.ToGrayscale()
	line7 := 7 * FramebufferWidth
	assert.Equal(t, byte(0), shades[line7+0])
	assert.Equal(t, byte(3), shades[line7+20])
}

func TestGPU_spritePalettes(t *testing.T) {
	g, mmu := newSpriteTestGPU()
	mmu.Write(addr.OBP0, 0xE4) // color 1 -> shade 1
	mmu.Write(addr.OBP1, 0xD8) // color 1 -> shade 2

	solidTile(mmu, 1, 1)
	writeSprite(mmu, 0, 0, 0, 1, 0x00)  // OBP0
	writeSprite(mmu, 1, 20, 0, 1, 0x10) // OBP1

	g.line = 0
	g.drawScanline()

	shades := g.framebuffer.ToGrayscale()
	assert.Equal(t, byte(1), shades[0])
	assert.Equal(t, byte(2), shades[20])
}

// A behind-background sprite only shows where the background is color 0.
func TestGPU_spriteBackgroundPriority(t *testing.T) {
	g, mmu := newSpriteTestGPU()

	// background: tile 0 rows: left 4 pixels color 1, right 4 color 0
	writeTileRow(mmu, addr.TileData0, 0, 0xF0, 0x00)

	solidTile(mmu, 1, 3)
	writeSprite(mmu, 0, 0, 0, 1, 0x80) // behind background

	g.line = 0
	g.drawScanline()

	shades := g.framebuffer.ToGrayscale()
	for x := 0; x < 4; x++ {
		assert.Equal(t, byte(1), shades[x], "background wins at x=%d", x)
	}
	for x := 4; x < 8; x++ {
		assert.Equal(t, byte(3), shades[x], "sprite shows over bg color 0 at x=%d", x)
	}
}

func TestGPU_tallSprites(t *testing.T) {
	g, mmu := newSpriteTestGPU()
	mmu.Write(addr.LCDC, 0x97) // 8x16 sprites

	// tile pair 2/3: tile 2 color 1, tile 3 color 3
	solidTile(mmu, 2, 1)
	solidTile(mmu, 3, 3)

	// odd tile index: hardware masks bit 0
	writeSprite(mmu, 0, 0, 0, 3, 0)

	g.line = 0
	g.drawScanline()
	assert.Equal(t, byte(1), g.framebuffer.ToGrayscale()[0], "top half uses tile 2")

	g.line = 8
	g.drawScanline()
	assert.Equal(t, byte(3), g.framebuffer.ToGrayscale()[8*FramebufferWidth], "bottom half uses tile 3")
}

func TestGPU_spriteSameXUsesOAMOrder(t *testing.T) {
	g, mmu := newSpriteTestGPU()

	solidTile(mmu, 1, 1)
	solidTile(mmu, 2, 3)

	writeSprite(mmu, 0, 30, 0, 1, 0)
	writeSprite(mmu, 1, 30, 0, 2, 0)

	g.line = 0
	g.drawScanline()

	for x := 30; x < 38; x++ {
		assert.Equal(t, byte(1), g.framebuffer.ToGrayscale()[x], "lower OAM index wins at x=%d", x)
	}
}
