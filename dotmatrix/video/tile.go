package video

import "github.com/dmgx/dotmatrix/dotmatrix/bit"

// TileRow represents one row of a tile pattern (8 pixels).
//
// Tiles are 8x8 pixels at 2 bits per pixel, stored as two bit planes:
// the low byte provides bit 0 of each pixel's color index, the high byte
// bit 1. Bit 7 is the leftmost pixel. A full tile is 16 bytes.
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel extracts a pixel color index (0-3) from the tile row.
// pixelX should be 0-7, where 0 is the leftmost pixel.
func (t TileRow) GetPixel(pixelX int) int {
	bitIndex := uint8(7 - pixelX)

	pixel := 0
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}

	return pixel
}

// GetPixelFlipped extracts a pixel color index with horizontal flip,
// for sprites carrying the flip-X attribute.
func (t TileRow) GetPixelFlipped(pixelX int) int {
	bitIndex := uint8(pixelX)

	pixel := 0
	if bit.IsSet(bitIndex, t.Low) {
		pixel |= 1
	}
	if bit.IsSet(bitIndex, t.High) {
		pixel |= 2
	}

	return pixel
}
