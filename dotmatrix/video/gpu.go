package video

import (
	"github.com/dmgx/dotmatrix/dotmatrix/addr"
	"github.com/dmgx/dotmatrix/dotmatrix/bit"
	"github.com/dmgx/dotmatrix/dotmatrix/memory"
)

// GpuMode represents the PPU's current rendering stage.
// These values match the STAT register bits 1-0.
type GpuMode int

const (
	// hblankMode (Mode 0): horizontal blank period
	hblankMode GpuMode = 0
	// vblankMode (Mode 1): vertical blank period
	vblankMode GpuMode = 1
	// oamReadMode (Mode 2): PPU is scanning OAM
	oamReadMode GpuMode = 2
	// vramReadMode (Mode 3): PPU is reading VRAM and drawing
	vramReadMode GpuMode = 3
)

const (
	hblankCycles       = 204
	oamScanlineCycles  = 80
	vramScanlineCycles = 172
	scanlineCycles     = oamScanlineCycles + vramScanlineCycles + hblankCycles
	vblankCycles       = 10 * scanlineCycles
	frameCycles        = 154 * scanlineCycles
)

// GPU steps the four-state mode machine forward on CPU-provided cycles and
// renders one scanline at a time into the framebuffer.
type GPU struct {
	memory         *memory.MMU
	framebuffer    *FrameBuffer
	bgPixelBuffer  []byte // background/window color indices for sprite priority
	spritePriority SpritePriorityBuffer

	mode            GpuMode // current PPU mode (matches STAT bits 1-0)
	line            int     // current scanline (LY register, 0-153)
	cycles          int     // cycle counter for current mode
	modeCounterAux  int     // auxiliary counter for VBlank line timing
	vBlankLine      int     // which VBlank line we're on (0-9)
	lineRendered    bool    // whether the current scanline has been rendered
	windowLine      int     // internal window line counter (0-143)
	windowTriggered bool    // window became active at some point this frame
}

func NewGpu(memory *memory.MMU) *GPU {
	gpu := &GPU{
		framebuffer:   NewFrameBuffer(),
		memory:        memory,
		bgPixelBuffer: make([]byte, FramebufferSize),
		mode:          vblankMode,
		line:          144,
	}

	return gpu
}

func (g *GPU) GetFrameBuffer() *FrameBuffer {
	return g.framebuffer
}

// Tick advances the PPU by the given number of clock cycles, raising the
// VBlank and STAT interrupt sources as mode boundaries fire.
func (g *GPU) Tick(cycles int) {
	g.cycles += cycles

	switch g.mode {
	case hblankMode:
		if g.cycles < hblankCycles {
			break
		}
		g.cycles -= hblankCycles
		g.setMode(oamReadMode)
		g.setLY(g.line + 1)

		if g.line == 144 {
			g.setMode(vblankMode)
			g.vBlankLine = 0
			g.modeCounterAux = g.cycles
			g.windowLine = 0
			g.windowTriggered = false

			// the VBlank source fires once per frame on entering mode 1
			g.memory.RequestInterrupt(addr.VBlankInterrupt)

			// it also appears on the STAT path if the mode-1 bit is set
			if g.memory.ReadBit(statVblankIrq, addr.STAT) {
				g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
			}
		} else if g.memory.ReadBit(statOamIrq, addr.STAT) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	case vblankMode:
		g.modeCounterAux += cycles

		if g.modeCounterAux >= scanlineCycles {
			g.modeCounterAux -= scanlineCycles
			g.vBlankLine++

			if g.vBlankLine <= 9 {
				g.setLY(g.line + 1)
			}
		}

		// LY reads 0 for most of line 153
		if g.cycles >= 4104 && g.modeCounterAux >= 4 && g.line == 153 {
			g.setLY(0)
		}

		if g.cycles >= vblankCycles {
			g.cycles -= vblankCycles
			g.setMode(oamReadMode)
			if g.memory.ReadBit(statOamIrq, addr.STAT) {
				g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
			}
		}
	case oamReadMode:
		if g.cycles >= oamScanlineCycles {
			g.cycles -= oamScanlineCycles
			g.setMode(vramReadMode)
			g.lineRendered = false
		}
	case vramReadMode:
		// render the entire scanline once when entering VRAM mode
		if !g.lineRendered {
			g.drawScanline()
			g.lineRendered = true
		}

		if g.cycles >= vramScanlineCycles {
			g.cycles -= vramScanlineCycles
			g.setMode(hblankMode)

			if g.memory.ReadBit(statHblankIrq, addr.STAT) {
				g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
			}
		}
	}

	if g.cycles >= frameCycles {
		g.cycles -= frameCycles
	}
}

func (g *GPU) drawScanline() {
	if g.line >= FramebufferHeight {
		return
	}

	if g.readLCDCVariable(lcdDisplayEnable) == 0 {
		// LCD disabled: the line shows color 0
		lineWidth := g.line * FramebufferWidth
		for i := 0; i < FramebufferWidth; i++ {
			g.framebuffer.buffer[lineWidth+i] = uint32(WhiteColor)
			g.bgPixelBuffer[lineWidth+i] = 0
		}
		return
	}

	// the window latch arms once enable and LY >= WY have coincided,
	// and stays armed for the rest of the frame
	if g.readLCDCVariable(windowDisplayEnable) == 1 && g.line >= int(g.memory.Read(addr.WY)) {
		g.windowTriggered = true
	}

	g.drawBackground()
	g.drawWindow()
	g.drawSprites()
}

// tileRowAddr resolves a tile index from a tile map into the VRAM address
// of the requested row, honoring the signed/unsigned addressing mode of
// LCDC bit 4.
func (g *GPU) tileRowAddr(tileValue byte, rowOffset int) uint16 {
	if g.readLCDCVariable(bgWindowTileDataSelect) == 0 {
		// signed addressing: base 0x9000, tile numbers -128 to 127
		return uint16(int(addr.TileData2) + int(int8(tileValue))*16 + rowOffset)
	}
	// unsigned addressing: base 0x8000, tile numbers 0 to 255
	return addr.TileData0 + uint16(tileValue)*16 + uint16(rowOffset)
}

func (g *GPU) drawBackground() {
	lineWidth := g.line * FramebufferWidth

	if g.readLCDCVariable(bgDisplay) == 0 {
		// background disabled: the whole plane is color index 0
		palette := g.memory.Read(addr.BGP)
		displayColor := uint32(ByteToColor(palette & 0x03))

		for i := 0; i < FramebufferWidth; i++ {
			g.framebuffer.buffer[lineWidth+i] = displayColor
			g.bgPixelBuffer[lineWidth+i] = 0
		}
		return
	}

	tileMapAddr := addr.TileMap0
	if g.readLCDCVariable(bgTileMapDisplaySelect) == 1 {
		tileMapAddr = addr.TileMap1
	}

	scrollX := int(g.memory.Read(addr.SCX))
	scrollY := int(g.memory.Read(addr.SCY))
	lineScrolled := (g.line + scrollY) & 0xFF // Y coordinate wraps at 256
	mapRowBase := (lineScrolled / 8) * 32
	rowOffset := (lineScrolled % 8) * 2

	palette := g.memory.Read(addr.BGP)

	for screenPixelX := 0; screenPixelX < FramebufferWidth; screenPixelX++ {
		mapPixelX := (screenPixelX + scrollX) & 0xFF
		mapTileAddr := tileMapAddr + uint16(mapRowBase+mapPixelX/8)
		mapTileValue := g.memory.Read(mapTileAddr)

		tileAddr := g.tileRowAddr(mapTileValue, rowOffset)
		row := TileRow{Low: g.memory.Read(tileAddr), High: g.memory.Read(tileAddr + 1)}

		pixel := row.GetPixel(mapPixelX % 8)
		color := (palette >> (pixel * 2)) & 0x03

		position := lineWidth + screenPixelX
		g.framebuffer.buffer[position] = uint32(ByteToColor(color))
		g.bgPixelBuffer[position] = byte(pixel)
	}
}

func (g *GPU) drawWindow() {
	if g.windowLine > 143 || !g.windowTriggered {
		return
	}

	if g.readLCDCVariable(windowDisplayEnable) == 0 {
		return
	}

	wx := int(g.memory.Read(addr.WX)) - 7
	if wx >= FramebufferWidth {
		return
	}

	tileMapAddr := addr.TileMap0
	if g.readLCDCVariable(windowTileMapSelect) == 1 {
		tileMapAddr = addr.TileMap1
	}

	mapRowBase := (g.windowLine / 8) * 32
	rowOffset := (g.windowLine % 8) * 2
	lineWidth := g.line * FramebufferWidth

	palette := g.memory.Read(addr.BGP)

	startX := wx
	if startX < 0 {
		startX = 0
	}

	for screenPixelX := startX; screenPixelX < FramebufferWidth; screenPixelX++ {
		windowPixelX := screenPixelX - wx
		mapTileAddr := tileMapAddr + uint16(mapRowBase+windowPixelX/8)
		mapTileValue := g.memory.Read(mapTileAddr)

		tileAddr := g.tileRowAddr(mapTileValue, rowOffset)
		row := TileRow{Low: g.memory.Read(tileAddr), High: g.memory.Read(tileAddr + 1)}

		pixel := row.GetPixel(windowPixelX % 8)
		color := (palette >> (pixel * 2)) & 0x03

		position := lineWidth + screenPixelX
		g.framebuffer.buffer[position] = uint32(ByteToColor(color))
		g.bgPixelBuffer[position] = byte(pixel)
	}

	// the internal counter advances only on lines the window rendered,
	// so toggling the window mid-frame does not skip window lines
	g.windowLine++
}

func (g *GPU) drawSprites() {
	if g.readLCDCVariable(spriteDisplayEnable) == 0 {
		return
	}

	spriteHeight := 8
	if g.readLCDCVariable(spriteSize) == 1 {
		spriteHeight = 16
	}

	lineWidth := g.line * FramebufferWidth
	var spritesToDraw []int

	// OAM selection: scan sequentially, comparing LY to each sprite's
	// vertical extent. Only Y affects selection; off-screen X sprites
	// still count toward the 10-sprite limit.
	for sprite := 0; sprite < 40; sprite++ {
		oamAddr := addr.OAMStart + uint16(sprite*4)

		// OAM byte 0 holds Y with a +16 offset
		spriteY := int(g.memory.Read(oamAddr)) - 16

		if spriteY > g.line || spriteY+spriteHeight <= g.line {
			continue
		}
		spritesToDraw = append(spritesToDraw, sprite)

		if len(spritesToDraw) >= 10 {
			break
		}
	}

	g.spritePriority.Clear()

	lines := make([]spriteLine, 0, len(spritesToDraw))

	for _, sprite := range spritesToDraw {
		oamAddr := addr.OAMStart + uint16(sprite*4)
		spriteY := int(g.memory.Read(oamAddr)) - 16
		spriteX := int(g.memory.Read(oamAddr+1)) - 8
		spriteTile := g.memory.Read(oamAddr + 2)
		spriteFlags := g.memory.Read(oamAddr + 3)

		// tall sprites ignore bit 0 of the tile index
		if spriteHeight == 16 {
			spriteTile &= 0xFE
		}

		objPaletteAddr := addr.OBP0
		if bit.IsSet(4, spriteFlags) {
			objPaletteAddr = addr.OBP1
		}

		flipY := bit.IsSet(6, spriteFlags)
		pixelY := g.line - spriteY
		if flipY {
			pixelY = spriteHeight - 1 - pixelY
		}

		// sprites always use unsigned addressing from 0x8000
		tileAddr := addr.TileData0 + uint16(spriteTile)*16 + uint16(pixelY)*2

		lines = append(lines, spriteLine{
			index:   sprite,
			x:       spriteX,
			row:     TileRow{Low: g.memory.Read(tileAddr), High: g.memory.Read(tileAddr + 1)},
			flipX:   bit.IsSet(5, spriteFlags),
			aboveBG: !bit.IsSet(7, spriteFlags),
			palette: g.memory.Read(objPaletteAddr),
		})
	}

	// resolve pixel ownership: only opaque pixels claim, so color-0 pixels
	// of a closer sprite let the sprite below show through
	for _, sl := range lines {
		for pixelX := 0; pixelX < 8; pixelX++ {
			if sl.pixelAt(pixelX) == 0 {
				continue
			}
			g.spritePriority.TryClaimPixel(sl.x+pixelX, sl.index, sl.x)
		}
	}

	for _, sl := range lines {
		for pixelX := 0; pixelX < 8; pixelX++ {
			bufferX := sl.x + pixelX
			if bufferX < 0 || bufferX >= FramebufferWidth {
				continue
			}

			if g.spritePriority.GetOwner(bufferX) != sl.index {
				continue
			}

			pixel := sl.pixelAt(pixelX)
			if pixel == 0 {
				continue
			}

			position := lineWidth + bufferX

			// low-priority sprites only show over background color 0
			if !sl.aboveBG && g.bgPixelBuffer[position] != 0 {
				continue
			}

			color := (sl.palette >> (pixel * 2)) & 0x03
			g.framebuffer.buffer[position] = uint32(ByteToColor(color))
		}
	}
}

// spriteLine is one selected sprite's slice of the current scanline.
type spriteLine struct {
	index   int
	x       int
	row     TileRow
	flipX   bool
	aboveBG bool
	palette byte
}

func (sl spriteLine) pixelAt(pixelX int) int {
	if sl.flipX {
		return sl.row.GetPixelFlipped(pixelX)
	}
	return sl.row.GetPixel(pixelX)
}

// STAT register bits:
// Bit 6 - LYC=LY interrupt enable
// Bit 5 - mode 2 (OAM) interrupt enable
// Bit 4 - mode 1 (VBlank) interrupt enable
// Bit 3 - mode 0 (HBlank) interrupt enable
// Bit 2 - LYC=LY match flag (read-only)
// Bit 1,0 - current mode (read-only)
const (
	statLycIrq       uint8 = 6
	statOamIrq       uint8 = 5
	statVblankIrq    uint8 = 4
	statHblankIrq    uint8 = 3
	statLycCondition uint8 = 2
)

// LCDC register bits:
// Bit 7 - LCD display enable
// Bit 6 - window tile map select (0=9800, 1=9C00)
// Bit 5 - window display enable
// Bit 4 - BG & window tile data select (0=8800 signed, 1=8000 unsigned)
// Bit 3 - BG tile map select (0=9800, 1=9C00)
// Bit 2 - sprite size (0=8x8, 1=8x16)
// Bit 1 - sprite display enable
// Bit 0 - BG display enable
type lcdcFlag uint8

const (
	lcdDisplayEnable       lcdcFlag = 7
	windowTileMapSelect    lcdcFlag = 6
	windowDisplayEnable    lcdcFlag = 5
	bgWindowTileDataSelect lcdcFlag = 4
	bgTileMapDisplaySelect lcdcFlag = 3
	spriteSize             lcdcFlag = 2
	spriteDisplayEnable    lcdcFlag = 1
	bgDisplay              lcdcFlag = 0
)

func (g *GPU) readLCDCVariable(flag lcdcFlag) byte {
	if bit.IsSet(uint8(flag), g.memory.Read(addr.LCDC)) {
		return 1
	}

	return 0
}

func (g *GPU) compareLYToLYC() {
	ly := g.memory.Read(addr.LY)
	lyc := g.memory.Read(addr.LYC)
	stat := g.memory.Read(addr.STAT)

	if ly == lyc {
		stat = bit.Set(statLycCondition, stat)
		if bit.IsSet(statLycIrq, stat) {
			g.memory.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	} else {
		stat = bit.Reset(statLycCondition, stat)
	}

	g.memory.WriteDirect(addr.STAT, stat)
}

// setMode publishes the mode into the two low bits of STAT.
func (g *GPU) setMode(mode GpuMode) {
	g.mode = mode
	stat := g.memory.Read(addr.STAT)
	stat = stat&0xFC | byte(g.mode)
	g.memory.WriteDirect(addr.STAT, stat)
}

// setLY updates the current scanline (LY register) and runs the LY/LYC
// comparison, which may raise a STAT interrupt.
func (g *GPU) setLY(line int) {
	g.line = line
	g.memory.WriteDirect(addr.LY, byte(g.line))
	g.compareLYToLYC()
}
