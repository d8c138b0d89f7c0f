package dotmatrix

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dmgx/dotmatrix/dotmatrix/cpu"
	"github.com/dmgx/dotmatrix/dotmatrix/input/action"
	"github.com/dmgx/dotmatrix/dotmatrix/memory"
	"github.com/dmgx/dotmatrix/dotmatrix/video"
)

// cyclesPerLine is one PPU scanline; a full frame is 154 of them.
const (
	cyclesPerLine  = 456
	cyclesPerFrame = 154 * cyclesPerLine
)

// DMG represents the root struct and entry point for running the emulation.
// All state is reachable from here; there is no global state.
type DMG struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	paused       bool
	saveDir      string
	snapshotFunc func(*video.FrameBuffer)

	instructionCount uint64
	frameCount       uint64
}

func (d *DMG) init(mem *memory.MMU) {
	d.cpu = cpu.New(mem)
	d.gpu = video.NewGpu(mem)
	d.mem = mem
}

// New creates an emulator with no cartridge loaded.
func New() *DMG {
	d := &DMG{}
	d.init(memory.NewWithCartridge(memory.NewCartridge()))

	return d
}

// NewWithData creates an emulator from a raw ROM image.
func NewWithData(data []byte) (*DMG, error) {
	cart, err := memory.NewCartridgeWithData(data)
	if err != nil {
		return nil, err
	}

	d := &DMG{}
	d.init(memory.NewWithCartridge(cart))

	return d, nil
}

// NewWithFile creates an emulator and loads the ROM file specified into it.
func NewWithFile(path string) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded ROM data", "path", path, "size", len(data))

	return NewWithData(data)
}

// SetSaveDir selects where battery-backed RAM is persisted, and restores a
// previous save if one exists.
func (d *DMG) SetSaveDir(dir string) {
	d.saveDir = dir
	d.mem.LoadRAM(dir)
}

// Shutdown persists battery-backed cartridge RAM, if any.
func (d *DMG) Shutdown() {
	d.mem.SaveRAM(d.saveDir)
}

// RunOne executes a single CPU instruction and advances the timer, serial
// port and PPU by its cycle cost. This ordering is load-bearing: the timer
// must observe the cycles before the PPU does, and interrupts latched here
// are only serviced on the next instruction boundary.
func (d *DMG) RunOne() int {
	cycles := d.cpu.Tick()
	d.mem.Tick(cycles)
	d.gpu.Tick(cycles)
	d.mem.APU.Tick(cycles)
	d.instructionCount++

	return cycles
}

// RunScanline advances emulation by one PPU scanline worth of cycles.
func (d *DMG) RunScanline() {
	total := 0
	for total < cyclesPerLine {
		total += d.RunOne()
	}
}

// RunUntilFrame advances emulation by one full video frame.
func (d *DMG) RunUntilFrame() {
	if d.paused {
		return
	}

	total := 0
	for total < cyclesPerFrame {
		total += d.RunOne()
	}

	d.frameCount++
	if d.frameCount%600 == 0 {
		slog.Debug("Frame completed", "frame", d.frameCount, "pc", fmt.Sprintf("0x%04X", d.cpu.GetPC()))
	}
}

// IsPassed reports whether the loaded test ROM has signalled success over
// the serial port (Blargg "Passed" text or the Mooneye Fibonacci bytes).
func (d *DMG) IsPassed() bool {
	return d.mem.IsPassed()
}

func (d *DMG) GetCurrentFrame() *video.FrameBuffer {
	return d.gpu.GetFrameBuffer()
}

// SetSnapshotFunc installs the callback invoked when a backend requests a
// frame snapshot. The host decides where and how the frame is written.
func (d *DMG) SetSnapshotFunc(fn func(*video.FrameBuffer)) {
	d.snapshotFunc = fn
}

// HandleAction routes a backend input event into the emulator by category:
// joypad edges go to the joypad register, emulator and backend controls are
// handled here.
func (d *DMG) HandleAction(act action.Action, pressed bool) {
	switch action.Info(act) {
	case action.CategoryGameInput:
		key, ok := joypadKeyFor(act)
		if !ok {
			return
		}
		if pressed {
			d.mem.HandleKeyPress(key)
		} else {
			d.mem.HandleKeyRelease(key)
		}
	case action.CategoryEmulator:
		if act == action.EmulatorPauseToggle && pressed {
			d.paused = !d.paused
			slog.Info("Pause toggled", "paused", d.paused)
		}
	case action.CategoryBackend:
		if act == action.EmulatorSnapshot && pressed && d.snapshotFunc != nil {
			d.snapshotFunc(d.GetCurrentFrame())
		}
	}
}

func joypadKeyFor(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	}
	return 0, false
}

// Pause stops the frame driver; RunUntilFrame becomes a no-op until Resume.
func (d *DMG) Pause() {
	d.paused = true
}

// Resume restarts the frame driver after a Pause.
func (d *DMG) Resume() {
	d.paused = false
}

// IsPaused reports whether the frame driver is paused.
func (d *DMG) IsPaused() bool {
	return d.paused
}

// StepFrame runs exactly one frame while paused.
func (d *DMG) StepFrame() {
	wasPaused := d.paused
	d.paused = false
	d.RunUntilFrame()
	d.paused = wasPaused
}

func (d *DMG) GetInstructionCount() uint64 {
	return d.instructionCount
}

func (d *DMG) GetFrameCount() uint64 {
	return d.frameCount
}

func (d *DMG) GetCPU() *cpu.CPU {
	return d.cpu
}

func (d *DMG) GetMMU() *memory.MMU {
	return d.mem
}
