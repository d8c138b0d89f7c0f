package terminal

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dmgx/dotmatrix/dotmatrix/backend"
	"github.com/dmgx/dotmatrix/dotmatrix/input/action"
	"github.com/dmgx/dotmatrix/dotmatrix/input/event"
	"github.com/dmgx/dotmatrix/dotmatrix/video"
)

const (
	width  = video.FramebufferWidth
	height = video.FramebufferHeight

	// terminals deliver key repeats, not key-up events, so a key counts as
	// held until it has been silent for this long
	keyTimeout = 100 * time.Millisecond
)

// Backend renders the framebuffer into a terminal with tcell, two vertical
// pixels per character cell, and translates key events into emulator input.
type Backend struct {
	screen tcell.Screen
	config backend.BackendConfig

	keyStates  map[action.Action]time.Time // last time each key was seen
	activeKeys map[action.Action]bool      // keys held in the previous frame
	eventQueue []backend.InputEvent
}

// New creates a new terminal backend
func New() *Backend {
	return &Backend{}
}

func (t *Backend) Init(config backend.BackendConfig) error {
	t.config = config
	t.keyStates = make(map[action.Action]time.Time)
	t.activeKeys = make(map[action.Action]bool)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %v", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %v", err)
	}

	t.screen = screen
	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	return nil
}

func (t *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	now := time.Now()

	for t.screen.HasPendingEvent() {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	events := t.eventQueue
	t.eventQueue = nil

	// synthesize press/release edges from key timestamps
	for act, lastSeen := range t.keyStates {
		held := now.Sub(lastSeen) < keyTimeout
		if held && !t.activeKeys[act] {
			events = append(events, backend.InputEvent{Action: act, Type: event.Press})
			t.activeKeys[act] = true
		} else if !held && t.activeKeys[act] {
			events = append(events, backend.InputEvent{Action: act, Type: event.Release})
			delete(t.activeKeys, act)
			delete(t.keyStates, act)
		}
	}

	t.drawFrame(frame)
	t.screen.Show()

	return events, nil
}

func (t *Backend) Cleanup() error {
	if t.screen != nil {
		t.screen.Fini()
	}
	return nil
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})
		return
	case tcell.KeyUp:
		t.keyStates[action.GBDPadUp] = now
		return
	case tcell.KeyDown:
		t.keyStates[action.GBDPadDown] = now
		return
	case tcell.KeyLeft:
		t.keyStates[action.GBDPadLeft] = now
		return
	case tcell.KeyRight:
		t.keyStates[action.GBDPadRight] = now
		return
	case tcell.KeyEnter:
		t.keyStates[action.GBButtonStart] = now
		return
	case tcell.KeyF9:
		t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: action.EmulatorSnapshot, Type: event.Press})
		return
	}

	switch ev.Rune() {
	case 'q', 'Q':
		t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})
	case 'z', 'Z':
		t.keyStates[action.GBButtonA] = now
	case 'x', 'X':
		t.keyStates[action.GBButtonB] = now
	case ' ':
		t.keyStates[action.GBButtonSelect] = now
	case 'p', 'P':
		t.eventQueue = append(t.eventQueue, backend.InputEvent{Action: action.EmulatorPauseToggle, Type: event.Press})
	}
}

// drawFrame paints two vertical pixels per cell using the upper-half-block
// rune: the foreground carries the top pixel, the background the bottom one.
func (t *Backend) drawFrame(frame *video.FrameBuffer) {
	pixels := frame.ToSlice()

	for y := 0; y < height; y += 2 {
		for x := 0; x < width; x++ {
			top := shadeColor(pixels[y*width+x])
			bottom := shadeColor(pixels[(y+1)*width+x])

			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			t.screen.SetContent(x, y/2, '▀', nil, style)
		}
	}
}

func shadeColor(pixel uint32) tcell.Color {
	switch video.GBColor(pixel) {
	case video.WhiteColor:
		return tcell.NewRGBColor(0xFF, 0xFF, 0xFF)
	case video.LightGreyColor:
		return tcell.NewRGBColor(0x98, 0x98, 0x98)
	case video.DarkGreyColor:
		return tcell.NewRGBColor(0x4C, 0x4C, 0x4C)
	default:
		return tcell.NewRGBColor(0x00, 0x00, 0x00)
	}
}
