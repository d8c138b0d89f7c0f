//go:build sdl2

package sdl2

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/dmgx/dotmatrix/dotmatrix/backend"
	"github.com/dmgx/dotmatrix/dotmatrix/input/action"
	"github.com/dmgx/dotmatrix/dotmatrix/input/event"
	"github.com/dmgx/dotmatrix/dotmatrix/video"
)

const (
	width        = video.FramebufferWidth
	height       = video.FramebufferHeight
	defaultScale = 4
)

// Backend renders into an SDL2 window.
type Backend struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	config   backend.BackendConfig
}

// New creates a new SDL2 backend
func New() *Backend {
	return &Backend{}
}

func (s *Backend) Init(config backend.BackendConfig) error {
	s.config = config

	scale := config.Scale
	if scale <= 0 {
		scale = defaultScale
	}

	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %v", err)
	}

	title := config.Title
	if title == "" {
		title = "dotmatrix"
	}

	window, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(width*scale), int32(height*scale),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return fmt.Errorf("failed to create window: %v", err)
	}
	s.window = window

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED|sdl.RENDERER_PRESENTVSYNC)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %v", err)
	}
	s.renderer = renderer

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STREAMING, width, height)
	if err != nil {
		return fmt.Errorf("failed to create texture: %v", err)
	}
	s.texture = texture

	return nil
}

func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	var events []backend.InputEvent

	for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
		switch ev := ev.(type) {
		case *sdl.QuitEvent:
			events = append(events, backend.InputEvent{Action: action.EmulatorQuit, Type: event.Press})
		case *sdl.KeyboardEvent:
			if act, ok := actionForKey(ev.Keysym.Sym); ok {
				evType := event.Press
				if ev.Type == sdl.KEYUP {
					evType = event.Release
				}
				events = append(events, backend.InputEvent{Action: act, Type: evType})
			}
		}
	}

	if err := s.texture.Update(nil, frame.ToBinaryData(), width*4); err != nil {
		return events, err
	}

	s.renderer.Clear()
	s.renderer.Copy(s.texture, nil, nil)
	s.renderer.Present()

	return events, nil
}

func (s *Backend) Cleanup() error {
	if s.texture != nil {
		s.texture.Destroy()
	}
	if s.renderer != nil {
		s.renderer.Destroy()
	}
	if s.window != nil {
		s.window.Destroy()
	}
	sdl.Quit()
	return nil
}

func actionForKey(key sdl.Keycode) (action.Action, bool) {
	switch key {
	case sdl.K_UP:
		return action.GBDPadUp, true
	case sdl.K_DOWN:
		return action.GBDPadDown, true
	case sdl.K_LEFT:
		return action.GBDPadLeft, true
	case sdl.K_RIGHT:
		return action.GBDPadRight, true
	case sdl.K_z:
		return action.GBButtonA, true
	case sdl.K_x:
		return action.GBButtonB, true
	case sdl.K_RETURN:
		return action.GBButtonStart, true
	case sdl.K_SPACE:
		return action.GBButtonSelect, true
	case sdl.K_p:
		return action.EmulatorPauseToggle, true
	case sdl.K_F12:
		return action.EmulatorSnapshot, true
	case sdl.K_ESCAPE, sdl.K_q:
		return action.EmulatorQuit, true
	}
	return 0, false
}
