//go:build !sdl2

package sdl2

import (
	"fmt"

	"github.com/dmgx/dotmatrix/dotmatrix/backend"
	"github.com/dmgx/dotmatrix/dotmatrix/video"
)

// Backend stub for when SDL2 is not compiled in.
type Backend struct{}

// New creates a stub SDL2 backend that returns an error on Init.
func New() *Backend {
	return &Backend{}
}

func (s *Backend) Init(config backend.BackendConfig) error {
	return fmt.Errorf("SDL2 backend not available - compile with -tags sdl2 and install SDL2 development libraries")
}

func (s *Backend) Update(frame *video.FrameBuffer) ([]backend.InputEvent, error) {
	return nil, fmt.Errorf("SDL2 backend not available")
}

func (s *Backend) Cleanup() error {
	return nil
}
