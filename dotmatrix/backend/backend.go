package backend

import (
	"github.com/dmgx/dotmatrix/dotmatrix/input/action"
	"github.com/dmgx/dotmatrix/dotmatrix/input/event"
	"github.com/dmgx/dotmatrix/dotmatrix/video"
)

// InputEvent represents an input event from a backend
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// Backend represents a complete emulator platform (rendering + input).
// Backends are responsible for:
//   - rendering frames to their specific output (terminal, SDL window, ...)
//   - capturing platform-specific input and returning it as InputEvents
//   - handling backend-specific features (snapshots, etc.)
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config BackendConfig) error

	// Update renders the provided frame, polls for platform events and
	// returns them translated into InputEvents.
	Update(frame *video.FrameBuffer) ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// BackendConfig holds configuration for backends
type BackendConfig struct {
	Title string
	Scale int
}
