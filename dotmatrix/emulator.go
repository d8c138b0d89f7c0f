package dotmatrix

import (
	"github.com/dmgx/dotmatrix/dotmatrix/input/action"
	"github.com/dmgx/dotmatrix/dotmatrix/video"
)

// Emulator is the surface backends drive: one frame per update tick plus
// input edges.
type Emulator interface {
	RunUntilFrame()
	GetCurrentFrame() *video.FrameBuffer
	HandleAction(act action.Action, pressed bool)
}

var _ Emulator = (*DMG)(nil)
