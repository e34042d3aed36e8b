package surface

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	stackdraw "github.com/jmylchreest/stackdraw/internal/draw"
)

// ErrInvalidSize is returned for surfaces with a negative dimension.
var ErrInvalidSize = errors.New("invalid surface size")

// Headless is an output without a display. It creates in-memory surfaces and
// never reports idle or fullscreen unless told to.
type Headless struct {
	scale      float64
	idle       atomic.Bool
	fullscreen atomic.Bool
}

var _ stackdraw.Output = (*Headless)(nil)

// NewHeadless creates a headless output. A non-positive scale means 1.
func NewHeadless(scale float64) *Headless {
	if scale <= 0 {
		scale = 1
	}
	return &Headless{scale: scale}
}

// CreateSurface returns a new Image surface.
func (h *Headless) CreateSurface(size image.Point) (stackdraw.Surface, error) {
	if size.X < 0 || size.Y < 0 {
		return nil, fmt.Errorf("%dx%d: %w", size.X, size.Y, ErrInvalidSize)
	}
	return NewImage(size), nil
}

// Scale returns the output scale factor.
func (h *Headless) Scale() float64 { return h.scale }

// IsIdle reports the idle state set with SetIdle.
func (h *Headless) IsIdle() bool { return h.idle.Load() }

// HasFullscreenWindow reports the state set with SetFullscreen.
func (h *Headless) HasFullscreenWindow() bool { return h.fullscreen.Load() }

// SetIdle sets the reported idle state.
func (h *Headless) SetIdle(idle bool) { h.idle.Store(idle) }

// SetFullscreen sets the reported fullscreen state.
func (h *Headless) SetFullscreen(fullscreen bool) { h.fullscreen.Store(fullscreen) }
