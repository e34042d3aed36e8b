package draw

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// ErrNoTextLayout is returned when a shaper produces no handle.
var ErrNoTextLayout = errors.New("shaper returned no text layout")

// ErrNoShaper is returned when the engine has no text shaper.
var ErrNoShaper = errors.New("no text shaper configured")

// LayoutError is a resource error that prevented one notification from being laid out.
// The rest of the stack is unaffected.
type LayoutError struct {
	ID    string
	Op    string
	Cause error
}

func (e *LayoutError) Error() string {
	if e.Cause != nil {
		return "layout " + e.ID + ": " + e.Op + ": " + e.Cause.Error()
	}
	return "layout " + e.ID + ": " + e.Op
}

func (e *LayoutError) Unwrap() error {
	return e.Cause
}

// Engine lays out and renders notification stacks.
// It reads its settings but never modifies them; the settings it holds are a
// scaled copy of the ones it was given.
type Engine struct {
	settings *config.Settings
	base     *config.Settings
	scale    float64

	output Output
	shaper TextShaper
	icons  IconSource
	logger *slog.Logger
}

// NewEngine creates an engine. The scale comes from settings.Scale, or from the
// output when that is 0. icons may be nil, in which case no icon is ever shown.
func NewEngine(settings *config.Settings, output Output, shaper TextShaper, icons IconSource, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if settings == nil {
		settings = config.DefaultSettings()
	}

	scale := settings.Scale
	if scale <= 0 && output != nil {
		scale = output.Scale()
	}
	if scale <= 0 {
		scale = 1
	}

	return &Engine{
		settings: settings.Scaled(scale),
		base:     settings,
		scale:    scale,
		output:   output,
		shaper:   shaper,
		icons:    icons,
		logger:   logger,
	}
}

// Settings returns the scaled settings used for layout.
func (e *Engine) Settings() *config.Settings {
	return e.settings
}

// Scale returns the scale factor applied to the settings.
func (e *Engine) Scale() float64 {
	return e.scale
}

// Frame is the result of a full stack pass.
type Frame struct {
	Surface    Surface
	Dimensions Dimensions
	Placements []Placement
	Dropped    []error
}

// Draw runs a full pass: build layouts, compute dimensions, create a surface,
// render every item in order, then release the layouts.
func (e *Engine) Draw(ns []*model.Notification) (*Frame, error) {
	if e.output == nil {
		return nil, errors.New("no output configured")
	}

	frame := &Frame{}
	err := e.WithLayouts(ns, func(set *LayoutSet) error {
		frame.Dropped = set.Errors

		dim := e.CalculateDimensions(set.Layouts)
		s, err := e.output.CreateSurface(image.Pt(dim.W, dim.H))
		if err != nil {
			return fmt.Errorf("failed to create surface: %w", err)
		}

		frame.Placements = e.Placements(set.Layouts, dim)
		frame.Dimensions = e.RenderStack(s, set.Layouts, dim)
		frame.Surface = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("stack drawn",
		"items", len(frame.Placements),
		"dropped", len(frame.Dropped),
		"width", frame.Dimensions.W,
		"height", frame.Dimensions.H,
	)
	return frame, nil
}
