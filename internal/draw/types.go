// Package draw is the stack layout engine: it turns notifications into colored
// layouts, reduces them into aggregate stack dimensions and paints them in order
// onto a surface.
//
// The package only talks to its collaborators (text shaping, icon loading and the
// display output) through the interfaces declared here.
package draw

import (
	"image"
	"image/color"

	"github.com/jmylchreest/stackdraw/internal/markup"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// Output is the display backend capability consumed by the engine.
type Output interface {
	CreateSurface(size image.Point) (Surface, error)
	Scale() float64
	IsIdle() bool
	HasFullscreenWindow() bool
}

// Corners selects which corners of a rectangle are rounded.
type Corners uint8

const (
	CornerTopLeft Corners = 1 << iota
	CornerTopRight
	CornerBottomLeft
	CornerBottomRight

	CornersNone   Corners = 0
	CornersTop            = CornerTopLeft | CornerTopRight
	CornersBottom         = CornerBottomLeft | CornerBottomRight
	CornersAll            = CornersTop | CornersBottom
)

// Surface is a drawing target owned by the caller for the duration of a render.
type Surface interface {
	Bounds() image.Rectangle
	// Fill paints r with c, rounding the selected corners by radius.
	Fill(r image.Rectangle, c color.Color, radius int, corners Corners)
	// DrawImage composites img into r, top-left aligned and clipped.
	DrawImage(r image.Rectangle, img image.Image)
	// DrawText paints a shaped layout into r.
	DrawText(r image.Rectangle, l TextLayout, c color.Color)
}

// TextStyle carries the shaping constraints for one notification.
type TextStyle struct {
	Size        float64 // Points
	MaxWidth    int     // Pixels, 0 = unbounded
	Markup      markup.Mode
	Alignment   string
	Ellipsize   string
	WordWrap    bool
	LineSpacing int
}

// TextLayout is a shaped-text handle. It must be released by its owner.
type TextLayout interface {
	Size() (width, height int)
	Draw(dst *image.RGBA, r image.Rectangle, fg color.Color)
	Release()
}

// TextShaper produces shaped-text handles.
type TextShaper interface {
	Shape(text string, style TextStyle) (TextLayout, error)
}

// IconSource loads the icon of a notification, scaled for display.
// A missing icon is reported as absent, never as an error.
type IconSource interface {
	Load(n *model.Notification) (image.Image, bool)
}
