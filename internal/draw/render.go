package draw

import (
	"image"
	"image/color"
	"strings"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// Placement is where one item lands on the stack surface.
type Placement struct {
	ID string
	// Box is the item including its frame (gapped) or its slice of the outer frame (gapless).
	Box     image.Rectangle
	Content image.Rectangle
	Text    image.Rectangle
	Icon    image.Rectangle
	// Separator is the divider below the item, empty in gapped mode and for the last item.
	Separator image.Rectangle
	Progress  image.Rectangle
}

type geometry struct {
	Placement
	inner   image.Rectangle
	corners Corners
}

// rect builds a rectangle without canonicalizing, collapsing inverted bounds to empty.
func rect(x0, y0, x1, y1 int) image.Rectangle {
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return image.Rectangle{Min: image.Pt(x0, y0), Max: image.Pt(x1, y1)}
}

// place computes the geometry of one item at the cursor.
func (e *Engine) place(cl *ColoredLayout, dim Dimensions, first, last bool) geometry {
	g := e.settings.Geometry
	f := g.FrameWidth
	x0, x1 := dim.X, dim.X+dim.W

	geo := geometry{Placement: Placement{ID: cl.ID}}

	if g.Gaps {
		geo.Box = rect(x0, dim.Y, x1, dim.Y+cl.Height+2*f)
		geo.inner = rect(x0+f, dim.Y+f, x1-f, dim.Y+f+cl.Height)
		geo.corners = CornersAll
	} else {
		top := dim.Y
		innerTop := top
		if first {
			innerTop += f
			geo.corners |= CornersTop
		}
		bottom := innerTop + cl.Height
		geo.inner = rect(x0+f, innerTop, x1-f, bottom)
		if last {
			bottom += f
			geo.corners |= CornersBottom
		} else {
			geo.Separator = rect(x0, geo.inner.Max.Y, x1, geo.inner.Max.Y+g.SeparatorHeight)
		}
		geo.Box = rect(x0, top, x1, bottom)
	}

	in := geo.inner
	geo.Content = rect(in.Min.X+g.HorizontalPadding, in.Min.Y+g.Padding, in.Max.X-g.HorizontalPadding, in.Max.Y-g.Padding)

	body := geo.Content
	if e.progressShown(cl.Progress) {
		pb := e.settings.ProgressBar
		w := min(max(body.Dx(), pb.MinWidth), body.Dx())
		if pb.MaxWidth > 0 {
			w = min(w, pb.MaxWidth)
		}
		geo.Progress = rect(body.Min.X, body.Max.Y-pb.Height, body.Min.X+w, body.Max.Y).Intersect(body)
		body = rect(body.Min.X, body.Min.Y, body.Max.X, body.Max.Y-pb.Height-g.Padding)
	}

	textArea := body
	if cl.Icon != nil {
		ib := cl.Icon.Bounds()
		iy := body.Min.Y + max(0, (body.Dy()-ib.Dy())/2)
		reserve := e.iconReserve(cl.Icon)
		if cl.IconPosition == model.IconRight {
			geo.Icon = rect(body.Max.X-ib.Dx(), iy, body.Max.X, iy+ib.Dy()).Intersect(body)
			textArea = rect(body.Min.X, body.Min.Y, body.Max.X-reserve, body.Max.Y)
		} else {
			geo.Icon = rect(body.Min.X, iy, body.Min.X+ib.Dx(), iy+ib.Dy()).Intersect(body)
			textArea = rect(body.Min.X+reserve, body.Min.Y, body.Max.X, body.Max.Y)
		}
	}

	if cl.Text != nil {
		_, th := cl.Text.Size()
		ty := textArea.Min.Y
		switch strings.ToLower(e.settings.Text.VerticalAlignment) {
		case config.AlignCenter:
			ty += max(0, (textArea.Dy()-th)/2)
		case config.AlignBottom:
			ty += max(0, textArea.Dy()-th)
		}
		geo.Text = rect(textArea.Min.X, ty, textArea.Max.X, ty+th).Intersect(textArea)
	}

	return geo
}

// Render paints one item at the cursor and returns the dimensions with the
// cursor advanced past it. next is the following item, nil when cl is last.
// The cursor advance depends only on the item, the spacing mode and the item's
// position, never on the surface. A nil surface only advances the cursor.
func (e *Engine) Render(s Surface, cl, next *ColoredLayout, dim Dimensions, first, last bool) Dimensions {
	if s != nil {
		e.paint(s, cl, next, dim, first, last)
	}
	dim.Y += e.advance(cl, first, last)
	return dim
}

func (e *Engine) paint(s Surface, cl, next *ColoredLayout, dim Dimensions, first, last bool) {
	g := e.settings.Geometry
	geo := e.place(cl, dim, first, last)

	radius := dim.CornerRadius
	inner := max(0, radius-g.FrameWidth)

	if g.FrameWidth > 0 {
		s.Fill(geo.Box, cl.Colors.Frame, radius, geo.corners)
		s.Fill(geo.inner, cl.Colors.Background, inner, geo.corners)
	} else {
		s.Fill(geo.inner, cl.Colors.Background, radius, geo.corners)
	}

	if !geo.Separator.Empty() {
		s.Fill(geo.Separator, cl.Colors.Frame, 0, CornersNone)
		sep := rect(geo.Separator.Min.X+g.FrameWidth, geo.Separator.Min.Y, geo.Separator.Max.X-g.FrameWidth, geo.Separator.Max.Y)
		s.Fill(sep, e.separatorColor(cl, next), 0, CornersNone)
	}

	if !geo.Progress.Empty() {
		e.paintProgress(s, cl, geo.Progress)
	}

	if cl.Icon != nil && !geo.Icon.Empty() {
		s.DrawImage(geo.Icon, cl.Icon)
	}

	if cl.Text != nil && !geo.Text.Empty() {
		s.DrawText(geo.Text, cl.Text, cl.Colors.Foreground)
	}
}

func (e *Engine) paintProgress(s Surface, cl *ColoredLayout, r image.Rectangle) {
	pf := e.settings.ProgressBar.FrameWidth
	s.Fill(r, cl.Colors.Frame, 0, CornersNone)

	in := rect(r.Min.X+pf, r.Min.Y+pf, r.Max.X-pf, r.Max.Y-pf)
	s.Fill(in, cl.Colors.Background, 0, CornersNone)

	progress := min(max(cl.Progress, 0), 100)
	filled := in.Dx() * progress / 100
	if filled > 0 {
		s.Fill(rect(in.Min.X, in.Min.Y, in.Min.X+filled, in.Max.Y), cl.Colors.Highlight, 0, CornersNone)
	}
}

// separatorColor picks the divider colour between cl and next. In frame mode
// the more urgent of the two frame colours wins.
func (e *Engine) separatorColor(cl, next *ColoredLayout) color.NRGBA {
	switch mode := strings.ToLower(e.settings.Colors.Separator); mode {
	case config.SeparatorFrame:
		if next != nil && next.Urgency > cl.Urgency {
			return next.Colors.Frame
		}
		return cl.Colors.Frame
	case config.SeparatorForeground:
		return cl.Colors.Foreground
	case config.SeparatorAuto:
		return config.BlendColor(cl.Colors.Background, cl.Colors.Foreground, 0.5)
	default:
		c, err := config.ParseColor(mode)
		if err != nil {
			return cl.Colors.Frame
		}
		return c
	}
}

// RenderStack renders every layout in order starting at dim's cursor and
// returns the final dimensions.
func (e *Engine) RenderStack(s Surface, layouts []*ColoredLayout, dim Dimensions) Dimensions {
	for i, cl := range layouts {
		var next *ColoredLayout
		if i+1 < len(layouts) {
			next = layouts[i+1]
		}
		dim = e.Render(s, cl, next, dim, i == 0, next == nil)
	}
	return dim
}

// Placements returns the geometry of every item for a stack starting at dim's cursor.
func (e *Engine) Placements(layouts []*ColoredLayout, dim Dimensions) []Placement {
	out := make([]Placement, 0, len(layouts))
	for i, cl := range layouts {
		first, last := i == 0, i == len(layouts)-1
		out = append(out, e.place(cl, dim, first, last).Placement)
		dim.Y += e.advance(cl, first, last)
	}
	return out
}
