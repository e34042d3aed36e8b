package text

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/markup"
)

// Layout is a shaped-text handle produced by Shaper.Shape.
type Layout struct {
	shaper *Shaper
	spans  []markup.Span
	faces  *faceSet
	lines  []line

	width, height int
	ascent        int
	lineHeight    int
	spacing       int
	alignment     string

	released bool
}

// Size returns the tight pixel size of the shaped text.
func (l *Layout) Size() (int, int) {
	return l.width, l.height
}

// Lines returns the number of shaped lines.
func (l *Layout) Lines() int {
	return len(l.lines)
}

// Released reports whether Release has been called.
func (l *Layout) Released() bool {
	return l.released
}

// Release drops the shaped lines. It is safe to call more than once.
func (l *Layout) Release() {
	if l.released {
		return
	}
	l.released = true
	l.lines = nil
	l.spans = nil
	l.faces = nil
}

func (l *Layout) isBlank() bool {
	for _, ln := range l.lines {
		if len(ln.cells) > 0 {
			return false
		}
	}
	return true
}

// Draw paints the text into r on dst, aligning each line within r and clipping to it.
// fg colours every span without an explicit foreground.
func (l *Layout) Draw(dst *image.RGBA, r image.Rectangle, fg color.Color) {
	if l.released || len(l.lines) == 0 {
		return
	}
	clip, ok := dst.SubImage(r).(*image.RGBA)
	if !ok || clip.Bounds().Empty() {
		return
	}

	l.shaper.mu.Lock()
	defer l.shaper.mu.Unlock()

	for i, ln := range l.lines {
		top := r.Min.Y + i*(l.lineHeight+l.spacing)
		baseline := top + l.ascent

		x := fixed.I(r.Min.X + l.offset(ln, r.Dx()))
		for _, run := range l.runs(ln) {
			sp := spanAt(l.spans, run.span)
			runRect := image.Rect(x.Floor(), top, (x + run.width).Ceil(), top+l.lineHeight)

			if bg, ok := spanColor(sp.Background); ok {
				draw.Draw(clip, runRect, image.NewUniform(bg), image.Point{}, draw.Over)
			}

			col := fg
			if c, ok := spanColor(sp.Foreground); ok {
				col = c
			}
			src := image.NewUniform(col)

			d := font.Drawer{
				Dst:  clip,
				Src:  src,
				Face: faceFor(l.faces, l.spans, run.span),
				Dot:  fixed.Point26_6{X: x, Y: fixed.I(baseline)},
			}
			d.DrawString(run.text)

			thickness := max(1, l.lineHeight/14)
			if sp.Underline {
				y := baseline + thickness
				draw.Draw(clip, image.Rect(runRect.Min.X, y, runRect.Max.X, y+thickness), src, image.Point{}, draw.Over)
			}
			if sp.Strikethrough {
				y := baseline - l.ascent/3
				draw.Draw(clip, image.Rect(runRect.Min.X, y, runRect.Max.X, y+thickness), src, image.Point{}, draw.Over)
			}

			x += run.width
		}
	}
}

// offset returns the horizontal start of a line for the configured alignment.
func (l *Layout) offset(ln line, available int) int {
	w := ln.width().Ceil()
	var off int
	switch l.alignment {
	case config.AlignCenter:
		off = (available - w) / 2
	case config.AlignRight:
		off = available - w
	}
	return max(off, 0)
}

type run struct {
	text  string
	span  int
	width fixed.Int26_6
}

// runs groups consecutive cells sharing a span.
func (l *Layout) runs(ln line) []run {
	var out []run
	for i, c := range ln.cells {
		if n := len(out); n > 0 && out[n-1].span == c.span {
			out[n-1].text += string(c.r)
			out[n-1].width += ln.adv[i]
			continue
		}
		out = append(out, run{text: string(c.r), span: c.span, width: ln.adv[i]})
	}
	return out
}

// spanColor parses an explicit span colour. Unparsable colours are ignored.
func spanColor(hex string) (color.Color, bool) {
	if hex == "" {
		return nil, false
	}
	c, err := config.ParseColor(hex)
	if err != nil {
		return nil, false
	}
	return c, true
}
