package draw

// Dimensions is the aggregate size of a stack plus the render cursor.
// X and Y are the next free offset; each Render call returns a copy with Y advanced.
type Dimensions struct {
	X, Y         int
	W, H         int
	CornerRadius int
}

// CalculateDimensions reduces an ordered list of layouts into the stack's
// bounding box.
//
// Gapless: H = sum(h) + (N-1)*separator_height + 2*frame_width
// Gapped:  H = sum(h) + N*2*frame_width + (N-1)*gap_size
//
// An empty list yields a zero-sized stack with no frame.
func (e *Engine) CalculateDimensions(layouts []*ColoredLayout) Dimensions {
	n := len(layouts)
	if n == 0 {
		return Dimensions{}
	}

	g := e.settings.Geometry
	dim := Dimensions{CornerRadius: g.CornerRadius}

	widest := 0
	for _, cl := range layouts {
		dim.H += cl.Height
		widest = max(widest, cl.Width)
		dim.CornerRadius = min(dim.CornerRadius, cl.Height/2)
	}

	if g.Gaps {
		dim.H += n*2*g.FrameWidth + (n-1)*g.GapSize
	} else {
		dim.H += (n-1)*g.SeparatorHeight + 2*g.FrameWidth
	}

	dim.W = widest + 2*g.FrameWidth
	dim.W = max(dim.W, g.MinWidth)
	dim.W = min(dim.W, g.MaxWidth)

	return dim
}

// advance returns the vertical distance one item moves the cursor.
func (e *Engine) advance(cl *ColoredLayout, first, last bool) int {
	g := e.settings.Geometry
	if g.Gaps {
		d := cl.Height + 2*g.FrameWidth
		if !last {
			d += g.GapSize
		}
		return d
	}

	d := cl.Height
	if first {
		d += g.FrameWidth
	}
	if last {
		d += g.FrameWidth
	} else {
		d += g.SeparatorHeight
	}
	return d
}
