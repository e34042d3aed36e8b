package draw

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// renderAll drives Render item by item the way a caller streams a stack.
func renderAll(e *Engine, s Surface, layouts []*ColoredLayout, dim Dimensions) Dimensions {
	first := true
	for i, cl := range layouts {
		var next *ColoredLayout
		if i+1 < len(layouts) {
			next = layouts[i+1]
		}
		dim = e.Render(s, cl, next, dim, first, next == nil)
		first = false
	}
	return dim
}

func TestRender_NoGaps(t *testing.T) {
	s := testSettings()
	s.Geometry.Gaps = false
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	layouts := layoutsFor(t, e, dummyNotifications(3))
	dim := e.CalculateDimensions(layouts)
	dim = renderAll(e, &recordingSurface{bounds: image.Rect(0, 0, 1, 1)}, layouts, dim)

	assert.Equal(t, expectedHeight(s, 3), dim.Y)
}

func TestRender_Gaps(t *testing.T) {
	s := testSettings()
	s.Geometry.Gaps = true
	s.Geometry.GapSize = 27
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	layouts := layoutsFor(t, e, dummyNotifications(3))
	dim := e.CalculateDimensions(layouts)
	dim = renderAll(e, &recordingSurface{bounds: image.Rect(0, 0, 1, 1)}, layouts, dim)

	assert.Equal(t, expectedHeight(s, 3), dim.Y)
}

func TestRender_CursorMatchesDimensions(t *testing.T) {
	for _, gaps := range []bool{false, true} {
		for n := 1; n <= 5; n++ {
			s := testSettings()
			s.Geometry.Gaps = gaps
			s.Geometry.GapSize = 11
			e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

			layouts := layoutsFor(t, e, dummyNotifications(n))
			dim := e.CalculateDimensions(layouts)
			end := e.RenderStack(nil, layouts, dim)
			assert.Equal(t, dim.H, end.Y, "gaps=%v n=%d", gaps, n)
			assert.Equal(t, dim.W, end.W)
		}
	}
}

func TestRender_Advance(t *testing.T) {
	const h, f, sep, gap = 10, 3, 2, 27

	tests := []struct {
		name        string
		gaps        bool
		first, last bool
		want        int
	}{
		{"gapless only", false, true, true, f + h + f},
		{"gapless first", false, true, false, f + h + sep},
		{"gapless middle", false, false, false, h + sep},
		{"gapless last", false, false, true, h + f},
		{"gapped only", true, true, true, f + h + f},
		{"gapped first", true, true, false, f + h + f + gap},
		{"gapped middle", true, false, false, f + h + f + gap},
		{"gapped last", true, false, true, f + h + f},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			s.Geometry.Gaps = tt.gaps
			s.Geometry.GapSize = gap
			e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

			cl, err := e.LayoutFromNotification(testNotification("1"))
			require.NoError(t, err)
			defer cl.Release()

			start := Dimensions{Y: 100, W: 300}
			got := e.Render(&recordingSurface{}, cl, nil, start, tt.first, tt.last)
			assert.Equal(t, 100+tt.want, got.Y)
			assert.Equal(t, start.X, got.X)
		})
	}
}

func TestRender_IndependentOfSurface(t *testing.T) {
	s := testSettings()
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	layouts := layoutsFor(t, e, dummyNotifications(3))
	dim := e.CalculateDimensions(layouts)

	tiny := renderAll(e, &recordingSurface{bounds: image.Rect(0, 0, 1, 1)}, layouts, dim)
	full := renderAll(e, &recordingSurface{bounds: image.Rect(0, 0, dim.W, dim.H)}, layouts, dim)
	none := renderAll(e, nil, layouts, dim)

	assert.Equal(t, tiny, full)
	assert.Equal(t, tiny, none)
}

func TestRender_RestartFromSavedCursor(t *testing.T) {
	s := testSettings()
	s.Geometry.Gaps = true
	s.Geometry.GapSize = 4
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	layouts := layoutsFor(t, e, dummyNotifications(4))
	dim := e.CalculateDimensions(layouts)

	saved := e.Render(nil, layouts[0], layouts[1], dim, true, false)
	saved = e.Render(nil, layouts[1], layouts[2], saved, false, false)

	resumed := e.Render(nil, layouts[2], layouts[3], saved, false, false)
	resumed = e.Render(nil, layouts[3], nil, resumed, false, true)

	assert.Equal(t, e.RenderStack(nil, layouts, dim), resumed)
}

func TestRender_PaintsFrameAndBackground(t *testing.T) {
	s := testSettings()
	s.Geometry.CornerRadius = 4
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	layouts := layoutsFor(t, e, dummyNotifications(2))
	dim := e.CalculateDimensions(layouts)
	surface := &recordingSurface{bounds: image.Rect(0, 0, dim.W, dim.H)}
	e.RenderStack(surface, layouts, dim)

	require.NotEmpty(t, surface.fills)
	first := surface.fills[0]
	assert.Equal(t, image.Rect(0, 0, dim.W, 3+10), first.r)
	assert.Equal(t, layouts[0].Colors.Frame, first.c)
	assert.Equal(t, CornersTop, first.corners)
	assert.Equal(t, 4, first.radius)

	bg := surface.fills[1]
	assert.Equal(t, image.Rect(3, 3, dim.W-3, 13), bg.r)
	assert.Equal(t, layouts[0].Colors.Background, bg.c)
	assert.Equal(t, 1, bg.radius)

	// Separator below the first item
	sep := surface.fills[3]
	assert.Equal(t, image.Rect(3, 13, dim.W-3, 15), sep.r)

	assert.Len(t, surface.texts, 2)
}

func TestRender_GappedCorners(t *testing.T) {
	s := testSettings()
	s.Geometry.Gaps = true
	s.Geometry.CornerRadius = 4
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	layouts := layoutsFor(t, e, dummyNotifications(2))
	dim := e.CalculateDimensions(layouts)
	surface := &recordingSurface{bounds: image.Rect(0, 0, dim.W, dim.H)}
	e.RenderStack(surface, layouts, dim)

	for _, f := range surface.fills {
		assert.Equal(t, CornersAll, f.corners)
	}
}

func TestSeparatorColor(t *testing.T) {
	s := testSettings()
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	normal := testNotification("n")
	critical := testNotification("c")
	critical.Urgency = model.UrgencyCritical
	layouts := layoutsFor(t, e, []*model.Notification{normal, critical})

	// Frame mode: the more urgent neighbour wins
	assert.Equal(t, layouts[1].Colors.Frame, e.separatorColor(layouts[0], layouts[1]))
	assert.Equal(t, layouts[1].Colors.Frame, e.separatorColor(layouts[1], layouts[0]))
	assert.Equal(t, layouts[0].Colors.Frame, e.separatorColor(layouts[0], nil))

	s.Colors.Separator = config.SeparatorForeground
	e = newTestEngine(s, &fakeShaper{w: 50, h: 8})
	assert.Equal(t, layouts[0].Colors.Foreground, e.separatorColor(layouts[0], layouts[1]))

	s.Colors.Separator = "#123456"
	e = newTestEngine(s, &fakeShaper{w: 50, h: 8})
	assert.Equal(t, color.NRGBA{0x12, 0x34, 0x56, 0xff}, e.separatorColor(layouts[0], layouts[1]))

	s.Colors.Separator = config.SeparatorAuto
	e = newTestEngine(s, &fakeShaper{w: 50, h: 8})
	auto := e.separatorColor(layouts[0], layouts[1])
	assert.NotEqual(t, layouts[0].Colors.Foreground, auto)
	assert.NotEqual(t, layouts[0].Colors.Background, auto)
}

func TestPlacements_Gapless(t *testing.T) {
	s := testSettings()
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	layouts := layoutsFor(t, e, dummyNotifications(3))
	dim := e.CalculateDimensions(layouts)
	ps := e.Placements(layouts, dim)
	require.Len(t, ps, 3)

	assert.Equal(t, 0, ps[0].Box.Min.Y)
	for i := 0; i < 2; i++ {
		assert.Equal(t, ps[i].Box.Max.Y, ps[i].Separator.Min.Y)
		assert.Equal(t, s.Geometry.SeparatorHeight, ps[i].Separator.Dy())
		assert.Equal(t, ps[i].Separator.Max.Y, ps[i+1].Box.Min.Y)
	}
	assert.True(t, ps[2].Separator.Empty())
	assert.Equal(t, dim.H, ps[2].Box.Max.Y)
}

func TestPlacements_Gapped(t *testing.T) {
	s := testSettings()
	s.Geometry.Gaps = true
	s.Geometry.GapSize = 27
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	layouts := layoutsFor(t, e, dummyNotifications(3))
	dim := e.CalculateDimensions(layouts)
	ps := e.Placements(layouts, dim)
	require.Len(t, ps, 3)

	for i, p := range ps {
		assert.Equal(t, 10+2*3, p.Box.Dy())
		assert.True(t, p.Separator.Empty())
		assert.Equal(t, p.Box.Min.Add(image.Pt(3+8, 3)), p.Content.Min)
		if i > 0 {
			assert.Equal(t, ps[i-1].Box.Max.Y+27, p.Box.Min.Y)
		}
	}
	assert.Equal(t, dim.H, ps[2].Box.Max.Y)
}

func TestPlacements_IconSides(t *testing.T) {
	s := testSettings()
	s.Geometry.Height = 0
	s.Geometry.Padding = 2
	s.Geometry.TextIconPadding = 5
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	left := testNotificationWithIcon("left")
	right := testNotificationWithIcon("right")
	right.IconPosition = model.IconRight

	layouts := layoutsFor(t, e, []*model.Notification{left, right})
	ps := e.Placements(layouts, e.CalculateDimensions(layouts))

	assert.Equal(t, ps[0].Content.Min.X, ps[0].Icon.Min.X)
	assert.Equal(t, ps[0].Icon.Max.X+5, ps[0].Text.Min.X)
	assert.Equal(t, 16, ps[0].Icon.Dx())

	assert.Equal(t, ps[1].Content.Max.X, ps[1].Icon.Max.X)
	assert.Equal(t, ps[1].Icon.Min.X-5, ps[1].Text.Max.X)
}

func TestPlacements_Progress(t *testing.T) {
	s := testSettings()
	s.Geometry.Height = 0
	s.Geometry.Padding = 4
	s.ProgressBar.Height = 6
	s.ProgressBar.MinWidth = 50
	s.ProgressBar.MaxWidth = 100
	e := newTestEngine(s, &fakeShaper{w: 50, h: 8})

	n := testNotification("1")
	n.Progress = 50
	layouts := layoutsFor(t, e, []*model.Notification{n})
	ps := e.Placements(layouts, e.CalculateDimensions(layouts))

	p := ps[0]
	assert.Equal(t, 6, p.Progress.Dy())
	assert.Equal(t, 100, p.Progress.Dx())
	assert.Equal(t, p.Content.Max.Y, p.Progress.Max.Y)
	assert.LessOrEqual(t, p.Text.Max.Y, p.Progress.Min.Y-4)
}
