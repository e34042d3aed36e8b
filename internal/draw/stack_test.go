package draw_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/icon"
	"github.com/jmylchreest/stackdraw/internal/model"
	"github.com/jmylchreest/stackdraw/internal/surface"
	"github.com/jmylchreest/stackdraw/internal/text"
)

func newStackEngine(t *testing.T, s *config.Settings) *draw.Engine {
	t.Helper()
	shaper, err := text.NewShaperFromConfig(s.Text, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shaper.Close() })

	return draw.NewEngine(s, surface.NewHeadless(1), shaper, icon.NewSource(s.Icons, nil), nil)
}

func notifications(n int) []*model.Notification {
	ns := make([]*model.Notification, n)
	for i := range ns {
		ns[i] = &model.Notification{
			ID:        string(rune('a' + i)),
			Summary:   "Summary",
			Body:      "Body text",
			Timestamp: 1,
			Urgency:   model.UrgencyNormal,
			Progress:  model.NoProgress,
		}
	}
	return ns
}

func rgbaOf(t *testing.T, hex string) color.RGBA {
	t.Helper()
	c, err := config.ParseColor(hex)
	require.NoError(t, err)
	r, g, b, a := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
}

func TestStack_GaplessPixels(t *testing.T) {
	s := config.DefaultSettings()
	s.Behavior.ShowAgeThreshold = 0
	e := newStackEngine(t, s)

	frame, err := e.Draw(notifications(2))
	require.NoError(t, err)

	img := frame.Surface.(*surface.Image).RGBA()
	dim := frame.Dimensions
	assert.Equal(t, image.Rect(0, 0, dim.W, dim.H), img.Bounds())
	assert.Equal(t, dim.H, dim.Y)

	frameColor := rgbaOf(t, s.Normal.Frame)
	bgColor := rgbaOf(t, s.Normal.Background)

	assert.Equal(t, frameColor, img.RGBAAt(1, 1))
	assert.Equal(t, frameColor, img.RGBAAt(dim.W-2, dim.H-2))
	assert.Equal(t, bgColor, img.RGBAAt(dim.W-5, 5))

	// Separator row between the items uses the frame colour
	p := frame.Placements[0]
	assert.Equal(t, frameColor, img.RGBAAt(dim.W/2, p.Separator.Min.Y))
}

func TestStack_GappedLeavesGapTransparent(t *testing.T) {
	s := config.DefaultSettings()
	s.Behavior.ShowAgeThreshold = 0
	s.Geometry.Gaps = true
	s.Geometry.GapSize = 10
	e := newStackEngine(t, s)

	frame, err := e.Draw(notifications(2))
	require.NoError(t, err)

	img := frame.Surface.(*surface.Image).RGBA()
	gapY := frame.Placements[0].Box.Max.Y + 5
	assert.Equal(t, uint8(0), img.RGBAAt(frame.Dimensions.W/2, gapY).A)
	assert.Equal(t, frame.Dimensions.H, frame.Placements[1].Box.Max.Y)
}

func TestStack_TextIsPainted(t *testing.T) {
	s := config.DefaultSettings()
	s.Behavior.ShowAgeThreshold = 0
	e := newStackEngine(t, s)

	frame, err := e.Draw(notifications(1))
	require.NoError(t, err)

	img := frame.Surface.(*surface.Image).RGBA()
	bg := rgbaOf(t, s.Normal.Background)

	r := frame.Placements[0].Text
	require.False(t, r.Empty())

	painted := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) != bg {
				painted++
			}
		}
	}
	assert.Positive(t, painted)
}

func TestStack_ScaledOutput(t *testing.T) {
	s := config.DefaultSettings()
	s.Behavior.ShowAgeThreshold = 0

	shaper, err := text.NewShaperFromConfig(s.Text, nil)
	require.NoError(t, err)
	defer shaper.Close()

	one := draw.NewEngine(s, surface.NewHeadless(1), shaper, nil, nil)
	two := draw.NewEngine(s, surface.NewHeadless(2), shaper, nil, nil)

	f1, err := one.Draw(notifications(1))
	require.NoError(t, err)
	f2, err := two.Draw(notifications(1))
	require.NoError(t, err)

	assert.Equal(t, 2*f1.Dimensions.W, f2.Dimensions.W)
	assert.Greater(t, f2.Dimensions.H, f1.Dimensions.H)
}
