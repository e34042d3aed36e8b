package preview

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/model"
	"github.com/jmylchreest/stackdraw/internal/surface"
	"github.com/jmylchreest/stackdraw/internal/text"
)

func newEngine(t *testing.T, s *config.Settings, shaper draw.TextShaper) *draw.Engine {
	t.Helper()
	if shaper == nil {
		real, err := text.NewShaperFromConfig(s.Text, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = real.Close() })
		shaper = real
	}
	return draw.NewEngine(s, surface.NewHeadless(1), shaper, nil, nil)
}

func stack() []*model.Notification {
	return []*model.Notification{
		{ID: "1", AppName: "mail", Summary: "New message", Body: "from <b>alice</b>", Timestamp: 1, Progress: model.NoProgress},
		{ID: "2", AppName: "backup", Summary: "Backup", Timestamp: 1, Progress: 40, Urgency: model.UrgencyLow},
	}
}

func TestRender(t *testing.T) {
	s := config.DefaultSettings()
	s.Behavior.ShowAgeThreshold = 0

	out, err := Render(newEngine(t, s, nil), stack(), DefaultOptions())
	require.NoError(t, err)

	assert.Contains(t, out, "New message")
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, " 40%")

	lines := strings.Split(out, "\n")
	footer := lines[len(lines)-1]
	assert.Contains(t, footer, "300x")
	assert.Contains(t, footer, "px, 2 item(s)")
}

func TestRender_WidthFollowsPixels(t *testing.T) {
	s := config.DefaultSettings()
	s.Behavior.ShowAgeThreshold = 0
	s.Geometry.MinWidth = 320
	s.Geometry.MaxWidth = 320

	out, err := Render(newEngine(t, s, nil), stack()[:1], DefaultOptions())
	require.NoError(t, err)

	first := strings.Split(out, "\n")[0]
	assert.Equal(t, 320/8, lipgloss.Width(first))
}

func TestRender_Gaps(t *testing.T) {
	s := config.DefaultSettings()
	s.Behavior.ShowAgeThreshold = 0

	gapless, err := Render(newEngine(t, s, nil), stack(), DefaultOptions())
	require.NoError(t, err)

	s.Geometry.Gaps = true
	s.Geometry.GapSize = 32
	gapped, err := Render(newEngine(t, s, nil), stack(), DefaultOptions())
	require.NoError(t, err)

	assert.Greater(t, strings.Count(gapped, "\n"), strings.Count(gapless, "\n"))
}

type failingShaper struct{}

func (failingShaper) Shape(string, draw.TextStyle) (draw.TextLayout, error) {
	return nil, errors.New("no fonts")
}

func TestRender_ReportsDropped(t *testing.T) {
	s := config.DefaultSettings()

	out, err := Render(newEngine(t, s, failingShaper{}), stack(), DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, out, "0 item(s)")
	assert.Contains(t, out, "2 dropped")
}

func TestCells(t *testing.T) {
	assert.Equal(t, 1, cells(0, 8))
	assert.Equal(t, 1, cells(3, 8))
	assert.Equal(t, 1, cells(11, 8))
	assert.Equal(t, 2, cells(12, 8))
	assert.Equal(t, 40, cells(320, 8))
}
