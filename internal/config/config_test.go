package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, 300, s.Geometry.MaxWidth)
	assert.Equal(t, 0, s.Geometry.Height)
	assert.Equal(t, 3, s.Geometry.FrameWidth)
	assert.Equal(t, 2, s.Geometry.SeparatorHeight)
	assert.False(t, s.Geometry.Gaps)
	assert.Equal(t, "left", s.Icons.Position)
	assert.Equal(t, DefaultFormat, s.Text.Format)
	assert.Equal(t, SeparatorFrame, s.Colors.Separator)
	assert.Equal(t, time.Duration(0), s.Critical.Timeout.Duration())
	require.NoError(t, s.Validate())
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	s, err := Load("/nonexistent/path/stackdraw.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoad_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stackdraw.toml")

	content := `
scale = 2.0

[geometry]
min_width = 200
max_width = 400
height = 10
frame_width = 1
gap_size = 27
gaps = true

[text]
alignment = "center"
markup = "strip"

[icons]
position = "right"
paths = ["/tmp/icons"]

[behavior]
show_age_threshold = "2m"
notification_limit = 5

[colors]
separator = "#112233"

[urgency_critical]
background = "#000000"
timeout = "5000"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.0, s.Scale)
	assert.Equal(t, 200, s.Geometry.MinWidth)
	assert.Equal(t, 400, s.Geometry.MaxWidth)
	assert.Equal(t, 10, s.Geometry.Height)
	assert.Equal(t, 1, s.Geometry.FrameWidth)
	assert.Equal(t, 27, s.Geometry.GapSize)
	assert.True(t, s.Geometry.Gaps)
	assert.Equal(t, "center", s.Text.Alignment)
	assert.Equal(t, "strip", s.Text.Markup)
	assert.Equal(t, "right", s.Icons.Position)
	assert.Equal(t, []string{"/tmp/icons"}, s.Icons.Paths)
	assert.Equal(t, 2*time.Minute, s.Behavior.ShowAgeThreshold.Duration())
	assert.Equal(t, 5, s.Behavior.NotificationLimit)
	assert.Equal(t, "#112233", s.Colors.Separator)
	assert.Equal(t, "#000000", s.Critical.Background)
	assert.Equal(t, 5*time.Second, s.Critical.Timeout.Duration())

	// Untouched fields keep defaults
	assert.Equal(t, 2, s.Geometry.SeparatorHeight)
	assert.Equal(t, "#285577", s.Normal.Background)
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stackdraw.toml")
	require.NoError(t, os.WriteFile(path, []byte(`this is not valid toml [`), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stackdraw.toml")
	require.NoError(t, os.WriteFile(path, []byte("[geometry]\nframe_width = -1\n"), 0644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNegativeSize)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr error
	}{
		{"defaults", func(s *Settings) {}, nil},
		{"negative gap", func(s *Settings) { s.Geometry.GapSize = -3 }, ErrNegativeSize},
		{"negative separator", func(s *Settings) { s.Geometry.SeparatorHeight = -1 }, ErrNegativeSize},
		{"zero max width", func(s *Settings) { s.Geometry.MinWidth = 0; s.Geometry.MaxWidth = 0 }, ErrInvalidValue},
		{"min width above max", func(s *Settings) { s.Geometry.MinWidth = 500 }, ErrInvalidRange},
		{"height above max height", func(s *Settings) { s.Geometry.Height = 400 }, ErrInvalidRange},
		{"frame eats width", func(s *Settings) { s.Geometry.FrameWidth = 150 }, ErrInvalidRange},
		{"icon range", func(s *Settings) { s.Icons.MinSize = 200 }, ErrInvalidRange},
		{"bad alignment", func(s *Settings) { s.Text.Alignment = "justify" }, ErrInvalidValue},
		{"bad markup", func(s *Settings) { s.Text.Markup = "html" }, ErrInvalidValue},
		{"bad icon position", func(s *Settings) { s.Icons.Position = "top" }, ErrInvalidValue},
		{"bad separator color", func(s *Settings) { s.Colors.Separator = "blue" }, ErrInvalidValue},
		{"bad urgency color", func(s *Settings) { s.Low.Frame = "#zzz" }, ErrInvalidValue},
		{"zero font size", func(s *Settings) { s.Text.FontSize = 0 }, ErrInvalidValue},
		{"negative scale", func(s *Settings) { s.Scale = -1 }, ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			err := s.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettings_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "stackdraw.toml")

	s := DefaultSettings()
	s.Geometry.Gaps = true
	s.Geometry.GapSize = 12
	s.Behavior.ShowAgeThreshold = Duration(90 * time.Second)

	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Geometry.Gaps)
	assert.Equal(t, 12, loaded.Geometry.GapSize)
	assert.Equal(t, 90*time.Second, loaded.Behavior.ShowAgeThreshold.Duration())
}

func TestSettings_Scaled(t *testing.T) {
	s := DefaultSettings()
	s.Geometry.GapSize = 5

	scaled := s.Scaled(2)
	assert.Equal(t, 600, scaled.Geometry.MaxWidth)
	assert.Equal(t, 6, scaled.Geometry.FrameWidth)
	assert.Equal(t, 10, scaled.Geometry.GapSize)
	assert.Equal(t, 20.0, scaled.Text.FontSize)
	assert.Equal(t, 256, scaled.Icons.MaxSize)

	// Receiver untouched
	assert.Equal(t, 300, s.Geometry.MaxWidth)
	assert.Equal(t, 10.0, s.Text.FontSize)

	same := s.Scaled(1)
	assert.Equal(t, s.Geometry, same.Geometry)
	assert.NotSame(t, s, same)
}

func TestSettings_Urgency(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, s.Low, s.Urgency(0))
	assert.Equal(t, s.Normal, s.Urgency(1))
	assert.Equal(t, s.Critical, s.Urgency(2))
	assert.Equal(t, s.Normal, s.Urgency(9))
}

func TestSettingsPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/stackdraw/stackdraw.toml", SettingsPath())
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ffffff", color.NRGBA{255, 255, 255, 255}, false},
		{"#285577", color.NRGBA{0x28, 0x55, 0x77, 255}, false},
		{"#f00", color.NRGBA{255, 0, 0, 255}, false},
		{"#00000080", color.NRGBA{0, 0, 0, 0x80}, false},
		{"ffffff", color.NRGBA{}, true},
		{"#gggggg", color.NRGBA{}, true},
		{"#0000008g", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidValue)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlendColor(t *testing.T) {
	black := color.NRGBA{0, 0, 0, 255}
	white := color.NRGBA{255, 255, 255, 200}

	assert.Equal(t, black, BlendColor(black, white, 0))
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, BlendColor(black, white, 1))
	mid := BlendColor(black, white, 0.5)
	assert.Greater(t, mid.R, uint8(0))
	assert.Less(t, mid.R, uint8(255))
	assert.Equal(t, uint8(255), mid.A)
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, "#285577", HexColor(color.NRGBA{0x28, 0x55, 0x77, 255}))
}
