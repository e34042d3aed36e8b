// Package config handles loading, validating and scaling the stack layout settings.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "10s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Settings is the read-only configuration of one layout pass.
// Loaded from ~/.config/stackdraw/stackdraw.toml
type Settings struct {
	Geometry    GeometryConfig    `toml:"geometry"`
	Text        TextConfig        `toml:"text"`
	Icons       IconConfig        `toml:"icons"`
	ProgressBar ProgressBarConfig `toml:"progress_bar"`
	Behavior    BehaviorConfig    `toml:"behavior"`
	Colors      ColorsConfig      `toml:"colors"`
	Low         UrgencyConfig     `toml:"urgency_low"`
	Normal      UrgencyConfig     `toml:"urgency_normal"`
	Critical    UrgencyConfig     `toml:"urgency_critical"`

	// Scale overrides the output scale factor. 0 asks the output.
	Scale float64 `toml:"scale"`
}

// GeometryConfig contains the stack geometry. All values are logical pixels.
type GeometryConfig struct {
	MinWidth          int  `toml:"min_width"`          // Lower bound of the stack width (frame included)
	MaxWidth          int  `toml:"max_width"`          // Upper bound of the stack width (frame included)
	Height            int  `toml:"height"`             // Minimum item height, 0 = from content
	MaxHeight         int  `toml:"max_height"`         // Maximum item height, 0 = unlimited
	FrameWidth        int  `toml:"frame_width"`        // Frame border thickness
	SeparatorHeight   int  `toml:"separator_height"`   // Divider between items (gapless mode)
	GapSize           int  `toml:"gap_size"`           // Blank space between items (gapped mode)
	Gaps              bool `toml:"gaps"`               // Selects gapped mode
	Padding           int  `toml:"padding"`            // Vertical padding inside an item
	HorizontalPadding int  `toml:"horizontal_padding"` // Horizontal padding inside an item
	TextIconPadding   int  `toml:"text_icon_padding"`  // Space between icon and text
	CornerRadius      int  `toml:"corner_radius"`
}

// TextConfig contains text shaping settings.
type TextConfig struct {
	Font              string  `toml:"font"`      // Path to a TTF/OTF file, empty = Go fonts
	FontSize          float64 `toml:"font_size"` // Points
	DPI               float64 `toml:"dpi"`
	LineSpacing       int     `toml:"line_spacing"`
	Alignment         string  `toml:"alignment"`          // left, center, right
	VerticalAlignment string  `toml:"vertical_alignment"` // top, center, bottom
	Ellipsize         string  `toml:"ellipsize"`          // start, middle, end, none
	WordWrap          bool    `toml:"word_wrap"`
	Markup            string  `toml:"markup"` // full, strip, no
	Format            string  `toml:"format"`
}

// IconConfig contains icon placement settings.
type IconConfig struct {
	Position string   `toml:"position"` // left, right, off
	MinSize  int      `toml:"min_size"`
	MaxSize  int      `toml:"max_size"` // 0 = unlimited
	Paths    []string `toml:"paths"`    // Directories searched for named icons
}

// ProgressBarConfig contains progress bar settings.
type ProgressBarConfig struct {
	Enabled    bool `toml:"enabled"`
	Height     int  `toml:"height"`
	FrameWidth int  `toml:"frame_width"`
	MinWidth   int  `toml:"min_width"`
	MaxWidth   int  `toml:"max_width"`
}

// BehaviorConfig contains stack behaviour settings.
type BehaviorConfig struct {
	ShowAgeThreshold   Duration `toml:"show_age_threshold"` // 0 disables the age suffix
	StackDuplicates    bool     `toml:"stack_duplicates"`
	HideDuplicateCount bool     `toml:"hide_duplicate_count"`
	Sort               bool     `toml:"sort"`               // Critical first, then oldest first
	NotificationLimit  int      `toml:"notification_limit"` // 0 = unlimited
}

// ColorsConfig contains colours shared by all urgencies.
type ColorsConfig struct {
	Separator string `toml:"separator"` // frame, foreground, auto or #rrggbb
}

// UrgencyConfig contains per-urgency colours and timeout.
type UrgencyConfig struct {
	Background string   `toml:"background"`
	Foreground string   `toml:"foreground"`
	Frame      string   `toml:"frame"`
	Highlight  string   `toml:"highlight"`
	Timeout    Duration `toml:"timeout"` // 0 = never expire
}

// Alignment values.
const (
	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"

	AlignTop    = "top"
	AlignBottom = "bottom"
)

// Ellipsize values.
const (
	EllipsizeStart  = "start"
	EllipsizeMiddle = "middle"
	EllipsizeEnd    = "end"
	EllipsizeNone   = "none"
)

// Separator colour modes.
const (
	SeparatorFrame      = "frame"
	SeparatorForeground = "foreground"
	SeparatorAuto       = "auto"
)

// DefaultFormat is the default notification format string.
const DefaultFormat = "<b>%s</b>\n%b"

// Configuration errors.
var (
	ErrNegativeSize = errors.New("size must not be negative")
	ErrInvalidRange = errors.New("minimum exceeds maximum")
	ErrInvalidValue = errors.New("invalid value")
)

// DefaultSettings returns Settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Geometry: GeometryConfig{
			MinWidth:          300,
			MaxWidth:          300,
			Height:            0,
			MaxHeight:         300,
			FrameWidth:        3,
			SeparatorHeight:   2,
			GapSize:           0,
			Gaps:              false,
			Padding:           8,
			HorizontalPadding: 8,
			TextIconPadding:   0,
			CornerRadius:      0,
		},
		Text: TextConfig{
			FontSize:          10,
			DPI:               96,
			LineSpacing:       0,
			Alignment:         AlignLeft,
			VerticalAlignment: AlignCenter,
			Ellipsize:         EllipsizeMiddle,
			WordWrap:          true,
			Markup:            "full",
			Format:            DefaultFormat,
		},
		Icons: IconConfig{
			Position: "left",
			MinSize:  32,
			MaxSize:  128,
			Paths:    []string{"/usr/share/icons/Adwaita/48x48/status", "/usr/share/icons/Adwaita/48x48/devices"},
		},
		ProgressBar: ProgressBarConfig{
			Enabled:    true,
			Height:     10,
			FrameWidth: 1,
			MinWidth:   150,
			MaxWidth:   300,
		},
		Behavior: BehaviorConfig{
			ShowAgeThreshold:   Duration(60 * time.Second),
			StackDuplicates:    true,
			HideDuplicateCount: false,
			Sort:               true,
			NotificationLimit:  20,
		},
		Colors: ColorsConfig{
			Separator: SeparatorFrame,
		},
		Low: UrgencyConfig{
			Background: "#222222",
			Foreground: "#888888",
			Frame:      "#888888",
			Highlight:  "#1745d1",
			Timeout:    Duration(10 * time.Second),
		},
		Normal: UrgencyConfig{
			Background: "#285577",
			Foreground: "#ffffff",
			Frame:      "#888888",
			Highlight:  "#1745d1",
			Timeout:    Duration(10 * time.Second),
		},
		Critical: UrgencyConfig{
			Background: "#900000",
			Foreground: "#ffffff",
			Frame:      "#ff0000",
			Highlight:  "#ff0000",
			Timeout:    Duration(0),
		},
	}
}

// SettingsPath returns the path to the settings file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func SettingsPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "stackdraw", "stackdraw.toml")
}

// Load loads settings from the specified path.
// If path is empty, uses the default settings path.
// Returns default settings if the file doesn't exist.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = SettingsPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse overlays TOML data onto the defaults and validates the result.
func Parse(data []byte) (*Settings, error) {
	s := DefaultSettings()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return s, nil
}

// Save writes the settings to the specified path.
// Creates parent directories if needed.
func (s *Settings) Save(path string) error {
	if path == "" {
		path = SettingsPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks that the settings are usable by the layout engine.
// The engine assumes every geometric input is non-negative.
func (s *Settings) Validate() error {
	g := s.Geometry
	sizes := map[string]int{
		"min_width":               g.MinWidth,
		"max_width":               g.MaxWidth,
		"height":                  g.Height,
		"max_height":              g.MaxHeight,
		"frame_width":             g.FrameWidth,
		"separator_height":        g.SeparatorHeight,
		"gap_size":                g.GapSize,
		"padding":                 g.Padding,
		"horizontal_padding":      g.HorizontalPadding,
		"text_icon_padding":       g.TextIconPadding,
		"corner_radius":           g.CornerRadius,
		"line_spacing":            s.Text.LineSpacing,
		"icons.min_size":          s.Icons.MinSize,
		"icons.max_size":          s.Icons.MaxSize,
		"progress_bar.height":     s.ProgressBar.Height,
		"progress_bar.frame":      s.ProgressBar.FrameWidth,
		"progress_bar.min_width":  s.ProgressBar.MinWidth,
		"progress_bar.max_width":  s.ProgressBar.MaxWidth,
		"notification_limit":      s.Behavior.NotificationLimit,
	}
	for name, v := range sizes {
		if v < 0 {
			return fmt.Errorf("%s is %d: %w", name, v, ErrNegativeSize)
		}
	}

	if g.MaxWidth == 0 {
		return fmt.Errorf("max_width must be greater than 0: %w", ErrInvalidValue)
	}
	if g.MinWidth > g.MaxWidth {
		return fmt.Errorf("min_width %d > max_width %d: %w", g.MinWidth, g.MaxWidth, ErrInvalidRange)
	}
	if g.MaxHeight > 0 && g.Height > g.MaxHeight {
		return fmt.Errorf("height %d > max_height %d: %w", g.Height, g.MaxHeight, ErrInvalidRange)
	}
	if 2*g.FrameWidth+2*g.HorizontalPadding >= g.MaxWidth {
		return fmt.Errorf("frame and padding leave no room for text within max_width %d: %w", g.MaxWidth, ErrInvalidRange)
	}
	if s.Icons.MaxSize > 0 && s.Icons.MinSize > s.Icons.MaxSize {
		return fmt.Errorf("icons.min_size %d > icons.max_size %d: %w", s.Icons.MinSize, s.Icons.MaxSize, ErrInvalidRange)
	}
	if s.ProgressBar.MaxWidth > 0 && s.ProgressBar.MinWidth > s.ProgressBar.MaxWidth {
		return fmt.Errorf("progress_bar.min_width > progress_bar.max_width: %w", ErrInvalidRange)
	}
	if s.Text.FontSize <= 0 || s.Text.DPI <= 0 {
		return fmt.Errorf("font_size and dpi must be positive: %w", ErrInvalidValue)
	}
	if s.Scale < 0 || math.IsNaN(s.Scale) || math.IsInf(s.Scale, 0) {
		return fmt.Errorf("scale %v: %w", s.Scale, ErrInvalidValue)
	}
	if s.Behavior.ShowAgeThreshold < 0 {
		return fmt.Errorf("show_age_threshold must not be negative: %w", ErrInvalidValue)
	}

	enums := []struct {
		name  string
		value string
		valid []string
	}{
		{"alignment", s.Text.Alignment, []string{AlignLeft, AlignCenter, AlignRight}},
		{"vertical_alignment", s.Text.VerticalAlignment, []string{AlignTop, AlignCenter, AlignBottom}},
		{"ellipsize", s.Text.Ellipsize, []string{EllipsizeStart, EllipsizeMiddle, EllipsizeEnd, EllipsizeNone}},
		{"markup", s.Text.Markup, []string{"full", "strip", "no"}},
		{"icons.position", s.Icons.Position, []string{"left", "right", "off"}},
	}
	for _, e := range enums {
		if !contains(e.valid, strings.ToLower(e.value)) {
			return fmt.Errorf("%s %q, must be one of %v: %w", e.name, e.value, e.valid, ErrInvalidValue)
		}
	}

	switch strings.ToLower(s.Colors.Separator) {
	case SeparatorFrame, SeparatorForeground, SeparatorAuto:
	default:
		if _, err := ParseColor(s.Colors.Separator); err != nil {
			return fmt.Errorf("colors.separator: %w", err)
		}
	}

	for name, u := range map[string]UrgencyConfig{"urgency_low": s.Low, "urgency_normal": s.Normal, "urgency_critical": s.Critical} {
		for field, value := range map[string]string{
			"background": u.Background,
			"foreground": u.Foreground,
			"frame":      u.Frame,
			"highlight":  u.Highlight,
		} {
			if _, err := ParseColor(value); err != nil {
				return fmt.Errorf("%s.%s: %w", name, field, err)
			}
		}
		if u.Timeout < 0 {
			return fmt.Errorf("%s.timeout must not be negative: %w", name, ErrInvalidValue)
		}
	}

	return nil
}

// Urgency returns the settings section for the given urgency level.
func (s *Settings) Urgency(level int) UrgencyConfig {
	switch level {
	case 0:
		return s.Low
	case 2:
		return s.Critical
	default:
		return s.Normal
	}
}

// Scaled returns a copy with every pixel quantity multiplied by f.
// The receiver is never modified.
func (s *Settings) Scaled(f float64) *Settings {
	c := *s
	c.Icons.Paths = append([]string(nil), s.Icons.Paths...)
	if f == 1 || f <= 0 {
		return &c
	}

	scale := func(v int) int { return int(math.Round(float64(v) * f)) }
	g := &c.Geometry
	g.MinWidth = scale(g.MinWidth)
	g.MaxWidth = scale(g.MaxWidth)
	g.Height = scale(g.Height)
	g.MaxHeight = scale(g.MaxHeight)
	g.FrameWidth = scale(g.FrameWidth)
	g.SeparatorHeight = scale(g.SeparatorHeight)
	g.GapSize = scale(g.GapSize)
	g.Padding = scale(g.Padding)
	g.HorizontalPadding = scale(g.HorizontalPadding)
	g.TextIconPadding = scale(g.TextIconPadding)
	g.CornerRadius = scale(g.CornerRadius)

	c.Text.FontSize *= f
	c.Text.LineSpacing = scale(c.Text.LineSpacing)
	c.Icons.MinSize = scale(c.Icons.MinSize)
	c.Icons.MaxSize = scale(c.Icons.MaxSize)

	p := &c.ProgressBar
	p.Height = scale(p.Height)
	p.FrameWidth = scale(p.FrameWidth)
	p.MinWidth = scale(p.MinWidth)
	p.MaxWidth = scale(p.MaxWidth)

	return &c
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
