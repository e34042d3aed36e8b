// Package output provides formatters for stack geometry reports.
package output

import (
	"fmt"
	"image"
	"io"

	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// Formatter writes a geometry report.
type Formatter interface {
	Format(w io.Writer, r *Report) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatPlain FormatType = "plain"
	FormatLines FormatType = "lines"
)

// NewFormatter creates a formatter for the named format. An empty format
// means plain.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts), nil
	case FormatYAML:
		return NewYAMLFormatter(opts), nil
	case FormatLines:
		return NewLinesFormatter(opts), nil
	case FormatPlain, "":
		return NewPlainFormatter(opts)
	}
	return nil, fmt.Errorf("unknown format %q (use plain, lines, json or yaml)", format)
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template   string // Per-item text/template for plain format; fields of Item plus Index and Age
	ShowTime   bool   // Show relative time
	BodyMaxLen int    // Maximum body length (0 = unlimited)
	Separator  string // Field separator for lines format
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowTime:   true,
		BodyMaxLen: 60,
		Separator:  " | ",
	}
}

// Rect is a rectangle as x, y, width and height.
type Rect struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// NewRect converts an image rectangle. Empty rectangles become the zero Rect.
func NewRect(r image.Rectangle) Rect {
	if r.Empty() {
		return Rect{}
	}
	return Rect{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// IsZero reports whether the rectangle is empty. Used by yaml omitempty.
func (r Rect) IsZero() bool {
	return r.W == 0 || r.H == 0
}

// Item is the geometry of one rendered notification.
type Item struct {
	ID        string `json:"id" yaml:"id"`
	AppName   string `json:"app_name" yaml:"app_name"`
	Summary   string `json:"summary" yaml:"summary"`
	Body      string `json:"body,omitempty" yaml:"body,omitempty"`
	Urgency   string `json:"urgency" yaml:"urgency"`
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
	Box       Rect   `json:"box" yaml:"box"`
	Content   Rect   `json:"content" yaml:"content"`
	Text      Rect   `json:"text" yaml:"text"`
	Icon      *Rect  `json:"icon,omitempty" yaml:"icon,omitempty"`
	Separator *Rect  `json:"separator,omitempty" yaml:"separator,omitempty"`
	Progress  *Rect  `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Report describes a laid out stack.
type Report struct {
	Width        int      `json:"width" yaml:"width"`
	Height       int      `json:"height" yaml:"height"`
	CornerRadius int      `json:"corner_radius" yaml:"corner_radius"`
	Scale        float64  `json:"scale" yaml:"scale"`
	Items        []Item   `json:"items" yaml:"items"`
	Dropped      []string `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// NewReport builds a report from a drawn frame and the notifications it was drawn from.
func NewReport(frame *draw.Frame, notifications []*model.Notification, scale float64) *Report {
	byID := make(map[string]*model.Notification, len(notifications))
	for _, n := range notifications {
		byID[n.ID] = n
	}

	r := &Report{
		Width:        frame.Dimensions.W,
		Height:       frame.Dimensions.H,
		CornerRadius: frame.Dimensions.CornerRadius,
		Scale:        scale,
		Items:        make([]Item, 0, len(frame.Placements)),
	}

	for _, p := range frame.Placements {
		item := Item{
			ID:        p.ID,
			Box:       NewRect(p.Box),
			Content:   NewRect(p.Content),
			Text:      NewRect(p.Text),
			Icon:      optionalRect(p.Icon),
			Separator: optionalRect(p.Separator),
			Progress:  optionalRect(p.Progress),
		}
		if n, ok := byID[p.ID]; ok {
			item.AppName = n.AppName
			item.Summary = n.Summary
			item.Body = n.Body
			item.Urgency = n.UrgencyName()
			item.Timestamp = n.Timestamp
		}
		r.Items = append(r.Items, item)
	}

	for _, err := range frame.Dropped {
		r.Dropped = append(r.Dropped, err.Error())
	}

	return r
}

func optionalRect(r image.Rectangle) *Rect {
	if r.Empty() {
		return nil
	}
	rect := NewRect(r)
	return &rect
}
