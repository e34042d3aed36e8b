// Package model defines the notification value consumed by the stack layout engine.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Urgency levels matching freedesktop spec.
const (
	UrgencyLow      = 0
	UrgencyNormal   = 1
	UrgencyCritical = 2
)

// UrgencyNames maps urgency levels to human-readable names.
var UrgencyNames = map[int]string{
	UrgencyLow:      "low",
	UrgencyNormal:   "normal",
	UrgencyCritical: "critical",
}

// IconPosition selects which side of the text an icon is placed on.
type IconPosition string

const (
	// IconDefault defers to the configured icon position.
	IconDefault IconPosition = ""
	IconLeft    IconPosition = "left"
	IconRight   IconPosition = "right"
	IconOff     IconPosition = "off"
)

// ParseIconPosition parses an icon position string.
func ParseIconPosition(s string) (IconPosition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return IconDefault, nil
	case "left":
		return IconLeft, nil
	case "right":
		return IconRight, nil
	case "off", "none":
		return IconOff, nil
	default:
		return IconDefault, fmt.Errorf("invalid icon position %q", s)
	}
}

// NoProgress marks a notification without a progress value.
const NoProgress = -1

// Colors holds per-notification colour overrides as hex strings.
// Empty fields fall back to the urgency defaults.
type Colors struct {
	Foreground string `json:"foreground,omitempty" yaml:"foreground,omitempty"`
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
	Frame      string `json:"frame,omitempty" yaml:"frame,omitempty"`
	Highlight  string `json:"highlight,omitempty" yaml:"highlight,omitempty"`
}

// Notification is a single notification as seen by the layout engine.
// The caller owns it; layout construction only borrows it.
type Notification struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`
	DBusID uint32 `json:"dbus_id,omitempty"`

	AppName   string `json:"app_name"`
	Summary   string `json:"summary"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	Urgency   int    `json:"urgency"`
	Category  string `json:"category,omitempty"`

	IconName     string       `json:"icon_name,omitempty"`
	IconPath     string       `json:"icon_path,omitempty"`
	IconPosition IconPosition `json:"icon_position,omitempty"`

	// Icon is a preloaded image (e.g. D-Bus image-data). It wins over IconPath.
	Icon image.Image `json:"-"`

	Progress       int    `json:"progress"`
	Colors         Colors `json:"colors,omitempty"`
	Format         string `json:"format,omitempty"`
	StackTag       string `json:"stack_tag,omitempty"`
	ExpireTimeout  int    `json:"expire_timeout,omitempty"`
	DuplicateCount int    `json:"duplicate_count,omitempty"`

	// TextToRender is the formatted markup handed to the text shaper.
	TextToRender string `json:"-"`
}

// Validation errors.
var (
	ErrEmptyID          = errors.New("id cannot be empty")
	ErrEmptySummary     = errors.New("summary cannot be empty")
	ErrInvalidUrgency   = errors.New("urgency must be 0, 1, or 2")
	ErrInvalidProgress  = errors.New("progress must be -1 or between 0 and 100")
	ErrInvalidTimestamp = errors.New("timestamp must be greater than 0")
)

// NewNotification creates a new Notification with a generated ULID.
func NewNotification(source string) (*Notification, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ULID: %w", err)
	}

	return &Notification{
		ID:        id.String(),
		Source:    source,
		Timestamp: time.Now().Unix(),
		Urgency:   UrgencyNormal,
		Progress:  NoProgress,
	}, nil
}

// Validate checks that the notification has all required fields.
func (n *Notification) Validate() error {
	if n.ID == "" {
		return ErrEmptyID
	}
	if n.Summary == "" {
		return ErrEmptySummary
	}
	if n.Urgency < UrgencyLow || n.Urgency > UrgencyCritical {
		return ErrInvalidUrgency
	}
	if n.Progress < NoProgress || n.Progress > 100 {
		return ErrInvalidProgress
	}
	if n.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	if _, err := ParseIconPosition(string(n.IconPosition)); err != nil {
		return err
	}
	return nil
}

// SetUrgency sets the urgency level, clamping unknown levels to normal.
func (n *Notification) SetUrgency(level int) {
	if level < UrgencyLow || level > UrgencyCritical {
		level = UrgencyNormal
	}
	n.Urgency = level
}

// UrgencyName returns the human-readable urgency.
func (n *Notification) UrgencyName() string {
	if name, ok := UrgencyNames[n.Urgency]; ok {
		return name
	}
	return UrgencyNames[UrgencyNormal]
}

// HasProgress reports whether a progress value is set.
func (n *Notification) HasProgress() bool {
	return n.Progress >= 0
}

// DedupeKey returns the key used to stack identical notifications.
func (n *Notification) DedupeKey() string {
	return n.AppName + "\x00" + n.Summary + "\x00" + n.Body
}

// TimestampTime returns the timestamp as a time.Time.
func (n *Notification) TimestampTime() time.Time {
	return time.Unix(n.Timestamp, 0)
}

// Clone creates a copy of the notification. The icon image is shared.
func (n *Notification) Clone() *Notification {
	clone := *n
	return &clone
}
