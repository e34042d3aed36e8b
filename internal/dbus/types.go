package dbus

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/stackdraw/internal/model"
)

// CloseReason represents the reason for closing a notification.
// These values are defined by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved by the notification specification.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// DBusNotification represents an incoming D-Bus Notify call.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

func (n *DBusNotification) stringHint(keys ...string) string {
	for _, key := range keys {
		if v, ok := n.Hints[key]; ok {
			if s, ok := v.Value().(string); ok {
				return s
			}
		}
	}
	return ""
}

// intHint reads an integer hint. Clients send bytes, signed or unsigned
// 32-bit values depending on the toolkit.
func (n *DBusNotification) intHint(key string) (int, bool) {
	v, ok := n.Hints[key]
	if !ok {
		return 0, false
	}
	switch i := v.Value().(type) {
	case byte:
		return int(i), true
	case int32:
		return int(i), true
	case uint32:
		return int(i), true
	case int:
		return i, true
	}
	return 0, false
}

// Urgency returns the urgency hint, or normal when absent.
func (n *DBusNotification) Urgency() int {
	if u, ok := n.intHint("urgency"); ok {
		return u
	}
	return model.UrgencyNormal
}

// Category returns the category hint.
func (n *DBusNotification) Category() string {
	return n.stringHint("category")
}

// ImagePath returns the image-path hint, accepting the deprecated spelling.
func (n *DBusNotification) ImagePath() string {
	return n.stringHint("image-path", "image_path")
}

// Progress returns the "value" hint (dunstify -h int:value:N), or
// model.NoProgress.
func (n *DBusNotification) Progress() int {
	if p, ok := n.intHint("value"); ok {
		return p
	}
	return model.NoProgress
}

// StackTag extracts the stack tag used to replace earlier notifications.
func (n *DBusNotification) StackTag() string {
	return n.stringHint("x-dunst-stack-tag", "x-canonical-private-synchronous", "stack-tag")
}

// ForegroundColor extracts the fgcolor hint.
func (n *DBusNotification) ForegroundColor() string { return n.stringHint("fgcolor") }

// BackgroundColor extracts the bgcolor hint.
func (n *DBusNotification) BackgroundColor() string { return n.stringHint("bgcolor") }

// FrameColor extracts the frcolor hint.
func (n *DBusNotification) FrameColor() string { return n.stringHint("frcolor") }

// HighlightColor extracts the hlcolor hint.
func (n *DBusNotification) HighlightColor() string { return n.stringHint("hlcolor") }

// ImageData decodes the raw image hint, a (iiibiiay) struct of width,
// height, rowstride, has_alpha, bits_per_sample, channels and pixel data.
func (n *DBusNotification) ImageData() (image.Image, error) {
	for _, key := range []string{"image-data", "image_data", "icon_data"} {
		v, ok := n.Hints[key]
		if !ok {
			continue
		}
		fields, ok := v.Value().([]any)
		if !ok {
			return nil, fmt.Errorf("%s: unexpected type %T", key, v.Value())
		}
		return decodeImageData(fields)
	}
	return nil, nil
}

func decodeImageData(fields []any) (image.Image, error) {
	if len(fields) != 7 {
		return nil, fmt.Errorf("image data: want 7 fields, got %d", len(fields))
	}
	width, ok1 := fields[0].(int32)
	height, ok2 := fields[1].(int32)
	stride, ok3 := fields[2].(int32)
	alpha, ok4 := fields[3].(bool)
	bits, ok5 := fields[4].(int32)
	channels, ok6 := fields[5].(int32)
	data, ok7 := fields[6].([]byte)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return nil, fmt.Errorf("image data: malformed struct")
	}
	if bits != 8 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image data: unsupported %dx%d at %d bits", width, height, bits)
	}
	want := int32(3)
	if alpha {
		want = 4
	}
	if channels != want || stride < width*channels || len(data) < int(stride*(height-1)+width*channels) {
		return nil, fmt.Errorf("image data: inconsistent layout")
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(width), int(height)))
	for y := 0; y < int(height); y++ {
		row := data[y*int(stride):]
		for x := 0; x < int(width); x++ {
			p := row[x*int(channels):]
			c := color.NRGBA{R: p[0], G: p[1], B: p[2], A: 0xff}
			if alpha {
				c.A = p[3]
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

// ToNotification converts the call into a stack notification carrying the
// D-Bus id. Icon sources in order: image-data, image-path, app_icon.
// A malformed image hint is reported alongside a usable notification.
func (n *DBusNotification) ToNotification(id uint32) (*model.Notification, error) {
	out, err := model.NewNotification("dbus")
	if err != nil {
		return nil, err
	}

	out.DBusID = id
	out.AppName = n.AppName
	out.Summary = n.Summary
	out.Body = n.Body
	out.SetUrgency(n.Urgency())
	out.Category = n.Category()
	out.StackTag = n.StackTag()
	out.ExpireTimeout = int(n.ExpireTimeout)
	out.Progress = min(n.Progress(), 100)
	if out.Progress < 0 {
		out.Progress = model.NoProgress
	}
	out.Colors = model.Colors{
		Foreground: n.ForegroundColor(),
		Background: n.BackgroundColor(),
		Frame:      n.FrameColor(),
		Highlight:  n.HighlightColor(),
	}

	icon := n.ImagePath()
	if icon == "" {
		icon = n.AppIcon
	}
	if filepath.IsAbs(icon) {
		out.IconPath = icon
	} else {
		out.IconName = icon
	}

	img, err := n.ImageData()
	out.Icon = img
	return out, err
}

// ServerCapabilities lists the capabilities advertised by stackdraw.
var ServerCapabilities = []string{
	"body",
	"body-markup",
	"icon-static",
	"x-dunst-stack-tag",
}

// ServerInfo contains information about the notification server.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// DefaultServerInfo returns the default server information.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "stackdraw",
		Vendor:      "stackdraw",
		Version:     "0.0.1",
		SpecVersion: "1.2",
	}
}
