package input

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/stackdraw/internal/model"
)

// DunstAdapter reads the stack history kept by a running dunst through
// dunstctl.
type DunstAdapter struct {
	// Command is the dunstctl binary; empty means "dunstctl" on PATH.
	Command string
}

// NewDunstAdapter creates a new DunstAdapter.
func NewDunstAdapter() *DunstAdapter {
	return &DunstAdapter{}
}

// Name returns the adapter identifier.
func (a *DunstAdapter) Name() string {
	return "dunst"
}

// Import runs "dunstctl history" and converts its output.
func (a *DunstAdapter) Import(ctx context.Context) ([]*model.Notification, error) {
	bin := a.Command
	if bin == "" {
		bin = "dunstctl"
	}
	out, err := exec.CommandContext(ctx, bin, "history").Output()
	if err != nil {
		return nil, &AdapterError{Source: "dunst", Message: "dunstctl history failed", Err: err}
	}
	return ParseDunstHistory(out)
}

// dunstctl prints a{sv}-style JSON: every field is {"type": ..., "data": ...}
// and entries sit in a nested array, {"data": [[entry, ...]]}.
type dunstHistory struct {
	Data [][]dunstEntry `json:"data"`
}

type dunstEntry map[string]dunstValue

type dunstValue struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (v dunstValue) present() bool { return v.Data != nil }

// String returns the value as text. Numbers are formatted without exponent.
func (v dunstValue) String() string {
	switch d := v.Data.(type) {
	case nil:
		return ""
	case string:
		return d
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(d, 10)
	}
	return fmt.Sprint(v.Data)
}

// Int returns the value as an int.
func (v dunstValue) Int() int {
	return int(v.Int64())
}

// Int64 returns the value as an int64. Unparseable values are 0.
func (v dunstValue) Int64() int64 {
	switch d := v.Data.(type) {
	case float64:
		return int64(d)
	case int64:
		return d
	case string:
		i, _ := strconv.ParseInt(strings.TrimSpace(d), 10, 64)
		return i
	}
	return 0
}

// Urgency reads the urgency level. Newer dunst prints a name (LOW, NORMAL,
// CRITICAL), older releases a number.
func (v dunstValue) Urgency() int {
	s, ok := v.Data.(string)
	if !ok {
		return v.Int()
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW", "0":
		return model.UrgencyLow
	case "CRITICAL", "2":
		return model.UrgencyCritical
	}
	return model.UrgencyNormal
}

// ParseDunstHistory converts dunstctl history JSON into notifications,
// oldest group first.
func ParseDunstHistory(data []byte) ([]*model.Notification, error) {
	return parseDunstHistoryAt(data, time.Now())
}

func parseDunstHistoryAt(data []byte, now time.Time) ([]*model.Notification, error) {
	var history dunstHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, &AdapterError{Source: "dunst", Message: "invalid dunstctl history JSON", Err: err}
	}

	var result []*model.Notification
	for _, group := range history.Data {
		for _, e := range group {
			n, err := e.notification(now)
			if err != nil {
				continue
			}
			result = append(result, n)
		}
	}
	return result, nil
}

func (e dunstEntry) text(key string) string {
	return sanitizeString(e[key].String())
}

func (e dunstEntry) notification(now time.Time) (*model.Notification, error) {
	n, err := model.NewNotification("dunst")
	if err != nil {
		return nil, err
	}

	n.DBusID = uint32(max(e["id"].Int(), 0))
	n.AppName = e.text("appname")
	n.Summary = e.text("summary")
	n.Body = e.text("body")
	n.Category = e["category"].String()
	n.IconPath = e["icon_path"].String()
	n.StackTag = e["stack_tag"].String()
	n.Format = e["format"].String()
	n.Timestamp = convertDunstTimestamp(e["timestamp"].Int64(), now)
	n.ExpireTimeout = e["timeout"].Int()
	n.SetUrgency(e["urgency"].Urgency())

	n.Progress = model.NoProgress
	if p := e["progress"]; p.present() {
		n.Progress = clampProgress(p.Int())
	}

	n.Colors = model.Colors{
		Foreground: e["fg"].String(),
		Background: e["bg"].String(),
		Frame:      e["frame"].String(),
		Highlight:  e["highlight"].String(),
	}

	// message is dunst's already formatted text. Used only when there is
	// nothing to format from.
	if n.Summary == "" && n.Body == "" {
		n.TextToRender = e["message"].String()
	}
	return n, nil
}

// uptime reads /proc/uptime. Replaced in tests.
var uptime = func() (time.Duration, error) {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, err
	}
	first, _, _ := strings.Cut(strings.TrimSpace(string(data)), " ")
	if first == "" {
		return 0, fmt.Errorf("empty /proc/uptime")
	}
	secs, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// convertDunstTimestamp turns dunst's microseconds-since-boot into Unix
// seconds. Without an uptime, values in the Unix seconds range pass through.
func convertDunstTimestamp(ts int64, now time.Time) int64 {
	if ts <= 0 {
		return now.Unix()
	}

	up, err := uptime()
	if err != nil {
		if ts > 1_000_000_000 && ts < 1<<32 {
			return ts
		}
		return now.Unix()
	}
	return now.Add(-up).Add(time.Duration(ts) * time.Microsecond).Unix()
}

// sanitizeString replaces control characters other than newline and tab
// with spaces and trims the result.
func sanitizeString(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return ' '
		}
		return r
	}, s))
}
