// Package format expands notification format strings into the text handed to the shaper.
//
// Placeholders:
//
//	%a  application name
//	%s  summary
//	%b  body
//	%i  icon name or path
//	%I  icon name without directory or extension
//	%p  progress as "[ 42%]", empty without progress
//	%n  progress as a bare number, empty without progress
//	%%  a literal percent sign
package format

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/markup"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// Options controls formatting of a notification.
type Options struct {
	Format             string
	Markup             markup.Mode
	ShowAgeThreshold   time.Duration // 0 disables the age suffix
	HideDuplicateCount bool
	Now                time.Time
}

// OptionsFromSettings builds Options from the configured text and behaviour sections.
func OptionsFromSettings(s *config.Settings, now time.Time) Options {
	return Options{
		Format:             s.Text.Format,
		Markup:             markup.ParseMode(s.Text.Markup),
		ShowAgeThreshold:   s.Behavior.ShowAgeThreshold.Duration(),
		HideDuplicateCount: s.Behavior.HideDuplicateCount,
		Now:                now,
	}
}

// Apply fills TextToRender on every notification.
func Apply(ns []*model.Notification, opts Options) {
	for _, n := range ns {
		n.TextToRender = Render(n, opts)
	}
}

// Render returns the formatted text for a notification.
func Render(n *model.Notification, opts Options) string {
	layout := opts.Format
	if n.Format != "" {
		layout = n.Format
	}
	if layout == "" {
		layout = config.DefaultFormat
	}

	var b strings.Builder
	for i := 0; i < len(layout); i++ {
		c := layout[i]
		if c != '%' || i+1 >= len(layout) {
			b.WriteByte(c)
			continue
		}

		i++
		switch layout[i] {
		case 'a':
			b.WriteString(field(n.AppName, opts.Markup))
		case 's':
			b.WriteString(field(n.Summary, opts.Markup))
		case 'b':
			b.WriteString(body(n.Body, opts.Markup))
		case 'i':
			b.WriteString(field(iconName(n), opts.Markup))
		case 'I':
			b.WriteString(field(shortIconName(n), opts.Markup))
		case 'p':
			if n.HasProgress() {
				b.WriteString("[" + padLeft(strconv.Itoa(n.Progress), 3) + "%]")
			}
		case 'n':
			if n.HasProgress() {
				b.WriteString(strconv.Itoa(n.Progress))
			}
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(layout[i])
		}
	}

	text := strings.TrimSpace(b.String())

	if n.DuplicateCount > 0 && !opts.HideDuplicateCount {
		text = "(" + strconv.Itoa(n.DuplicateCount+1) + ") " + text
	}

	if age := ageSuffix(n, opts); age != "" {
		text += " " + field("("+age+")", opts.Markup)
	}

	return text
}

// field returns a plain-text value ready for the given markup mode.
func field(s string, mode markup.Mode) string {
	if mode == markup.ModeNone {
		return s
	}
	return markup.Escape(s)
}

// body keeps the body markup in full mode and strips it otherwise.
func body(s string, mode markup.Mode) string {
	switch mode {
	case markup.ModeFull:
		return s
	case markup.ModeStrip:
		return markup.Escape(markup.Strip(s))
	default:
		return s
	}
}

func iconName(n *model.Notification) string {
	if n.IconName != "" {
		return n.IconName
	}
	return n.IconPath
}

func shortIconName(n *model.Notification) string {
	name := filepath.Base(iconName(n))
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func ageSuffix(n *model.Notification, opts Options) string {
	if opts.ShowAgeThreshold <= 0 || n.Timestamp <= 0 {
		return ""
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	ts := n.TimestampTime()
	if now.Sub(ts) < opts.ShowAgeThreshold {
		return ""
	}
	return humanize.RelTime(ts, now, "old", "from now")
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
