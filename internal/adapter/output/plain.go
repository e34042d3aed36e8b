package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/stackdraw/internal/model"
)

// PlainFormatter writes a header line for the stack and an indented block,
// or one template expansion, per item.
type PlainFormatter struct {
	opts FormatterOptions
	tmpl *template.Template
}

// NewPlainFormatter creates a plain text formatter. It fails when
// opts.Template does not parse.
func NewPlainFormatter(opts FormatterOptions) (*PlainFormatter, error) {
	f := &PlainFormatter{opts: opts}
	if opts.Template == "" {
		return f, nil
	}

	tmpl, err := template.New("item").Funcs(templateFuncs).Parse(opts.Template)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	f.tmpl = tmpl
	return f, nil
}

// itemView is what an item template sees.
type itemView struct {
	*Item
	Index int
	Age   string
}

var templateFuncs = template.FuncMap{
	"truncate": truncate,
	"age":      relativeTime,
	"urgencyIcon": func(urgency string) string {
		switch urgency {
		case model.UrgencyNames[model.UrgencyLow]:
			return "L"
		case model.UrgencyNames[model.UrgencyCritical]:
			return "!"
		}
		return "-"
	},
}

// Format writes the report.
func (f *PlainFormatter) Format(w io.Writer, r *Report) error {
	_, err := fmt.Fprintf(w, "stack %dx%d radius=%d scale=%g items=%d\n",
		r.Width, r.Height, r.CornerRadius, r.Scale, len(r.Items))
	if err != nil {
		return err
	}

	for i := range r.Items {
		view := itemView{Item: &r.Items[i], Index: i + 1, Age: relativeTime(r.Items[i].Timestamp)}
		if f.tmpl != nil {
			err = f.tmpl.Execute(w, view)
		} else {
			_, err = io.WriteString(w, f.block(view))
		}
		if err != nil {
			return err
		}
	}

	for _, d := range r.Dropped {
		if _, err := fmt.Fprintf(w, "dropped: %s\n", d); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) block(v itemView) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "[%d] ", v.Index)
	if v.AppName != "" {
		fmt.Fprintf(&sb, "<%s> ", v.AppName)
	}
	sb.WriteString(v.Summary)
	if f.opts.ShowTime {
		fmt.Fprintf(&sb, " (%s)", v.Age)
	}
	sb.WriteByte('\n')

	if body := sanitizeBody(v.Body, f.opts.BodyMaxLen, false); body != "" {
		sb.WriteString("    " + body + "\n")
	}

	for _, part := range []struct {
		name string
		r    *Rect
	}{
		{"box", &v.Box},
		{"text", &v.Text},
		{"icon", v.Icon},
		{"progress", v.Progress},
		{"separator", v.Separator},
	} {
		if part.r != nil && !part.r.IsZero() {
			fmt.Fprintf(&sb, "    %-9s %s\n", part.name, part.r)
		}
	}
	return sb.String()
}

// String returns "WxH+X+Y", the X11 geometry notation.
func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.W, r.H, r.X, r.Y)
}

// relativeTime renders a Unix timestamp as "now", "5 minutes ago" and so on.
func relativeTime(ts int64) string {
	if ts == 0 {
		return "unknown"
	}
	t := time.Unix(ts, 0)
	if time.Since(t) < time.Minute {
		return "now"
	}
	return humanize.Time(t)
}

// truncate cuts s to maxLen bytes, ending in "..." when there is room.
func truncate(s string, maxLen int) string {
	switch {
	case maxLen <= 0 || len(s) <= maxLen:
		return s
	case maxLen <= 3:
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// sanitizeBody collapses whitespace for single-line display and truncates.
func sanitizeBody(body string, maxLen int, keepNewlines bool) string {
	if !keepNewlines {
		body = strings.NewReplacer("\r", "", "\n", " ").Replace(body)
	}
	for strings.Contains(body, "  ") {
		body = strings.ReplaceAll(body, "  ", " ")
	}
	return truncate(strings.TrimSpace(body), maxLen)
}
