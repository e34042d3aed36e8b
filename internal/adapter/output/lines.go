package output

import (
	"fmt"
	"io"
	"strings"
)

// LinesFormatter writes one line per item, suitable for grep and dmenu-style pickers.
type LinesFormatter struct {
	opts FormatterOptions
}

// NewLinesFormatter creates a new lines formatter.
func NewLinesFormatter(opts FormatterOptions) *LinesFormatter {
	return &LinesFormatter{opts: opts}
}

// Format writes "index | geometry | [time |] app | summary: body" per item.
func (f *LinesFormatter) Format(w io.Writer, r *Report) error {
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	for i, item := range r.Items {
		parts := []string{fmt.Sprintf("%d", i+1), item.Box.String()}
		if f.opts.ShowTime {
			parts = append(parts, relativeTime(item.Timestamp))
		}
		if item.AppName != "" {
			parts = append(parts, item.AppName)
		}

		content := item.Summary
		if body := sanitizeBody(item.Body, f.opts.BodyMaxLen, false); body != "" {
			content += ": " + body
		}
		parts = append(parts, content)

		if _, err := fmt.Fprintln(w, strings.Join(parts, sep)); err != nil {
			return err
		}
	}
	return nil
}
