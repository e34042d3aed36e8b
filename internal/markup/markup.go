// Package markup parses the Pango-style subset of markup used in notification text.
package markup

import (
	"encoding/xml"
	"errors"
	"html"
	"io"
	"regexp"
	"strings"
)

// Mode selects how markup in notification text is treated.
type Mode string

const (
	// ModeFull interprets tags and entities.
	ModeFull Mode = "full"
	// ModeStrip removes tags and unescapes entities.
	ModeStrip Mode = "strip"
	// ModeNone renders the text literally.
	ModeNone Mode = "no"
)

// ParseMode parses a mode name, defaulting to ModeFull.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStrip:
		return ModeStrip
	case ModeNone, "none":
		return ModeNone
	default:
		return ModeFull
	}
}

// Span is a run of text sharing one style.
type Span struct {
	Text          string
	Bold          bool
	Italic        bool
	Underline     bool
	Strikethrough bool
	Foreground    string // Hex colour, empty = layout foreground
	Background    string
}

func (s Span) withText(text string) Span {
	s.Text = text
	return s
}

var brTag = regexp.MustCompile(`(?i)<br\s*/?>`)

// Parse converts text into styled spans.
// Malformed markup never fails: the text degrades to a single literal span.
func Parse(text string, mode Mode) []Span {
	switch mode {
	case ModeNone:
		return literal(text)
	case ModeStrip:
		return literal(Strip(text))
	}

	spans, err := parseFull(text)
	if err != nil {
		return literal(text)
	}
	return spans
}

// Strip removes all tags and unescapes entities. Malformed markup is
// stripped on a best-effort basis.
func Strip(text string) string {
	text = brTag.ReplaceAllString(text, "\n")
	spans, err := parseFull(text)
	if err != nil {
		return html.UnescapeString(stripTags(text))
	}
	return PlainText(spans)
}

// PlainText joins the text of all spans.
func PlainText(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Escape escapes text for inclusion in markup.
func Escape(text string) string {
	return html.EscapeString(text)
}

func literal(text string) []Span {
	if text == "" {
		return nil
	}
	return []Span{{Text: text}}
}

var errUnbalanced = errors.New("unbalanced markup")

// parseFull walks the markup as XML wrapped in a synthetic root element.
func parseFull(text string) ([]Span, error) {
	text = brTag.ReplaceAllString(text, "\n")

	decoder := xml.NewDecoder(strings.NewReader("<markup>" + text + "</markup>"))
	decoder.Entity = xml.HTMLEntity

	var (
		spans []Span
		stack []Span
	)
	current := Span{}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, current)
			current = applyTag(current, t)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errUnbalanced
			}
			current = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(t) == 0 {
				continue
			}
			spans = appendSpan(spans, current.withText(string(t)))
		}
	}

	if len(stack) != 0 {
		return nil, errUnbalanced
	}
	return spans, nil
}

// appendSpan merges adjacent spans with identical style.
func appendSpan(spans []Span, s Span) []Span {
	if n := len(spans); n > 0 && sameStyle(spans[n-1], s) {
		spans[n-1].Text += s.Text
		return spans
	}
	return append(spans, s)
}

func sameStyle(a, b Span) bool {
	return a.withText("") == b.withText("")
}

// applyTag derives the style inside an element. Unknown tags keep the style.
func applyTag(s Span, el xml.StartElement) Span {
	switch strings.ToLower(el.Name.Local) {
	case "b":
		s.Bold = true
	case "i":
		s.Italic = true
	case "u":
		s.Underline = true
	case "s":
		s.Strikethrough = true
	case "span":
		for _, attr := range el.Attr {
			v := strings.TrimSpace(attr.Value)
			switch strings.ToLower(attr.Name.Local) {
			case "foreground", "fgcolor", "color":
				s.Foreground = v
			case "background", "bgcolor":
				s.Background = v
			case "weight", "font_weight":
				s.Bold = v == "bold" || v == "heavy" || v == "ultrabold"
			case "style", "font_style":
				s.Italic = v == "italic" || v == "oblique"
			case "underline":
				s.Underline = v != "none"
			case "strikethrough":
				s.Strikethrough = v == "true"
			}
		}
	}
	return s
}

var anyTag = regexp.MustCompile(`<[^>]*>`)

func stripTags(text string) string {
	return anyTag.ReplaceAllString(text, "")
}
