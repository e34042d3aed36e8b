// Package text shapes notification markup into pixel layouts using x/image fonts.
package text

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/markup"
)

// ErrInvalidStyle is returned when a style cannot be shaped.
var ErrInvalidStyle = errors.New("invalid text style")

const ellipsis = '…'

type faceStyle int

const (
	styleRegular faceStyle = iota
	styleBold
	styleItalic
	styleBoldItalic
)

type faceSet [4]font.Face

// Shaper implements draw.TextShaper over OpenType faces.
// Faces are created lazily per point size and shared by all layouts.
type Shaper struct {
	mu     sync.Mutex
	logger *slog.Logger

	dpi   float64
	fonts [4]*opentype.Font
	faces map[float64]*faceSet
}

var _ draw.TextShaper = (*Shaper)(nil)

// NewShaper creates a Shaper. An empty fontPath selects the Go font family;
// otherwise the TTF/OTF file is used for every style.
func NewShaper(fontPath string, dpi float64, logger *slog.Logger) (*Shaper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dpi <= 0 {
		return nil, fmt.Errorf("dpi %v: %w", dpi, ErrInvalidStyle)
	}

	s := &Shaper{
		logger: logger,
		dpi:    dpi,
		faces:  make(map[float64]*faceSet),
	}

	if fontPath == "" {
		for i, data := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF} {
			f, err := opentype.Parse(data)
			if err != nil {
				return nil, fmt.Errorf("failed to parse builtin font: %w", err)
			}
			s.fonts[i] = f
		}
		return s, nil
	}

	f, err := loadFont(fontPath)
	if err != nil {
		return nil, err
	}
	for i := range s.fonts {
		s.fonts[i] = f
	}
	logger.Debug("loaded font", "path", fontPath)
	return s, nil
}

// NewShaperFromConfig creates a Shaper for the configured font.
func NewShaperFromConfig(cfg config.TextConfig, logger *slog.Logger) (*Shaper, error) {
	return NewShaper(cfg.Font, cfg.DPI, logger)
}

func loadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}

	f, err := opentype.Parse(data)
	if err == nil {
		return f, nil
	}

	collection, cerr := opentype.ParseCollection(data)
	if cerr != nil || collection.NumFonts() == 0 {
		return nil, fmt.Errorf("failed to parse font %s: %w", path, err)
	}
	return collection.Font(0)
}

// Close releases every cached face.
func (s *Shaper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for size, set := range s.faces {
		for _, f := range set {
			if f != nil {
				errs = append(errs, f.Close())
			}
		}
		delete(s.faces, size)
	}
	return errors.Join(errs...)
}

// LineHeight returns the height of one line of text at size.
func (s *Shaper) LineHeight(size float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.facesFor(size)
	if err != nil {
		return 0, err
	}
	m := set[styleRegular].Metrics()
	return m.Ascent.Ceil() + m.Descent.Ceil(), nil
}

// facesFor returns the faces for size. Callers hold s.mu.
func (s *Shaper) facesFor(size float64) (*faceSet, error) {
	if size <= 0 {
		return nil, fmt.Errorf("font size %v: %w", size, ErrInvalidStyle)
	}
	if set, ok := s.faces[size]; ok {
		return set, nil
	}

	set := &faceSet{}
	for i, f := range s.fonts {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     s.dpi,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create face: %w", err)
		}
		set[i] = face
	}
	s.faces[size] = set
	return set, nil
}

// Shape implements draw.TextShaper. Malformed markup degrades to literal text.
func (s *Shaper) Shape(text string, style draw.TextStyle) (draw.TextLayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.facesFor(style.Size)
	if err != nil {
		return nil, err
	}

	spans := markup.Parse(text, style.Markup)
	m := set[styleRegular].Metrics()

	l := &Layout{
		shaper:     s,
		spans:      spans,
		faces:      set,
		ascent:     m.Ascent.Ceil(),
		lineHeight: m.Ascent.Ceil() + m.Descent.Ceil(),
		spacing:    style.LineSpacing,
		alignment:  style.Alignment,
	}

	maxWidth := fixed.I(style.MaxWidth)
	for _, cells := range s.paragraphs(spans) {
		para := s.measure(set, spans, cells)

		switch {
		case style.MaxWidth <= 0 || para.width() <= maxWidth:
			l.lines = append(l.lines, para)
		case style.WordWrap:
			l.lines = append(l.lines, s.wrap(para, maxWidth)...)
		case style.Ellipsize != config.EllipsizeNone:
			l.lines = append(l.lines, s.ellipsize(set, spans, para, maxWidth, style.Ellipsize))
		default:
			l.lines = append(l.lines, para)
		}
	}

	// A layout of only empty lines has no content.
	if l.isBlank() {
		l.lines = nil
	}

	for _, ln := range l.lines {
		if w := ln.width().Ceil(); w > l.width {
			l.width = w
		}
	}
	if style.MaxWidth > 0 && l.width > style.MaxWidth {
		l.width = style.MaxWidth
	}
	if n := len(l.lines); n > 0 {
		l.height = n*l.lineHeight + (n-1)*l.spacing
	}

	return l, nil
}

// cell is one rune and the index of the span that styles it.
type cell struct {
	r    rune
	span int
}

type line struct {
	cells []cell
	adv   []fixed.Int26_6
}

func (ln line) width() fixed.Int26_6 {
	var w fixed.Int26_6
	for _, a := range ln.adv {
		w += a
	}
	return w
}

// paragraphs splits spans into hard lines.
func (s *Shaper) paragraphs(spans []markup.Span) [][]cell {
	var (
		out     [][]cell
		current []cell
	)
	for i, sp := range spans {
		for _, r := range sp.Text {
			switch r {
			case '\n':
				out = append(out, current)
				current = nil
			case '\r':
			case '\t':
				current = append(current, cell{r: ' ', span: i})
			default:
				current = append(current, cell{r: r, span: i})
			}
		}
	}
	return append(out, current)
}

func styleOf(sp markup.Span) faceStyle {
	switch {
	case sp.Bold && sp.Italic:
		return styleBoldItalic
	case sp.Bold:
		return styleBold
	case sp.Italic:
		return styleItalic
	default:
		return styleRegular
	}
}

func faceFor(set *faceSet, spans []markup.Span, span int) font.Face {
	if span < 0 || span >= len(spans) {
		return set[styleRegular]
	}
	return set[styleOf(spans[span])]
}

// measure computes the per-cell advances, kerning within runs of one face.
func (s *Shaper) measure(set *faceSet, spans []markup.Span, cells []cell) line {
	ln := line{cells: cells, adv: make([]fixed.Int26_6, len(cells))}
	prev := rune(-1)
	prevSpan := -1
	for i, c := range cells {
		face := faceFor(set, spans, c.span)
		adv, _ := face.GlyphAdvance(c.r)
		if prev >= 0 && styleOf(spanAt(spans, prevSpan)) == styleOf(spanAt(spans, c.span)) {
			adv += face.Kern(prev, c.r)
		}
		ln.adv[i] = adv
		prev, prevSpan = c.r, c.span
	}
	return ln
}

func spanAt(spans []markup.Span, i int) markup.Span {
	if i < 0 || i >= len(spans) {
		return markup.Span{}
	}
	return spans[i]
}

// wrap breaks a line greedily at spaces, falling back to a character break
// for words wider than maxWidth.
func (s *Shaper) wrap(ln line, maxWidth fixed.Int26_6) []line {
	var out []line
	start := 0
	for start < len(ln.cells) {
		var (
			width     fixed.Int26_6
			lastSpace = -1
			end       = len(ln.cells)
		)
	scan:
		for j := start; j < len(ln.cells); j++ {
			if ln.cells[j].r == ' ' {
				lastSpace = j
			}
			width += ln.adv[j]
			if width > maxWidth {
				switch {
				case lastSpace > start:
					end = lastSpace
				case j > start:
					end = j
				default:
					end = j + 1
				}
				break scan
			}
		}

		out = append(out, line{cells: ln.cells[start:end], adv: ln.adv[start:end]})

		start = end
		for start < len(ln.cells) && ln.cells[start].r == ' ' {
			start++
		}
	}
	return out
}

// ellipsize shortens a line to fit maxWidth, replacing the cut text with an ellipsis.
func (s *Shaper) ellipsize(set *faceSet, spans []markup.Span, ln line, maxWidth fixed.Int26_6, mode string) line {
	n := len(ln.cells)
	if n == 0 {
		return ln
	}

	mark := func(span int) (cell, fixed.Int26_6) {
		adv, _ := faceFor(set, spans, span).GlyphAdvance(ellipsis)
		return cell{r: ellipsis, span: span}, adv
	}

	prefix := func(budget fixed.Int26_6) int {
		var w fixed.Int26_6
		k := 0
		for k < n && w+ln.adv[k] <= budget {
			w += ln.adv[k]
			k++
		}
		return k
	}
	suffix := func(budget fixed.Int26_6, floor int) int {
		var w fixed.Int26_6
		k := n
		for k > floor && w+ln.adv[k-1] <= budget {
			w += ln.adv[k-1]
			k--
		}
		return k
	}
	sum := func(adv []fixed.Int26_6) fixed.Int26_6 {
		var w fixed.Int26_6
		for _, a := range adv {
			w += a
		}
		return w
	}

	out := line{}
	switch mode {
	case config.EllipsizeStart:
		e, ew := mark(ln.cells[n-1].span)
		k := suffix(maxWidth-ew, 0)
		out.cells = append([]cell{e}, ln.cells[k:]...)
		out.adv = append([]fixed.Int26_6{ew}, ln.adv[k:]...)
	case config.EllipsizeEnd:
		e, ew := mark(ln.cells[0].span)
		k := prefix(maxWidth - ew)
		out.cells = append(append([]cell{}, ln.cells[:k]...), e)
		out.adv = append(append([]fixed.Int26_6{}, ln.adv[:k]...), ew)
	default:
		e, ew := mark(ln.cells[n/2].span)
		budget := maxWidth - ew
		left := prefix(budget / 2)
		right := suffix(budget-sum(ln.adv[:left]), left)
		out.cells = append(append(append([]cell{}, ln.cells[:left]...), e), ln.cells[right:]...)
		out.adv = append(append(append([]fixed.Int26_6{}, ln.adv[:left]...), ew), ln.adv[right:]...)
	}
	return out
}

// PlainText returns the shaped text, one line per row.
func (l *Layout) PlainText() string {
	rows := make([]string, len(l.lines))
	for i, ln := range l.lines {
		var b strings.Builder
		for _, c := range ln.cells {
			b.WriteRune(c.r)
		}
		rows[i] = b.String()
	}
	return strings.Join(rows, "\n")
}
