package text

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/draw"
	"github.com/jmylchreest/stackdraw/internal/markup"
)

func newTestShaper(t *testing.T) *Shaper {
	t.Helper()
	s, err := NewShaper("", 96, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func style(maxWidth int) draw.TextStyle {
	return draw.TextStyle{
		Size:      10,
		MaxWidth:  maxWidth,
		Markup:    markup.ModeFull,
		Alignment: config.AlignLeft,
		Ellipsize: config.EllipsizeEnd,
		WordWrap:  true,
	}
}

func shape(t *testing.T, s *Shaper, text string, st draw.TextStyle) *Layout {
	t.Helper()
	tl, err := s.Shape(text, st)
	require.NoError(t, err)
	l, ok := tl.(*Layout)
	require.True(t, ok)
	return l
}

func TestNewShaper_Errors(t *testing.T) {
	_, err := NewShaper("", 0, nil)
	assert.ErrorIs(t, err, ErrInvalidStyle)

	_, err = NewShaper("/nonexistent/font.ttf", 96, nil)
	assert.Error(t, err)
}

func TestShape_InvalidSize(t *testing.T) {
	s := newTestShaper(t)
	st := style(100)
	st.Size = 0

	_, err := s.Shape("x", st)
	assert.ErrorIs(t, err, ErrInvalidStyle)
}

func TestShape_Empty(t *testing.T) {
	s := newTestShaper(t)

	for _, text := range []string{"", "\n", "<b></b>"} {
		l := shape(t, s, text, style(100))
		w, h := l.Size()
		assert.Zero(t, w, text)
		assert.Zero(t, h, text)
	}
}

func TestShape_SingleLine(t *testing.T) {
	s := newTestShaper(t)
	lh, err := s.LineHeight(10)
	require.NoError(t, err)
	require.Positive(t, lh)

	l := shape(t, s, "Hello", style(200))
	w, h := l.Size()
	assert.Positive(t, w)
	assert.LessOrEqual(t, w, 200)
	assert.Equal(t, lh, h)
	assert.Equal(t, 1, l.Lines())
	assert.Equal(t, "Hello", l.PlainText())
}

func TestShape_HardLinesAndSpacing(t *testing.T) {
	s := newTestShaper(t)
	lh, err := s.LineHeight(10)
	require.NoError(t, err)

	st := style(200)
	st.LineSpacing = 4
	l := shape(t, s, "<b>one</b>\ntwo\nthree", st)

	_, h := l.Size()
	assert.Equal(t, 3, l.Lines())
	assert.Equal(t, 3*lh+2*4, h)
	assert.Equal(t, "one\ntwo\nthree", l.PlainText())
}

func TestShape_WordWrap(t *testing.T) {
	s := newTestShaper(t)
	text := strings.Repeat("word ", 30)

	l := shape(t, s, text, style(100))
	w, _ := l.Size()
	assert.Greater(t, l.Lines(), 1)
	assert.LessOrEqual(t, w, 100)
	for _, row := range strings.Split(l.PlainText(), "\n") {
		assert.False(t, strings.HasPrefix(row, " "), "row %q starts with a space", row)
	}
}

func TestShape_WrapBreaksLongWord(t *testing.T) {
	s := newTestShaper(t)

	l := shape(t, s, strings.Repeat("x", 200), style(50))
	w, _ := l.Size()
	assert.Greater(t, l.Lines(), 1)
	assert.LessOrEqual(t, w, 50)
	assert.Equal(t, strings.Repeat("x", 200), strings.ReplaceAll(l.PlainText(), "\n", ""))
}

func TestShape_Ellipsize(t *testing.T) {
	s := newTestShaper(t)
	text := "The quick brown fox jumps over the lazy dog"

	tests := []struct {
		mode  string
		check func(t *testing.T, got string)
	}{
		{config.EllipsizeEnd, func(t *testing.T, got string) {
			assert.True(t, strings.HasPrefix(got, "The"))
			assert.True(t, strings.HasSuffix(got, "…"))
		}},
		{config.EllipsizeStart, func(t *testing.T, got string) {
			assert.True(t, strings.HasPrefix(got, "…"))
			assert.True(t, strings.HasSuffix(got, "dog"))
		}},
		{config.EllipsizeMiddle, func(t *testing.T, got string) {
			assert.True(t, strings.HasPrefix(got, "The"))
			assert.True(t, strings.HasSuffix(got, "dog"))
			assert.Contains(t, got, "…")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			st := style(120)
			st.WordWrap = false
			st.Ellipsize = tt.mode

			l := shape(t, s, text, st)
			w, _ := l.Size()
			assert.Equal(t, 1, l.Lines())
			assert.LessOrEqual(t, w, 120)
			tt.check(t, l.PlainText())
		})
	}
}

func TestShape_NoWrapNoEllipsizeClampsWidth(t *testing.T) {
	s := newTestShaper(t)
	st := style(60)
	st.WordWrap = false
	st.Ellipsize = config.EllipsizeNone

	l := shape(t, s, "a rather long line of text", st)
	w, _ := l.Size()
	assert.Equal(t, 1, l.Lines())
	assert.Equal(t, 60, w)
}

func TestShape_MalformedMarkupIsLiteral(t *testing.T) {
	s := newTestShaper(t)

	l := shape(t, s, "<b>broken", style(300))
	assert.Equal(t, "<b>broken", l.PlainText())
}

func TestShape_BoldIsWider(t *testing.T) {
	s := newTestShaper(t)

	regular := shape(t, s, "Notification", style(0))
	bold := shape(t, s, "<b>Notification</b>", style(0))

	rw, _ := regular.Size()
	bw, _ := bold.Size()
	assert.Greater(t, bw, rw)
}

func TestLayout_Draw(t *testing.T) {
	s := newTestShaper(t)
	l := shape(t, s, "Hello", style(100))
	w, h := l.Size()

	dst := image.NewRGBA(image.Rect(0, 0, 200, 100))
	target := image.Rect(10, 10, 10+w, 10+h)
	l.Draw(dst, target, color.White)

	var inside, outside int
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if dst.RGBAAt(x, y).A == 0 {
				continue
			}
			if image.Pt(x, y).In(target) {
				inside++
			} else {
				outside++
			}
		}
	}
	assert.Positive(t, inside)
	assert.Zero(t, outside)
}

func TestLayout_Alignment(t *testing.T) {
	s := newTestShaper(t)
	st := style(200)
	st.Alignment = config.AlignRight
	l := shape(t, s, "Hi", st)

	w, _ := l.Size()
	assert.Equal(t, 200-w, l.offset(l.lines[0], 200))

	st.Alignment = config.AlignCenter
	l = shape(t, s, "Hi", st)
	assert.Equal(t, (200-w)/2, l.offset(l.lines[0], 200))
}

func TestLayout_ReleaseIsIdempotent(t *testing.T) {
	s := newTestShaper(t)
	l := shape(t, s, "Hello", style(100))

	l.Release()
	l.Release()
	assert.True(t, l.Released())

	dst := image.NewRGBA(image.Rect(0, 0, 50, 50))
	l.Draw(dst, dst.Bounds(), color.White)
	for _, px := range dst.Pix {
		require.Zero(t, px)
	}
}
