package draw

import (
	"image"
	"image/color"
	"strings"
	"time"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/format"
	"github.com/jmylchreest/stackdraw/internal/markup"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// Colors are the resolved colours of one item.
type Colors struct {
	Foreground color.NRGBA
	Background color.NRGBA
	Frame      color.NRGBA
	Highlight  color.NRGBA
}

// ColoredLayout is the renderable unit for one notification: shaped text, an
// optional icon and colours. It owns the text handle and only borrows the icon.
type ColoredLayout struct {
	ID           string
	Text         TextLayout
	Icon         image.Image
	IconPosition model.IconPosition
	Colors       Colors
	Urgency      int
	Progress     int

	// Width and Height are the item size inside the frame, padding included.
	Width  int
	Height int

	released bool
}

// HasIcon reports whether the layout carries an icon.
func (cl *ColoredLayout) HasIcon() bool {
	return cl.Icon != nil
}

// Released reports whether Release has been called.
func (cl *ColoredLayout) Released() bool {
	return cl.released
}

// Release frees the text handle. It must be called before the surface the layout
// was rendered on is discarded, and is safe to call more than once.
func (cl *ColoredLayout) Release() {
	if cl.released {
		return
	}
	cl.released = true
	if cl.Text != nil {
		cl.Text.Release()
		cl.Text = nil
	}
	cl.Icon = nil
}

// iconReserve is the horizontal space taken by the icon beside the text.
func (e *Engine) iconReserve(icon image.Image) int {
	if icon == nil {
		return 0
	}
	return icon.Bounds().Dx() + e.settings.Geometry.TextIconPadding
}

// progressShown reports whether a progress bar is drawn for an item.
func (e *Engine) progressShown(progress int) bool {
	return e.settings.ProgressBar.Enabled && progress >= 0
}

// iconPosition resolves the icon side for n.
func (e *Engine) iconPosition(n *model.Notification) model.IconPosition {
	if n.IconPosition != model.IconDefault {
		return n.IconPosition
	}
	pos, err := model.ParseIconPosition(e.settings.Icons.Position)
	if err != nil || pos == model.IconDefault {
		return model.IconLeft
	}
	return pos
}

// LayoutFromNotification builds the colored layout for one notification.
// Degraded content (missing icon, bad colour hints, empty text) is recovered
// in place; only a failing shaper is reported, as a *LayoutError.
func (e *Engine) LayoutFromNotification(n *model.Notification) (*ColoredLayout, error) {
	g := e.settings.Geometry

	cl := &ColoredLayout{
		ID:           n.ID,
		IconPosition: e.iconPosition(n),
		Colors:       e.colors(n),
		Urgency:      n.Urgency,
		Progress:     n.Progress,
	}

	if cl.IconPosition != model.IconOff && e.icons != nil {
		if img, ok := e.icons.Load(n); ok && img != nil && !img.Bounds().Empty() {
			cl.Icon = img
		}
	}

	if e.shaper == nil {
		return nil, &LayoutError{ID: n.ID, Op: "shape", Cause: ErrNoShaper}
	}

	text := n.TextToRender
	if text == "" && n.Summary+n.Body != "" {
		text = format.Render(n, format.OptionsFromSettings(e.base, time.Now()))
	}

	reserve := e.iconReserve(cl.Icon)
	maxText := max(1, g.MaxWidth-2*g.FrameWidth-2*g.HorizontalPadding-reserve)

	tl, err := e.shaper.Shape(text, TextStyle{
		Size:        e.settings.Text.FontSize,
		MaxWidth:    maxText,
		Markup:      markup.ParseMode(e.settings.Text.Markup),
		Alignment:   strings.ToLower(e.settings.Text.Alignment),
		Ellipsize:   strings.ToLower(e.settings.Text.Ellipsize),
		WordWrap:    e.settings.Text.WordWrap,
		LineSpacing: e.settings.Text.LineSpacing,
	})
	if err != nil {
		return nil, &LayoutError{ID: n.ID, Op: "shape", Cause: err}
	}
	if tl == nil {
		return nil, &LayoutError{ID: n.ID, Op: "shape", Cause: ErrNoTextLayout}
	}
	cl.Text = tl

	tw, th := tl.Size()
	iconW, iconH := 0, 0
	if cl.Icon != nil {
		iconW, iconH = cl.Icon.Bounds().Dx(), cl.Icon.Bounds().Dy()
	}

	content := max(th, iconH)
	width := tw + reserve
	if cl.Icon != nil && tw == 0 {
		width = iconW
	}
	if e.progressShown(n.Progress) {
		content += g.Padding + e.settings.ProgressBar.Height
		width = max(width, e.settings.ProgressBar.MinWidth)
	}

	cl.Width = width + 2*g.HorizontalPadding
	cl.Height = e.itemHeight(content)

	return cl, nil
}

// itemHeight applies padding and the configured height bounds to a content height.
func (e *Engine) itemHeight(content int) int {
	g := e.settings.Geometry
	h := max(content+2*g.Padding, g.Height)
	if g.MaxHeight > 0 {
		h = min(h, g.MaxHeight)
	}
	return h
}

// colors resolves the item colours from the urgency defaults and the
// notification's own overrides. Unparsable overrides are ignored.
func (e *Engine) colors(n *model.Notification) Colors {
	u := e.settings.Urgency(n.Urgency)

	pick := func(field, override, fallback string) color.NRGBA {
		if override != "" {
			c, err := config.ParseColor(override)
			if err == nil {
				return c
			}
			e.logger.Debug("ignoring colour hint", "id", n.ID, "field", field, "value", override)
		}
		c, _ := config.ParseColor(fallback)
		return c
	}

	return Colors{
		Foreground: pick("foreground", n.Colors.Foreground, u.Foreground),
		Background: pick("background", n.Colors.Background, u.Background),
		Frame:      pick("frame", n.Colors.Frame, u.Frame),
		Highlight:  pick("highlight", n.Colors.Highlight, u.Highlight),
	}
}

// LayoutSet is the ordered result of laying out a list of notifications.
// Errors holds one *LayoutError per dropped notification.
type LayoutSet struct {
	Layouts []*ColoredLayout
	Errors  []error
}

// Release releases every layout in the set.
func (s *LayoutSet) Release() {
	for _, cl := range s.Layouts {
		cl.Release()
	}
}

// Layouts builds layouts for ns in order. A notification whose layout fails
// is dropped and recorded; the rest proceed.
func (e *Engine) Layouts(ns []*model.Notification) *LayoutSet {
	set := &LayoutSet{Layouts: make([]*ColoredLayout, 0, len(ns))}
	for _, n := range ns {
		cl, err := e.LayoutFromNotification(n)
		if err != nil {
			e.logger.Warn("dropping notification from stack", "id", n.ID, "error", err)
			set.Errors = append(set.Errors, err)
			continue
		}
		set.Layouts = append(set.Layouts, cl)
	}
	return set
}

// WithLayouts builds the layouts for ns, calls fn and releases them afterwards,
// even when fn fails or panics.
func (e *Engine) WithLayouts(ns []*model.Notification, fn func(*LayoutSet) error) error {
	set := e.Layouts(ns)
	defer set.Release()
	return fn(set)
}
