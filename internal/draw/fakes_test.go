package draw

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/model"
)

var errShapeFailed = errors.New("shape failed")

type fakeLayout struct {
	w, h     int
	text     string
	releases int
}

func (l *fakeLayout) Size() (int, int) { return l.w, l.h }
func (l *fakeLayout) Release()         { l.releases++ }
func (l *fakeLayout) Draw(dst *image.RGBA, r image.Rectangle, fg color.Color) {}

// fakeShaper returns a fixed size, or a per-text size from sizes.
type fakeShaper struct {
	mu     sync.Mutex
	w, h   int
	sizes  map[string]image.Point
	fail   map[string]bool
	styles []TextStyle
	shaped []*fakeLayout
}

func (s *fakeShaper) Shape(text string, style TextStyle) (TextLayout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.styles = append(s.styles, style)
	if s.fail[text] {
		return nil, errShapeFailed
	}
	l := &fakeLayout{w: s.w, h: s.h, text: text}
	if size, ok := s.sizes[text]; ok {
		l.w, l.h = size.X, size.Y
	}
	if text == "" {
		l.w, l.h = 0, 0
	}
	s.shaped = append(s.shaped, l)
	return l, nil
}

// fakeIcons hands back the notification's preloaded icon.
type fakeIcons struct{}

func (fakeIcons) Load(n *model.Notification) (image.Image, bool) {
	if n.Icon == nil {
		return nil, false
	}
	return n.Icon, true
}

type fill struct {
	r       image.Rectangle
	c       color.Color
	radius  int
	corners Corners
}

type recordingSurface struct {
	bounds image.Rectangle
	fills  []fill
	images []image.Rectangle
	texts  []image.Rectangle
}

func (s *recordingSurface) Bounds() image.Rectangle { return s.bounds }
func (s *recordingSurface) Fill(r image.Rectangle, c color.Color, radius int, corners Corners) {
	s.fills = append(s.fills, fill{r, c, radius, corners})
}
func (s *recordingSurface) DrawImage(r image.Rectangle, img image.Image) {
	s.images = append(s.images, r)
}
func (s *recordingSurface) DrawText(r image.Rectangle, l TextLayout, c color.Color) {
	s.texts = append(s.texts, r)
}

type fakeOutput struct {
	scale   float64
	created []image.Point
	err     error
}

func (o *fakeOutput) CreateSurface(size image.Point) (Surface, error) {
	if o.err != nil {
		return nil, o.err
	}
	o.created = append(o.created, size)
	return &recordingSurface{bounds: image.Rectangle{Max: size}}, nil
}
func (o *fakeOutput) Scale() float64            { return o.scale }
func (o *fakeOutput) IsIdle() bool              { return false }
func (o *fakeOutput) HasFullscreenWindow() bool { return false }

// testSettings pins the item height to 10 so every item is exactly that tall.
func testSettings() *config.Settings {
	s := config.DefaultSettings()
	s.Geometry.Height = 10
	s.Geometry.Padding = 0
	s.Geometry.FrameWidth = 3
	s.Geometry.SeparatorHeight = 2
	s.Geometry.GapSize = 0
	s.Geometry.Gaps = false
	s.Geometry.CornerRadius = 0
	return s
}

func testNotification(id string) *model.Notification {
	return &model.Notification{
		ID:           id,
		Summary:      "test",
		Timestamp:    10,
		Urgency:      model.UrgencyNormal,
		Progress:     model.NoProgress,
		IconPosition: model.IconLeft,
		TextToRender: "dummy layout",
	}
}

func testNotificationWithIcon(id string) *model.Notification {
	n := testNotification(id)
	n.Icon = image.NewRGBA(image.Rect(0, 0, 16, 16))
	return n
}

func dummyNotifications(count int) []*model.Notification {
	ns := make([]*model.Notification, count)
	for i := range ns {
		ns[i] = testNotification(string(rune('a' + i)))
	}
	return ns
}

func newTestEngine(s *config.Settings, shaper *fakeShaper) *Engine {
	return NewEngine(s, &fakeOutput{scale: 1}, shaper, fakeIcons{}, nil)
}
