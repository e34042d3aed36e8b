// Package icon resolves, decodes and scales notification icons.
package icon

import (
	"fmt"
	"image"
	_ "image/gif"  // decoder registration
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "golang.org/x/image/bmp" // decoder registration
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // decoder registration

	"github.com/jmylchreest/stackdraw/internal/config"
	"github.com/jmylchreest/stackdraw/internal/model"
)

// Extensions searched for named icons, in order.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

// Source loads notification icons. Decoded files are cached by path.
type Source struct {
	mu     sync.Mutex
	logger *slog.Logger

	minSize int
	maxSize int
	paths   []string

	cache map[string]image.Image
}

// NewSource creates a Source from the icon settings.
func NewSource(cfg config.IconConfig, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		logger:  logger,
		minSize: cfg.MinSize,
		maxSize: cfg.MaxSize,
		paths:   append([]string(nil), cfg.Paths...),
		cache:   make(map[string]image.Image),
	}
}

// Load returns the scaled icon for n. A preloaded image wins over IconPath,
// which wins over IconName. Missing or undecodable icons are reported absent.
func (s *Source) Load(n *model.Notification) (image.Image, bool) {
	if n.Icon != nil {
		return Scale(n.Icon, s.minSize, s.maxSize), true
	}

	for _, candidate := range []string{n.IconPath, n.IconName} {
		if candidate == "" {
			continue
		}
		path := s.Resolve(candidate)
		if path == "" {
			continue
		}
		img, err := s.decode(path)
		if err != nil {
			s.logger.Debug("icon not decodable", "path", path, "error", err)
			continue
		}
		return Scale(img, s.minSize, s.maxSize), true
	}

	if n.IconPath != "" || n.IconName != "" {
		s.logger.Debug("icon not found", "id", n.ID, "path", n.IconPath, "name", n.IconName)
	}
	return nil, false
}

// Resolve returns the file for an icon path or name, or "" when none exists.
func (s *Source) Resolve(name string) string {
	if filepath.IsAbs(name) {
		if fileExists(name) {
			return name
		}
		return ""
	}

	for _, dir := range s.paths {
		if filepath.Ext(name) != "" {
			if p := filepath.Join(dir, name); fileExists(p) {
				return p
			}
			continue
		}
		for _, ext := range Extensions {
			if p := filepath.Join(dir, name+ext); fileExists(p) {
				return p
			}
		}
	}
	return ""
}

func (s *Source) decode(path string) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if img, ok := s.cache[path]; ok {
		return img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	s.cache[path] = img
	return img, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Scale resizes img so its larger side lies within [minSize, maxSize], keeping
// the aspect ratio. A bound of 0 is ignored. Images already in range are returned as is.
func Scale(img image.Image, minSize, maxSize int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	larger := max(w, h)
	target := larger
	switch {
	case maxSize > 0 && larger > maxSize:
		target = maxSize
	case minSize > 0 && larger < minSize:
		target = minSize
	}
	if target == larger {
		return img
	}

	nw := max(1, w*target/larger)
	nh := max(1, h*target/larger)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
