// Package surface provides an in-memory drawing surface and a headless output.
package surface

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	stackdraw "github.com/jmylchreest/stackdraw/internal/draw"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522848

// Image is a draw.Surface backed by an RGBA image.
type Image struct {
	img *image.RGBA
}

var _ stackdraw.Surface = (*Image)(nil)

// NewImage creates a transparent surface of the given size.
func NewImage(size image.Point) *Image {
	return &Image{img: image.NewRGBA(image.Rectangle{Max: size})}
}

// Bounds returns the surface bounds.
func (s *Image) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// RGBA returns the backing image.
func (s *Image) RGBA() *image.RGBA {
	return s.img
}

// Fill paints r with c, rounding the selected corners by radius.
func (s *Image) Fill(r image.Rectangle, c color.Color, radius int, corners stackdraw.Corners) {
	r = r.Intersect(s.img.Bounds())
	if r.Empty() {
		return
	}

	src := image.NewUniform(c)
	radius = min(radius, r.Dx()/2, r.Dy()/2)
	if radius <= 0 || corners == stackdraw.CornersNone {
		draw.Draw(s.img, r, src, image.Point{}, draw.Over)
		return
	}

	w, h := float32(r.Dx()), float32(r.Dy())
	rad := func(c stackdraw.Corners) float32 {
		if corners&c != 0 {
			return float32(radius)
		}
		return 0
	}
	tl, tr := rad(stackdraw.CornerTopLeft), rad(stackdraw.CornerTopRight)
	bl, br := rad(stackdraw.CornerBottomLeft), rad(stackdraw.CornerBottomRight)

	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.MoveTo(tl, 0)
	z.LineTo(w-tr, 0)
	if tr > 0 {
		z.CubeTo(w-tr+kappa*tr, 0, w, tr-kappa*tr, w, tr)
	}
	z.LineTo(w, h-br)
	if br > 0 {
		z.CubeTo(w, h-br+kappa*br, w-br+kappa*br, h, w-br, h)
	}
	z.LineTo(bl, h)
	if bl > 0 {
		z.CubeTo(bl-kappa*bl, h, 0, h-bl+kappa*bl, 0, h-bl)
	}
	z.LineTo(0, tl)
	if tl > 0 {
		z.CubeTo(0, tl-kappa*tl, tl-kappa*tl, 0, tl, 0)
	}
	z.ClosePath()
	z.DrawOp = draw.Over
	z.Draw(s.img, r, src, image.Point{})
}

// DrawImage composites img into r, top-left aligned and clipped to r.
func (s *Image) DrawImage(r image.Rectangle, img image.Image) {
	b := img.Bounds()
	target := image.Rectangle{Min: r.Min, Max: r.Min.Add(b.Size())}.Intersect(r)
	draw.Draw(s.img, target, img, b.Min, draw.Over)
}

// DrawText paints a shaped layout into r.
func (s *Image) DrawText(r image.Rectangle, l stackdraw.TextLayout, c color.Color) {
	l.Draw(s.img, r.Intersect(s.img.Bounds()), c)
}

// WritePNG encodes the surface as PNG.
func (s *Image) WritePNG(w io.Writer) error {
	return png.Encode(w, s.img)
}

// SavePNG writes the surface to path atomically via a temp file.
func (s *Image) SavePNG(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".stackdraw-*.png")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := s.WritePNG(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write png: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename png: %w", err)
	}
	return nil
}
