// internal/render/gg.go - Raster surface backed by gogpu/gg
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/gg"
	"github.com/paulmach/orb"

	"github.com/valpere/tile_to_png/internal/shape"
)

// GGSurface draws onto an RGBA8 gg context
type GGSurface struct {
	dc     *gg.Context
	width  int
	height int
}

// NewGGSurface allocates a width x height surface
func NewGGSurface(width, height int) (*GGSurface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	return &GGSurface{
		dc:     gg.NewContext(width, height),
		width:  width,
		height: height,
	}, nil
}

// Size returns the surface dimensions in pixels
func (s *GGSurface) Size() (int, int) {
	return s.width, s.height
}

// FillBackground clears the whole surface to c
func (s *GGSurface) FillBackground(c color.Color) {
	s.dc.ClearWithColor(gg.FromColor(c))
}

// DrawPolyline strokes an open path through points
func (s *GGSurface) DrawPolyline(points []orb.Point, style shape.Style) error {
	s.dc.SetColor(style.Stroke)
	s.dc.SetLineWidth(style.Width)
	s.dc.SetLineCap(gg.LineCapRound)
	s.dc.SetLineJoin(gg.LineJoinRound)
	if len(style.Dash) > 0 {
		s.dc.SetDash(style.Dash...)
	} else {
		s.dc.ClearDash()
	}
	s.trace(points, false)
	if err := s.dc.Stroke(); err != nil {
		return fmt.Errorf("stroke: %w", err)
	}
	return nil
}

// FillPolygon fills the ring described by points; the ring is closed implicitly
func (s *GGSurface) FillPolygon(points []orb.Point, c color.Color) error {
	s.dc.SetColor(c)
	s.trace(points, true)
	if err := s.dc.Fill(); err != nil {
		return fmt.Errorf("fill: %w", err)
	}
	return nil
}

func (s *GGSurface) trace(points []orb.Point, closed bool) {
	s.dc.ClearPath()
	for i, p := range points {
		if i == 0 {
			s.dc.MoveTo(p.X(), p.Y())
			continue
		}
		s.dc.LineTo(p.X(), p.Y())
	}
	if closed {
		s.dc.ClosePath()
	}
}

// Image returns a copy of the surface pixels
func (s *GGSurface) Image() *image.RGBA {
	img := s.dc.Image()
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// Close releases the context
func (s *GGSurface) Close() error {
	return s.dc.Close()
}
