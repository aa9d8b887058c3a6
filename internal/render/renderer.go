// internal/render/renderer.go - Z-ordered canvas renderer
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/tile_to_png/internal/feature"
	"github.com/valpere/tile_to_png/internal/zorder"
)

// ErrInvalidSize is returned for a non-positive output width or height
var ErrInvalidSize = errors.New("render size must be positive")

// Stats describes a finished render pass
type Stats struct {
	Drawn    int           `json:"drawn"`
	Skipped  int           `json:"skipped"`
	Scale    float64       `json:"scale"`
	Empty    bool          `json:"empty"`
	Duration time.Duration `json:"duration"`
}

// Renderer paints a tile's scheduled shapes onto a surface
type Renderer struct {
	Background color.Color
	logger     zerolog.Logger
}

// Option configures a Renderer
type Option func(*Renderer)

// WithBackground sets the colour the surface is cleared to
func WithBackground(c color.Color) Option {
	return func(r *Renderer) {
		if c != nil {
			r.Background = c
		}
	}
}

// WithLogger sets the logger used for per-tile debug output
func WithLogger(l zerolog.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// New creates a renderer with a white background
func New(opts ...Option) *Renderer {
	r := &Renderer{
		Background: color.White,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scale returns the uniform scale fitting bbox into width x height. It reports false when
// the box is empty or has no extent on either axis.
func Scale(bbox feature.BoundingBox, width, height int) (float64, bool) {
	if bbox.IsEmpty() {
		return 0, false
	}
	dx, dy := bbox.Width(), bbox.Height()
	if dx == 0 && dy == 0 {
		return 0, false
	}
	scaleX, scaleY := math.Inf(1), math.Inf(1)
	if dx > 0 {
		scaleX = float64(width) / dx
	}
	if dy > 0 {
		scaleY = float64(height) / dy
	}
	return math.Min(scaleX, scaleY), true
}

// Draw clears s and drains q onto it, lowest priority first. The queue is always left
// empty, including for a degenerate bounding box where only the background is painted.
func (r *Renderer) Draw(q *zorder.Scheduler, bbox feature.BoundingBox, s Surface) (Stats, error) {
	start := time.Now()
	width, height := s.Size()
	if width <= 0 || height <= 0 {
		return Stats{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	s.FillBackground(r.Background)

	scale, ok := Scale(bbox, width, height)
	stats := Stats{Scale: scale, Empty: !ok}
	if !ok {
		r.logger.Debug().Str("bbox", bbox.String()).Int("queued", q.Len()).Msg("degenerate bounding box, rendering background only")
	}

	for {
		sh, more := q.PopMin()
		if !more {
			break
		}
		if !ok || len(sh.Coordinates) < 2 {
			stats.Skipped++
			continue
		}
		if sh.Transformed() {
			r.logger.Warn().Str("shape", sh.String()).Msg("shape already in raster space, skipping")
			stats.Skipped++
			continue
		}
		sh.TranslateAndScale(bbox.MinX, bbox.MinY, scale, float64(height))

		style := sh.Style()
		var err error
		if style.Filled {
			err = s.FillPolygon(sh.Coordinates, style.Fill)
		} else {
			err = s.DrawPolyline(sh.Coordinates, style)
		}
		if err != nil {
			// keep the queue single-use even on failure
			for q.Len() > 0 {
				q.PopMin()
			}
			return stats, fmt.Errorf("failed to draw %s: %w", sh.Kind, err)
		}
		stats.Drawn++
	}

	stats.Duration = time.Since(start)
	r.logger.Debug().
		Int("drawn", stats.Drawn).
		Int("skipped", stats.Skipped).
		Float64("scale", stats.Scale).
		Dur("duration", stats.Duration).
		Msg("tile rendered")
	return stats, nil
}

// Render draws q onto a new width x height RGBA image
func (r *Renderer) Render(q *zorder.Scheduler, bbox feature.BoundingBox, width, height int) (*image.RGBA, Stats, error) {
	if width <= 0 || height <= 0 {
		return nil, Stats{}, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	surface, err := NewGGSurface(width, height)
	if err != nil {
		return nil, Stats{}, err
	}
	defer surface.Close()

	stats, err := r.Draw(q, bbox, surface)
	if err != nil {
		return nil, stats, err
	}
	return surface.Image(), stats, nil
}
