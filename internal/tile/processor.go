// internal/tile/processor.go - Tile decoding, classification and rendering
package tile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/tile_to_png/internal"
	"github.com/valpere/tile_to_png/internal/classify"
	"github.com/valpere/tile_to_png/internal/config"
	"github.com/valpere/tile_to_png/internal/metrics"
	"github.com/valpere/tile_to_png/internal/render"
	"github.com/valpere/tile_to_png/internal/shape"
	"github.com/valpere/tile_to_png/pkg/mvt"
)

// Source formats understood by the processor
const (
	FormatMVT     = "mvt"
	FormatGeoJSON = "geojson"
)

// RenderProcessor implements the Processor interface: decode, classify, then rasterize
type RenderProcessor struct {
	decoder    *mvt.Decoder
	classifier *classify.Classifier
	renderer   *render.Renderer
	width      int
	height     int
	workers    int
	format     string
	shapesOnly bool
	metrics    *metrics.Provider
	logger     zerolog.Logger
}

// ProcessorOption configures a RenderProcessor
type ProcessorOption func(*RenderProcessor)

// WithMetrics records per-tile counters on m
func WithMetrics(m *metrics.Provider) ProcessorOption {
	return func(p *RenderProcessor) { p.metrics = m }
}

// WithProcessorLogger sets the logger used by the processor and its renderer
func WithProcessorLogger(l zerolog.Logger) ProcessorOption {
	return func(p *RenderProcessor) { p.logger = l }
}

// WithShapesOnly skips rasterization; RenderedTile.Shapes then holds the classified
// shapes in paint order and in source coordinates.
func WithShapesOnly() ProcessorOption {
	return func(p *RenderProcessor) { p.shapesOnly = true }
}

// WithClassifier replaces the default rule cascade
func WithClassifier(c *classify.Classifier) ProcessorOption {
	return func(p *RenderProcessor) { p.classifier = c }
}

// NewRenderProcessor creates a processor from the render and source configuration
func NewRenderProcessor(cfg *config.Config, opts ...ProcessorOption) (*RenderProcessor, error) {
	decoder, err := mvt.NewDecoderWithOptions(&mvt.Options{
		LayerFilter:      cfg.Render.Layers,
		CoordinateSystem: cfg.Render.CoordinateSystem,
	})
	if err != nil {
		return nil, internal.NewError(internal.ErrorCodeConfig, "invalid render configuration", err)
	}

	format := strings.ToLower(cfg.Source.Format)
	if format == "" {
		format = FormatMVT
	}

	p := &RenderProcessor{
		decoder:    decoder,
		classifier: classify.New(),
		width:      cfg.Render.Width,
		height:     cfg.Render.Height,
		workers:    cfg.Render.Workers,
		format:     format,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.renderer = render.New(
		render.WithBackground(cfg.Render.BackgroundColor()),
		render.WithLogger(p.logger),
	)
	return p, nil
}

// Process renders a single fetched tile
func (p *RenderProcessor) Process(ctx context.Context, response *TileResponse) (*RenderedTile, error) {
	coordinate := NewTileCoordinate(response.Request.Z, response.Request.X, response.Request.Y)

	if response.Error != nil {
		return p.fail(coordinate, fmt.Errorf("tile fetch failed: %w", response.Error))
	}
	if len(response.Data) == 0 {
		return p.fail(coordinate, internal.NewError(internal.ErrorCodeProcessing,
			fmt.Sprintf("empty tile data for tile %s", coordinate), nil))
	}

	rendered, err := p.RenderData(ctx, response.Data, coordinate)
	if err != nil {
		return rendered, err
	}
	rendered.Metadata.Compressed = isCompressed(response.Headers)
	return rendered, nil
}

// RenderData renders raw tile bytes in the configured source format
func (p *RenderProcessor) RenderData(ctx context.Context, data []byte, coordinate *TileCoordinate) (*RenderedTile, error) {
	start := time.Now()

	decoded, err := p.decode(data, coordinate)
	if err != nil {
		return p.fail(coordinate, internal.NewError(internal.ErrorCodeProcessing, "tile decoding failed", err))
	}

	features := Features(decoded)
	result, err := classify.ClassifyAll(ctx, p.classifier, features, p.workers)
	if err != nil {
		return p.fail(coordinate, fmt.Errorf("classification of tile %s cancelled: %w", coordinate, err))
	}

	kinds := make(map[string]int, len(result.Counts))
	for k, n := range result.Counts {
		kinds[k.String()] = n
	}
	rendered := &RenderedTile{
		Coordinate: coordinate,
		Metadata: &TileMetadata{
			Layers:       decoded.GetLayerNames(),
			FeatureCount: len(features),
			ShapeCount:   result.Classified(),
			Dropped:      result.Dropped,
			Kinds:        kinds,
			Size:         len(data),
			Version:      decoded.Version,
			Extent:       decoded.Extent,
		},
	}

	if !result.Bounds.IsEmpty() {
		b := result.Bounds.Bound()
		rendered.Metadata.Bounds = &b
	}

	if p.shapesOnly {
		rendered.Shapes = drain(result)
	} else {
		img, stats, err := p.renderer.Render(result.Queue, result.Bounds, p.width, p.height)
		if err != nil {
			return p.fail(coordinate, internal.NewError(internal.ErrorCodeRender,
				fmt.Sprintf("rendering tile %s failed", coordinate), err))
		}
		rendered.Image = img
		rendered.Metadata.Render = stats
	}

	rendered.Metadata.ProcessTime = time.Since(start)
	p.metrics.ObserveTile(kinds, result.Dropped, rendered.Metadata.ProcessTime)
	p.logger.Debug().
		Str("tile", coordinate.String()).
		Int("features", len(features)).
		Int("shapes", rendered.Metadata.ShapeCount).
		Int("dropped", result.Dropped).
		Dur("elapsed", rendered.Metadata.ProcessTime).
		Msg("tile processed")
	return rendered, nil
}

func (p *RenderProcessor) decode(data []byte, c *TileCoordinate) (*mvt.DecodedTile, error) {
	if p.format == FormatGeoJSON {
		return p.decoder.DecodeGeoJSON(data, c.Z, c.X, c.Y)
	}
	return p.decoder.Decode(data, c.Z, c.X, c.Y)
}

func (p *RenderProcessor) fail(coordinate *TileCoordinate, err error) (*RenderedTile, error) {
	p.metrics.TileFailed(internal.ErrorCodeOf(err))
	return &RenderedTile{Coordinate: coordinate, Error: err}, err
}

// drain empties the queue into a slice in paint order
func drain(result *classify.Result) []*shape.Shape {
	shapes := make([]*shape.Shape, 0, result.Queue.Len())
	for {
		s, ok := result.Queue.PopMin()
		if !ok {
			return shapes
		}
		shapes = append(shapes, s)
	}
}

// isCompressed checks if the tile data was compressed based on response headers
func isCompressed(headers map[string][]string) bool {
	if contentEncoding, exists := headers["Content-Encoding"]; exists {
		for _, encoding := range contentEncoding {
			if encoding == "gzip" || encoding == "deflate" {
				return true
			}
		}
	}
	return false
}

// ValidateCoordinates ensures tile coordinates are within valid bounds
func ValidateCoordinates(z, x, y int) error {
	if z < 0 || z > 22 {
		return fmt.Errorf("invalid zoom level %d: must be between 0 and 22", z)
	}

	maxTile := 1 << uint(z)
	if x < 0 || x >= maxTile {
		return fmt.Errorf("invalid x coordinate %d for zoom %d: must be between 0 and %d", x, z, maxTile-1)
	}

	if y < 0 || y >= maxTile {
		return fmt.Errorf("invalid y coordinate %d for zoom %d: must be between 0 and %d", y, z, maxTile-1)
	}

	return nil
}
