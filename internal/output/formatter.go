// internal/output/formatter.go - Output formatting implementation
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/valpere/tile_to_png/internal/shape"
	"github.com/valpere/tile_to_png/internal/tile"
)

// PNGFormatter encodes rendered rasters as PNG
type PNGFormatter struct {
	encoder png.Encoder
}

// NewPNGFormatter creates a new PNG formatter
func NewPNGFormatter() *PNGFormatter {
	return &PNGFormatter{encoder: png.Encoder{CompressionLevel: png.BestSpeed}}
}

// Format encodes a single tile image
func (f *PNGFormatter) Format(t *tile.RenderedTile) ([]byte, error) {
	if t.Error != nil {
		return nil, fmt.Errorf("cannot format tile with error: %w", t.Error)
	}
	if t.Image == nil {
		return nil, fmt.Errorf("tile %s has no image", t.Coordinate)
	}
	return f.encode(t.Image)
}

// FormatBatch stitches tiles of a single zoom level into one mosaic, placed by their x/y
func (f *PNGFormatter) FormatBatch(tiles []*tile.RenderedTile) ([]byte, error) {
	var ok []*tile.RenderedTile
	for _, t := range tiles {
		if t.Error == nil && t.Image != nil {
			ok = append(ok, t)
		}
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("no rendered tiles to stitch")
	}

	first := ok[0]
	z := first.Coordinate.Z
	tw, th := first.Image.Bounds().Dx(), first.Image.Bounds().Dy()
	minX, maxX, minY, maxY := first.Coordinate.X, first.Coordinate.X, first.Coordinate.Y, first.Coordinate.Y
	for _, t := range ok {
		if t.Coordinate.Z != z {
			return nil, fmt.Errorf("cannot stitch tiles of zoom %d and %d", z, t.Coordinate.Z)
		}
		if b := t.Image.Bounds(); b.Dx() != tw || b.Dy() != th {
			return nil, fmt.Errorf("tile %s is %dx%d, expected %dx%d", t.Coordinate, b.Dx(), b.Dy(), tw, th)
		}
		minX, maxX = min(minX, t.Coordinate.X), max(maxX, t.Coordinate.X)
		minY, maxY = min(minY, t.Coordinate.Y), max(maxY, t.Coordinate.Y)
	}

	mosaic := image.NewRGBA(image.Rect(0, 0, (maxX-minX+1)*tw, (maxY-minY+1)*th))
	draw.Draw(mosaic, mosaic.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	for _, t := range ok {
		at := image.Pt((t.Coordinate.X-minX)*tw, (t.Coordinate.Y-minY)*th)
		draw.Draw(mosaic, image.Rectangle{Min: at, Max: at.Add(image.Pt(tw, th))}, t.Image, t.Image.Bounds().Min, draw.Src)
	}
	return f.encode(mosaic)
}

func (f *PNGFormatter) encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("png encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type for PNG
func (f *PNGFormatter) ContentType() string {
	return "image/png"
}

// Extension returns the file extension for PNG
func (f *PNGFormatter) Extension() string {
	return ".png"
}

// GeoJSONFormatter writes classified shapes as a GeoJSON FeatureCollection
type GeoJSONFormatter struct {
	pretty       bool
	includeStats bool
}

// NewGeoJSONFormatter creates a new GeoJSON formatter
func NewGeoJSONFormatter(pretty, includeStats bool) *GeoJSONFormatter {
	return &GeoJSONFormatter{
		pretty:       pretty,
		includeStats: includeStats,
	}
}

// Format formats the shapes of a single tile, in paint order
func (f *GeoJSONFormatter) Format(t *tile.RenderedTile) ([]byte, error) {
	if t.Error != nil {
		return nil, fmt.Errorf("cannot format tile with error: %w", t.Error)
	}

	fc := geojson.NewFeatureCollection()
	for _, s := range t.Shapes {
		if feat := ShapeFeature(s); feat != nil {
			fc.Append(feat)
		}
	}

	if f.includeStats && t.Metadata != nil {
		fc.ExtraMembers = geojson.Properties{
			"_metadata": map[string]interface{}{
				"tile_coordinate": t.Coordinate,
				"layers":          t.Metadata.Layers,
				"feature_count":   t.Metadata.FeatureCount,
				"shape_count":     t.Metadata.ShapeCount,
				"dropped":         t.Metadata.Dropped,
				"kinds":           t.Metadata.Kinds,
				"process_time":    t.Metadata.ProcessTime,
			},
		}
	}
	return f.marshal(fc)
}

// FormatBatch merges the shapes of every successful tile into one FeatureCollection
func (f *GeoJSONFormatter) FormatBatch(tiles []*tile.RenderedTile) ([]byte, error) {
	fc := geojson.NewFeatureCollection()

	var processedTiles, failedTiles int
	for _, t := range tiles {
		if t.Error != nil {
			failedTiles++
			continue
		}
		processedTiles++

		for _, s := range t.Shapes {
			feat := ShapeFeature(s)
			if feat == nil {
				continue
			}
			if f.includeStats {
				feat.Properties["_tile"] = t.Coordinate.String()
			}
			fc.Append(feat)
		}
	}

	if f.includeStats {
		fc.ExtraMembers = geojson.Properties{
			"_metadata": map[string]interface{}{
				"total_tiles":     len(tiles),
				"processed_tiles": processedTiles,
				"failed_tiles":    failedTiles,
				"total_features":  len(fc.Features),
				"generated_at":    time.Now().UTC(),
			},
		}
	}
	return f.marshal(fc)
}

func (f *GeoJSONFormatter) marshal(fc *geojson.FeatureCollection) ([]byte, error) {
	if f.pretty {
		return json.MarshalIndent(fc, "", "  ")
	}
	return fc.MarshalJSON()
}

// ContentType returns the MIME type for GeoJSON
func (f *GeoJSONFormatter) ContentType() string {
	return "application/geo+json"
}

// Extension returns the file extension for GeoJSON
func (f *GeoJSONFormatter) Extension() string {
	return ".geojson"
}

// ShapeFeature converts a shape to a GeoJSON feature carrying its kind and style.
// It returns nil for a shape without coordinates.
func ShapeFeature(s *shape.Shape) *geojson.Feature {
	var geom orb.Geometry
	switch {
	case len(s.Coordinates) == 0:
		return nil
	case len(s.Coordinates) == 1:
		geom = s.Coordinates[0]
	case s.Area:
		geom = orb.Polygon{orb.Ring(s.Coordinates)}
	default:
		geom = orb.LineString(s.Coordinates)
	}

	feat := geojson.NewFeature(geom)
	style := s.Style()
	feat.Properties["kind"] = s.Kind.String()
	feat.Properties["z_index"] = s.ZIndex()
	feat.Properties["stroke"] = hex(style.Stroke)
	feat.Properties["stroke_width"] = style.Width
	if s.Kind == shape.KindGeoFeature {
		feat.Properties["subtype"] = s.GeoType.String()
	}
	if style.Filled {
		feat.Properties["fill"] = hex(style.Fill)
	}
	if len(style.Dash) > 0 {
		feat.Properties["dash"] = style.Dash
	}
	if s.Name != "" {
		feat.Properties["name"] = s.Name
	}
	return feat
}

func hex(c color.Color) string {
	if c == nil {
		return ""
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// JSONFormatter reports per-tile metadata as structured JSON objects
type JSONFormatter struct {
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(pretty bool) *JSONFormatter {
	return &JSONFormatter{pretty: pretty}
}

// Format formats a single tile's metadata as a JSON object
func (f *JSONFormatter) Format(t *tile.RenderedTile) ([]byte, error) {
	return f.marshal(summary(t))
}

// FormatBatch formats the metadata of multiple tiles as a JSON document with totals
func (f *JSONFormatter) FormatBatch(tiles []*tile.RenderedTile) ([]byte, error) {
	output := make([]interface{}, 0, len(tiles))
	var successCount, errorCount int
	for _, t := range tiles {
		if t.Error != nil {
			errorCount++
		} else {
			successCount++
		}
		output = append(output, summary(t))
	}

	return f.marshal(map[string]interface{}{
		"tiles": output,
		"summary": map[string]interface{}{
			"total_tiles":   len(tiles),
			"success_tiles": successCount,
			"failed_tiles":  errorCount,
			"generated_at":  time.Now().UTC(),
		},
	})
}

func summary(t *tile.RenderedTile) map[string]interface{} {
	out := map[string]interface{}{
		"coordinate": t.Coordinate,
	}
	if t.Error != nil {
		out["error"] = t.Error.Error()
	} else if t.Metadata != nil {
		out["metadata"] = t.Metadata
	}
	return out
}

func (f *JSONFormatter) marshal(v interface{}) ([]byte, error) {
	if f.pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// ContentType returns the MIME type for JSON
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// Extension returns the file extension for JSON
func (f *JSONFormatter) Extension() string {
	return ".json"
}

// NewFormatter creates a formatter based on the specified configuration
func NewFormatter(config *FormatterConfig) (Formatter, error) {
	switch config.Format {
	case FormatPNG:
		return NewPNGFormatter(), nil
	case FormatGeoJSON:
		return NewGeoJSONFormatter(config.Pretty, config.IncludeStats), nil
	case FormatJSON:
		return NewJSONFormatter(config.Pretty), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", config.Format)
	}
}
