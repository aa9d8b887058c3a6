// pkg/mvt/decoder.go - Mapbox Vector Tile decoding implementation
package mvt

import (
	"errors"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
)

// DefaultExtent is used for layers that do not declare one
const DefaultExtent = 4096

// Coordinate system constants
const (
	CoordSystemWebMercator = "web-mercator"
	CoordSystemWGS84       = "wgs84"
)

// Options configures decoding
type Options struct {
	LayerFilter      []string `json:"layer_filter,omitempty"` // Only decode specified layers
	CoordinateSystem string   `json:"coordinate_system"`      // "web-mercator" or "wgs84"
}

// DefaultOptions returns options decoding every layer into Web Mercator
func DefaultOptions() *Options {
	return &Options{CoordinateSystem: CoordSystemWebMercator}
}

// ValidateOptions validates the decoding options
func ValidateOptions(options *Options) error {
	if options == nil {
		return fmt.Errorf("options are nil")
	}
	if options.CoordinateSystem != CoordSystemWebMercator && options.CoordinateSystem != CoordSystemWGS84 {
		return fmt.Errorf("invalid coordinate system: %s, must be '%s' or '%s'",
			options.CoordinateSystem, CoordSystemWebMercator, CoordSystemWGS84)
	}
	return nil
}

// Decoder handles decoding of Mapbox Vector Tiles and GeoJSON tiles
type Decoder struct {
	extent  int
	options *Options
}

// NewDecoder creates a new decoder with default settings
func NewDecoder() *Decoder {
	return &Decoder{
		extent:  DefaultExtent,
		options: DefaultOptions(),
	}
}

// NewDecoderWithExtent creates a new decoder with a custom fallback extent
func NewDecoderWithExtent(extent int) *Decoder {
	d := NewDecoder()
	d.extent = extent
	return d
}

// NewDecoderWithOptions creates a decoder with custom options
func NewDecoderWithOptions(options *Options) (*Decoder, error) {
	if err := ValidateOptions(options); err != nil {
		return nil, fmt.Errorf("invalid decoding options: %w", err)
	}
	return &Decoder{
		extent:  DefaultExtent,
		options: options,
	}, nil
}

// DecodedTile represents a decoded tile with its layers and metadata
type DecodedTile struct {
	Layers  map[string]*DecodedLayer `json:"layers"`
	Extent  int                      `json:"extent"`
	Version int                      `json:"version"`
	TileID  TileID                   `json:"tile_id"`
}

// DecodedLayer represents a single layer within a tile
type DecodedLayer struct {
	Name     string            `json:"name"`
	Features []*DecodedFeature `json:"features"`
	Extent   int               `json:"extent"`
	Version  int               `json:"version"`
	Skipped  int               `json:"skipped,omitempty"`
}

// DecodedFeature represents a single feature within a layer
type DecodedFeature struct {
	ID       interface{}            `json:"id,omitempty"`
	Tags     map[string]interface{} `json:"tags"`
	Type     string                 `json:"type"`
	Geometry orb.Geometry           `json:"geometry"`
}

// TileID represents the tile coordinates and zoom level
type TileID struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

func newDecodedTile(z, x, y, extent int) *DecodedTile {
	return &DecodedTile{
		Layers:  make(map[string]*DecodedLayer),
		Extent:  extent,
		Version: 2, // MVT specification version
		TileID:  TileID{Z: z, X: x, Y: y},
	}
}

// Decode decodes a Mapbox Vector Tile from binary Protocol Buffer data, gzipped or not
func (d *Decoder) Decode(data []byte, z, x, y int) (*DecodedTile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tile data")
	}
	if err := (TileID{Z: z, X: x, Y: y}).Validate(); err != nil {
		return nil, err
	}

	layers, err := mvt.Unmarshal(data)
	if errors.Is(err, mvt.ErrDataIsGZipped) {
		layers, err = mvt.UnmarshalGzipped(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal MVT data: %w", err)
	}

	decodedTile := newDecodedTile(z, x, y, d.extent)
	for _, layer := range layers {
		if !d.wantLayer(layer.Name) {
			continue
		}
		decodedTile.Layers[layer.Name] = d.decodeLayer(layer, z, x, y)
	}

	return decodedTile, nil
}

// decodeLayer processes a single layer from the MVT data
func (d *Decoder) decodeLayer(layer *mvt.Layer, z, x, y int) *DecodedLayer {
	extent := int(layer.Extent)
	if extent == 0 {
		extent = d.extent
	}
	decodedLayer := &DecodedLayer{
		Name:     layer.Name,
		Features: make([]*DecodedFeature, 0, len(layer.Features)),
		Extent:   extent,
		Version:  int(layer.Version),
	}

	transform := tileToMercator(z, x, y, float64(extent))
	if d.options.CoordinateSystem == CoordSystemWGS84 {
		transform = chain(transform, mercatorToWGS84)
	}

	for _, feature := range layer.Features {
		decodedFeature, err := decodeFeature(feature, transform)
		if err != nil {
			decodedLayer.Skipped++
			continue
		}
		decodedLayer.Features = append(decodedLayer.Features, decodedFeature)
	}

	return decodedLayer
}

// decodeFeature projects a single feature and records its geometry type
func decodeFeature(feature *geojson.Feature, transform func(orb.Point) orb.Point) (*DecodedFeature, error) {
	if feature == nil || feature.Geometry == nil {
		return nil, fmt.Errorf("feature has no geometry")
	}

	geometry := applyGeometryTransform(feature.Geometry, transform)

	decodedFeature := &DecodedFeature{
		ID:       feature.ID,
		Tags:     feature.Properties,
		Geometry: geometry,
	}
	if decodedFeature.Tags == nil {
		decodedFeature.Tags = map[string]interface{}{}
	}

	switch geometry.(type) {
	case orb.Point:
		decodedFeature.Type = geojson.TypePoint
	case orb.MultiPoint:
		decodedFeature.Type = geojson.TypeMultiPoint
	case orb.LineString:
		decodedFeature.Type = geojson.TypeLineString
	case orb.MultiLineString:
		decodedFeature.Type = geojson.TypeMultiLineString
	case orb.Polygon:
		decodedFeature.Type = geojson.TypePolygon
	case orb.MultiPolygon:
		decodedFeature.Type = geojson.TypeMultiPolygon
	default:
		return nil, fmt.Errorf("unsupported geometry type: %T", geometry)
	}

	return decodedFeature, nil
}

func (d *Decoder) wantLayer(name string) bool {
	return len(d.options.LayerFilter) == 0 || contains(d.options.LayerFilter, name)
}

// GetLayerNames returns the sorted names of all layers in the decoded tile
func (dt *DecodedTile) GetLayerNames() []string {
	names := make([]string, 0, len(dt.Layers))
	for name := range dt.Layers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetFeatureCount returns the total number of features across all layers
func (dt *DecodedTile) GetFeatureCount() int {
	count := 0
	for _, layer := range dt.Layers {
		count += len(layer.Features)
	}
	return count
}

// GetLayerFeatureCount returns the number of features in a specific layer
func (dt *DecodedTile) GetLayerFeatureCount(layerName string) int {
	if layer, exists := dt.Layers[layerName]; exists {
		return len(layer.Features)
	}
	return 0
}

// HasLayer checks if the tile contains a specific layer
func (dt *DecodedTile) HasLayer(layerName string) bool {
	_, exists := dt.Layers[layerName]
	return exists
}

// IsEmpty returns true if the tile contains no features
func (dt *DecodedTile) IsEmpty() bool {
	return dt.GetFeatureCount() == 0
}

// String returns a string representation of the tile ID
func (tid TileID) String() string {
	return fmt.Sprintf("%d/%d/%d", tid.Z, tid.X, tid.Y)
}

// Validate checks if the tile coordinates are valid
func (tid TileID) Validate() error {
	if tid.Z < 0 || tid.Z > 22 {
		return fmt.Errorf("invalid zoom level %d: must be between 0 and 22", tid.Z)
	}

	maxTile := 1 << uint(tid.Z)
	if tid.X < 0 || tid.X >= maxTile {
		return fmt.Errorf("invalid X coordinate %d for zoom %d: must be between 0 and %d", tid.X, tid.Z, maxTile-1)
	}

	if tid.Y < 0 || tid.Y >= maxTile {
		return fmt.Errorf("invalid Y coordinate %d for zoom %d: must be between 0 and %d", tid.Y, tid.Z, maxTile-1)
	}

	return nil
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
