// pkg/mvt/geojson.go - GeoJSON FeatureCollection tiles
package mvt

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LayerProperty names the property that assigns a GeoJSON feature to a layer
const LayerProperty = "_layer"

// DefaultGeoJSONLayer holds GeoJSON features without a layer property
const DefaultGeoJSONLayer = "geojson"

// DecodeGeoJSON decodes a FeatureCollection whose coordinates are longitude/latitude.
// Features are grouped into layers by their "_layer" property.
func (d *Decoder) DecodeGeoJSON(data []byte, z, x, y int) (*DecodedTile, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty tile data")
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal GeoJSON data: %w", err)
	}

	transform := func(p orb.Point) orb.Point { return p }
	if d.options.CoordinateSystem == CoordSystemWebMercator {
		transform = wgs84ToMercator
	}

	decodedTile := newDecodedTile(z, x, y, d.extent)
	for _, feature := range fc.Features {
		name := DefaultGeoJSONLayer
		if feature != nil {
			if v, ok := feature.Properties[LayerProperty].(string); ok && v != "" {
				name = v
			}
		}
		if !d.wantLayer(name) {
			continue
		}

		layer, exists := decodedTile.Layers[name]
		if !exists {
			layer = &DecodedLayer{Name: name, Extent: d.extent, Version: 2}
			decodedTile.Layers[name] = layer
		}

		decodedFeature, err := decodeFeature(feature, transform)
		if err != nil {
			layer.Skipped++
			continue
		}
		delete(decodedFeature.Tags, LayerProperty)
		layer.Features = append(layer.Features, decodedFeature)
	}

	return decodedTile, nil
}
