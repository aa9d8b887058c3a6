// internal/tile/ingest.go - Decoded tile to raw feature conversion
package tile

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/spf13/cast"

	"github.com/valpere/tile_to_png/internal/feature"
	"github.com/valpere/tile_to_png/pkg/mvt"
)

// Features flattens a decoded tile into raw features. Layers are visited in name order
// and tags are sorted by key so the result is deterministic. Multi-geometries become one
// feature per part, and polygons keep only their outer ring.
func Features(decoded *mvt.DecodedTile) []feature.RawFeature {
	if decoded == nil {
		return nil
	}

	var out []feature.RawFeature
	for _, name := range decoded.GetLayerNames() {
		for _, df := range decoded.Layers[name].Features {
			if df == nil || df.Geometry == nil {
				continue
			}
			tags := featureTags(df.Tags)
			out = appendGeometry(out, df.Geometry, tags)
		}
	}
	return out
}

func featureTags(props map[string]interface{}) []feature.Tag {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]feature.Tag, 0, len(keys))
	for _, k := range keys {
		value, err := cast.ToStringE(props[k])
		if err != nil {
			continue
		}
		tags = append(tags, feature.Tag{Key: k, Value: value})
	}
	return tags
}

func appendGeometry(out []feature.RawFeature, geom orb.Geometry, tags []feature.Tag) []feature.RawFeature {
	add := func(kind feature.GeometryKind, points []orb.Point) {
		if len(points) == 0 {
			return
		}
		out = append(out, feature.RawFeature{Kind: kind, Coordinates: points, Tags: tags})
	}

	switch g := geom.(type) {
	case orb.Point:
		add(feature.Point, []orb.Point{g})
	case orb.MultiPoint:
		for _, p := range g {
			add(feature.Point, []orb.Point{p})
		}
	case orb.LineString:
		add(feature.Line, []orb.Point(g))
	case orb.MultiLineString:
		for _, ls := range g {
			add(feature.Line, []orb.Point(ls))
		}
	case orb.Ring:
		add(feature.Polygon, []orb.Point(g))
	case orb.Polygon:
		if len(g) > 0 {
			add(feature.Polygon, []orb.Point(g[0]))
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			if len(poly) > 0 {
				add(feature.Polygon, []orb.Point(poly[0]))
			}
		}
	case orb.Collection:
		for _, part := range g {
			out = appendGeometry(out, part, tags)
		}
	}
	return out
}
