// internal/shape/shape.go - Drawable shape variants and their paint order
package shape

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Kind identifies the shape variant
type Kind int

const (
	KindRoad Kind = iota
	KindWaterway
	KindBorder
	KindPopulatedPlace
	KindRailway
	KindGeoFeature
)

// String returns the name of the shape kind
func (k Kind) String() string {
	switch k {
	case KindRoad:
		return "road"
	case KindWaterway:
		return "waterway"
	case KindBorder:
		return "border"
	case KindPopulatedPlace:
		return "populated_place"
	case KindRailway:
		return "railway"
	case KindGeoFeature:
		return "geo_feature"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// GeoFeatureType is the terrain subtype of a GeoFeature shape
type GeoFeatureType int

const (
	GeoUnknown GeoFeatureType = iota
	GeoForest
	GeoWater
	GeoPlain
	GeoResidential
)

// String returns the name of the terrain subtype
func (t GeoFeatureType) String() string {
	switch t {
	case GeoForest:
		return "forest"
	case GeoWater:
		return "water"
	case GeoPlain:
		return "plain"
	case GeoResidential:
		return "residential"
	default:
		return "unknown"
	}
}

// Shape is a classified feature ready to be drawn. Coordinates start in feature space and
// are moved to raster space exactly once by TranslateAndScale.
type Shape struct {
	Kind        Kind
	GeoType     GeoFeatureType // only meaningful for KindGeoFeature
	Area        bool           // polygon rather than polyline; Waterway and GeoFeature
	Name        string         // settlement name for KindPopulatedPlace
	Coordinates []orb.Point

	transformed bool
}

func newShape(kind Kind, coords []orb.Point) *Shape {
	return &Shape{
		Kind:        kind,
		Coordinates: clonePoints(coords),
	}
}

// NewRoad creates a road polyline
func NewRoad(coords []orb.Point) *Shape {
	return newShape(KindRoad, coords)
}

// NewWaterway creates a river/stream line or, when area is set, a water body
func NewWaterway(coords []orb.Point, area bool) *Shape {
	s := newShape(KindWaterway, coords)
	s.Area = area
	return s
}

// NewBorder creates a national border line
func NewBorder(coords []orb.Point) *Shape {
	return newShape(KindBorder, coords)
}

// NewPopulatedPlace creates a settlement marker
func NewPopulatedPlace(coords []orb.Point, name string) *Shape {
	s := newShape(KindPopulatedPlace, coords)
	s.Name = name
	return s
}

// NewRailway creates a railway line
func NewRailway(coords []orb.Point) *Shape {
	return newShape(KindRailway, coords)
}

// NewGeoFeature creates a terrain shape of the given subtype
func NewGeoFeature(coords []orb.Point, t GeoFeatureType, area bool) *Shape {
	s := newShape(KindGeoFeature, coords)
	s.GeoType = t
	s.Area = area
	return s
}

// ZIndex is the paint priority; lower values are drawn first, underneath.
func (s *Shape) ZIndex() int {
	if s.Kind == KindGeoFeature {
		return geoZIndex[s.GeoType]
	}
	return kindZIndex[s.Kind]
}

// Style returns the drawing parameters for the shape
func (s *Shape) Style() Style {
	return styleFor(s)
}

// Transformed reports whether the shape is already in raster space
func (s *Shape) Transformed() bool {
	return s.transformed
}

// TranslateAndScale maps the coordinates into raster space in place:
// x' = (x-minX)*scale, y' = height-(y-minY)*scale. It returns false, leaving the
// coordinates untouched, when the shape has already been transformed.
func (s *Shape) TranslateAndScale(minX, minY, scale, height float64) bool {
	if s.transformed {
		return false
	}
	for i, p := range s.Coordinates {
		s.Coordinates[i] = orb.Point{
			(p.X() - minX) * scale,
			height - (p.Y()-minY)*scale,
		}
	}
	s.transformed = true
	return true
}

// String returns a short description of the shape
func (s *Shape) String() string {
	if s.Kind == KindGeoFeature {
		return fmt.Sprintf("%s(%s) z=%d n=%d", s.Kind, s.GeoType, s.ZIndex(), len(s.Coordinates))
	}
	return fmt.Sprintf("%s z=%d n=%d", s.Kind, s.ZIndex(), len(s.Coordinates))
}

func clonePoints(points []orb.Point) []orb.Point {
	if points == nil {
		return nil
	}
	out := make([]orb.Point, len(points))
	copy(out, points)
	return out
}
