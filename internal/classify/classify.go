// internal/classify/classify.go - Feature to shape classification
package classify

import (
	"github.com/valpere/tile_to_png/internal/feature"
	"github.com/valpere/tile_to_png/internal/shape"
	"github.com/valpere/tile_to_png/internal/zorder"
)

// Rule is one step of the classification cascade
type Rule struct {
	Name    string
	Matches func(f *feature.RawFeature) bool
	Build   func(f *feature.RawFeature) *shape.Shape
}

// Classifier evaluates its rules in order; the first matching rule wins and later rules
// are never consulted for that feature.
type Classifier struct {
	rules []Rule
}

// New creates a classifier with the default rule cascade
func New() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// NewWithRules creates a classifier with a custom rule cascade
func NewWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Rules returns the rule names in evaluation order
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Match returns the first rule matching f
func (c *Classifier) Match(f *feature.RawFeature) (Rule, bool) {
	for _, r := range c.rules {
		if r.Matches(f) {
			return r, true
		}
	}
	return Rule{}, false
}

// Classify turns f into a shape and widens bbox by the shape's coordinates.
// It returns nil when no rule matches; bbox is then left untouched.
func (c *Classifier) Classify(f *feature.RawFeature, bbox *feature.BoundingBox) *shape.Shape {
	r, ok := c.Match(f)
	if !ok {
		return nil
	}
	s := r.Build(f)
	bbox.ExtendAll(s.Coordinates)
	return s
}

// Tessellate classifies f and queues the resulting shape by its z-index
func (c *Classifier) Tessellate(f *feature.RawFeature, bbox *feature.BoundingBox, q *zorder.Scheduler) *shape.Shape {
	s := c.Classify(f, bbox)
	if s != nil {
		q.Push(s, s.ZIndex())
	}
	return s
}

// DefaultRules returns the classification cascade in precedence order
func DefaultRules() []Rule {
	return []Rule{
		{
			Name: "highway",
			Matches: func(f *feature.RawFeature) bool {
				return f.HasTag(KeyHighway, func(v string) bool {
					_, ok := ParseHighwayType(v)
					return ok
				})
			},
			Build: func(f *feature.RawFeature) *shape.Shape { return shape.NewRoad(f.Coordinates) },
		},
		{
			Name: "water",
			Matches: func(f *feature.RawFeature) bool {
				return f.HasKey(KeyWater) && f.Kind != feature.Point
			},
			Build: func(f *feature.RawFeature) *shape.Shape {
				return shape.NewWaterway(f.Coordinates, f.IsPolygon())
			},
		},
		{
			Name:    "border",
			Matches: IsBorder,
			Build:   func(f *feature.RawFeature) *shape.Shape { return shape.NewBorder(f.Coordinates) },
		},
		{
			Name:    "populated_place",
			Matches: IsPopulatedPlace,
			Build: func(f *feature.RawFeature) *shape.Shape {
				name, _ := f.Value(KeyName)
				return shape.NewPopulatedPlace(f.Coordinates, name)
			},
		},
		{
			Name:    "railway",
			Matches: func(f *feature.RawFeature) bool { return f.HasKey(KeyRailway) },
			Build:   func(f *feature.RawFeature) *shape.Shape { return shape.NewRailway(f.Coordinates) },
		},
		{
			Name: "natural",
			Matches: func(f *feature.RawFeature) bool {
				return f.IsPolygon() && f.HasKey(KeyNatural)
			},
			Build: func(f *feature.RawFeature) *shape.Shape {
				value, _ := f.Value(KeyNatural)
				return shape.NewGeoFeature(f.Coordinates, NaturalType(value), true)
			},
		},
		{
			Name: "boundary_forest",
			Matches: func(f *feature.RawFeature) bool {
				return f.HasTag(KeyBoundary, landIn(LandForest))
			},
			Build: geoBuilder(shape.GeoForest),
		},
		{
			Name: "landuse_forest",
			Matches: func(f *feature.RawFeature) bool {
				return f.HasTag(KeyLanduse, landIn(LandForest, LandOrchard))
			},
			Build: geoBuilder(shape.GeoForest),
		},
		{
			Name: "landuse_residential",
			Matches: polygonWith(KeyLanduse, landIn(
				LandCemetery, LandIndustrial, LandCommercial, LandSquare,
				LandConstruction, LandMilitary, LandQuarry, LandBrownfield,
			)),
			Build: geoBuilder(shape.GeoResidential),
		},
		{
			Name: "landuse_plain",
			Matches: polygonWith(KeyLanduse, landIn(
				LandFarm, LandMeadow, LandGrass, LandGreenfield,
				LandRecreationGround, LandWinterSports, LandAllotments,
			)),
			Build: geoBuilder(shape.GeoPlain),
		},
		{
			Name:    "landuse_water",
			Matches: polygonWith(KeyLanduse, landIn(LandReservoir, LandBasin)),
			Build:   geoBuilder(shape.GeoWater),
		},
		{
			Name: "building",
			Matches: func(f *feature.RawFeature) bool {
				return f.IsPolygon() && f.HasKeyPrefix(KeyBuilding)
			},
			Build: geoBuilder(shape.GeoResidential),
		},
		{
			Name: "leisure",
			Matches: func(f *feature.RawFeature) bool {
				return f.IsPolygon() && f.HasKey(KeyLeisure)
			},
			Build: geoBuilder(shape.GeoResidential),
		},
		{
			Name: "amenity",
			Matches: func(f *feature.RawFeature) bool {
				return f.IsPolygon() && f.HasKey(KeyAmenity)
			},
			Build: geoBuilder(shape.GeoResidential),
		},
	}
}

func polygonWith(key string, pred func(string) bool) func(*feature.RawFeature) bool {
	return func(f *feature.RawFeature) bool {
		return f.IsPolygon() && f.HasTag(key, pred)
	}
}

func geoBuilder(t shape.GeoFeatureType) func(*feature.RawFeature) *shape.Shape {
	return func(f *feature.RawFeature) *shape.Shape {
		return shape.NewGeoFeature(f.Coordinates, t, f.IsPolygon())
	}
}

// Bounds returns the bounding box of a set of already classified shapes
func Bounds(shapes []*shape.Shape) feature.BoundingBox {
	bbox := feature.NewBoundingBox()
	for _, s := range shapes {
		bbox.ExtendAll(s.Coordinates)
	}
	return bbox
}
