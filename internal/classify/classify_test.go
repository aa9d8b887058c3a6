// internal/classify/classify_test.go - Unit tests for the classification cascade
package classify

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"

	"github.com/valpere/tile_to_png/internal/feature"
	"github.com/valpere/tile_to_png/internal/shape"
	"github.com/valpere/tile_to_png/internal/zorder"
)

var (
	square = []orb.Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	path   = []orb.Point{{0, 0}, {5, 5}, {9, 2}}
	dot    = []orb.Point{{3, 4}}
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		feature  feature.RawFeature
		wantNil  bool
		wantKind shape.Kind
		wantGeo  shape.GeoFeatureType
		wantArea bool
	}{
		{"quarry polygon", feature.New(feature.Polygon, square, "landuse", "quarry"), false, shape.KindGeoFeature, shape.GeoResidential, true},
		{"primary highway", feature.New(feature.Line, path, "highway", "primary"), false, shape.KindRoad, 0, false},
		{"untagged point", feature.New(feature.Point, dot), true, 0, 0, false},
		{"basin polygon", feature.New(feature.Polygon, square, "landuse", "basin"), false, shape.KindGeoFeature, shape.GeoWater, true},
		{"highway case insensitive", feature.New(feature.Line, path, "highway", "Motorway"), false, shape.KindRoad, 0, false},
		{"unknown highway value", feature.New(feature.Line, path, "highway", "footway"), true, 0, 0, false},
		{"numeric highway value", feature.New(feature.Line, path, "highway", "3"), true, 0, 0, false},
		{"water line", feature.New(feature.Line, path, "water", "river"), false, shape.KindWaterway, 0, false},
		{"water polygon", feature.New(feature.Polygon, square, "water", "lake"), false, shape.KindWaterway, 0, true},
		{"water point dropped", feature.New(feature.Point, dot, "water", "well"), true, 0, 0, false},
		{"national border", feature.New(feature.Line, path, "boundary", "administrative", "admin_level", "2"), false, shape.KindBorder, 0, false},
		{"regional border dropped", feature.New(feature.Line, path, "boundary", "administrative", "admin_level", "4"), true, 0, 0, false},
		{"town", feature.New(feature.Point, dot, "place", "town", "name", "Lviv"), false, shape.KindPopulatedPlace, 0, false},
		{"town polygon dropped", feature.New(feature.Polygon, square, "place", "town"), true, 0, 0, false},
		{"railway", feature.New(feature.Line, path, "railway", "rail"), false, shape.KindRailway, 0, false},
		{"natural wood", feature.New(feature.Polygon, square, "natural", "wood"), false, shape.KindGeoFeature, shape.GeoForest, true},
		{"natural heath", feature.New(feature.Polygon, square, "natural", "heath"), false, shape.KindGeoFeature, shape.GeoPlain, true},
		{"natural water", feature.New(feature.Polygon, square, "natural", "water"), false, shape.KindGeoFeature, shape.GeoWater, true},
		{"natural unrecognized", feature.New(feature.Polygon, square, "natural", "glacier"), false, shape.KindGeoFeature, shape.GeoUnknown, true},
		{"natural line dropped", feature.New(feature.Line, path, "natural", "wood"), true, 0, 0, false},
		{"boundary forest line", feature.New(feature.Line, path, "boundary", "forest"), false, shape.KindGeoFeature, shape.GeoForest, false},
		{"landuse orchard", feature.New(feature.Polygon, square, "landuse", "orchard"), false, shape.KindGeoFeature, shape.GeoForest, true},
		{"landuse meadow", feature.New(feature.Polygon, square, "landuse", "meadow"), false, shape.KindGeoFeature, shape.GeoPlain, true},
		{"landuse meadow line dropped", feature.New(feature.Line, path, "landuse", "meadow"), true, 0, 0, false},
		{"building prefix", feature.New(feature.Polygon, square, "building:part", "yes"), false, shape.KindGeoFeature, shape.GeoResidential, true},
		{"leisure", feature.New(feature.Polygon, square, "leisure", "park"), false, shape.KindGeoFeature, shape.GeoResidential, true},
		{"amenity", feature.New(feature.Polygon, square, "amenity", "school"), false, shape.KindGeoFeature, shape.GeoResidential, true},
		{"amenity point dropped", feature.New(feature.Point, dot, "amenity", "cafe"), true, 0, 0, false},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bbox := feature.NewBoundingBox()
			s := c.Classify(&tt.feature, &bbox)
			if tt.wantNil {
				if s != nil {
					t.Fatalf("Expected no shape, got %s", s)
				}
				if !bbox.IsEmpty() {
					t.Errorf("Dropped feature widened bbox to %s", bbox)
				}
				return
			}
			if s == nil {
				t.Fatal("Expected a shape, got nil")
			}
			if s.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", s.Kind, tt.wantKind)
			}
			if s.Kind == shape.KindGeoFeature && s.GeoType != tt.wantGeo {
				t.Errorf("GeoType = %s, want %s", s.GeoType, tt.wantGeo)
			}
			if s.Area != tt.wantArea {
				t.Errorf("Area = %v, want %v", s.Area, tt.wantArea)
			}
			if bbox.IsEmpty() {
				t.Error("Classified feature did not widen bbox")
			}
		})
	}
}

func TestPopulatedPlaceName(t *testing.T) {
	f := feature.New(feature.Point, dot, "place", "city", "name", "Odesa")
	bbox := feature.NewBoundingBox()
	s := New().Classify(&f, &bbox)
	if s == nil || s.Name != "Odesa" {
		t.Fatalf("Expected populated place named Odesa, got %v", s)
	}
}

func TestHighwayPrecedence(t *testing.T) {
	others := [][]string{
		{"water", "river"},
		{"boundary", "administrative", "admin_level", "2"},
		{"railway", "rail"},
		{"landuse", "forest"},
		{"amenity", "parking"},
		{"natural", "wood"},
	}
	kinds := []feature.GeometryKind{feature.Line, feature.Polygon}

	c := New()
	for _, kind := range kinds {
		for _, extra := range others {
			kv := append([]string{"highway", "trunk"}, extra...)
			f := feature.New(kind, square, kv...)
			bbox := feature.NewBoundingBox()
			if s := c.Classify(&f, &bbox); s == nil || s.Kind != shape.KindRoad {
				t.Errorf("%s with %v: expected road, got %v", kind, extra, s)
			}
		}
	}
}

func TestForestBeatsAmenity(t *testing.T) {
	f := feature.New(feature.Polygon, square, "amenity", "x", "landuse", "forest")
	bbox := feature.NewBoundingBox()
	s := New().Classify(&f, &bbox)
	if s == nil || s.Kind != shape.KindGeoFeature || s.GeoType != shape.GeoForest {
		t.Errorf("Expected forest, got %v", s)
	}
}

func TestClassifyDoesNotAliasFeature(t *testing.T) {
	coords := []orb.Point{{1, 1}, {2, 2}}
	f := feature.New(feature.Line, coords, "railway", "rail")
	bbox := feature.NewBoundingBox()
	s := New().Classify(&f, &bbox)
	s.TranslateAndScale(0, 0, 10, 100)
	if f.Coordinates[0] != (orb.Point{1, 1}) {
		t.Errorf("Feature coordinates mutated: %v", f.Coordinates[0])
	}
}

func TestTessellateQueues(t *testing.T) {
	c := New()
	q := zorder.New()
	bbox := feature.NewBoundingBox()

	features := []feature.RawFeature{
		feature.New(feature.Line, path, "highway", "primary"),
		feature.New(feature.Point, dot),
		feature.New(feature.Polygon, square, "landuse", "farm"),
	}
	for i := range features {
		c.Tessellate(&features[i], &bbox, q)
	}

	if q.Len() != 2 {
		t.Fatalf("Expected 2 queued shapes, got %d", q.Len())
	}
	first, _ := q.PopMin()
	if first.Kind != shape.KindGeoFeature {
		t.Errorf("Expected terrain first, got %s", first)
	}
}

func TestRuleOrder(t *testing.T) {
	names := New().Rules()
	if len(names) != 14 {
		t.Fatalf("Expected 14 rules, got %d", len(names))
	}
	if names[0] != "highway" || names[len(names)-1] != "amenity" {
		t.Errorf("Unexpected rule order %v", names)
	}
}

func randomFeatures(n int, seed int64) []feature.RawFeature {
	r := rand.New(rand.NewSource(seed))
	tags := [][]string{
		{"highway", "primary"},
		{"water", "river"},
		{"railway", "rail"},
		{"landuse", "forest"},
		{"landuse", "farm"},
		{"amenity", "school"},
		{"shop", "bakery"},
	}
	out := make([]feature.RawFeature, n)
	for i := range out {
		coords := make([]orb.Point, 2+r.Intn(4))
		for j := range coords {
			coords[j] = orb.Point{r.Float64()*200 - 100, r.Float64()*100 - 50}
		}
		kind := feature.GeometryKind(1 + r.Intn(2))
		out[i] = feature.New(kind, coords, tags[r.Intn(len(tags))]...)
	}
	return out
}

func TestBoundsCoverEveryShape(t *testing.T) {
	features := randomFeatures(300, 1)
	c := New()
	q := zorder.New()
	bbox := feature.NewBoundingBox()
	for i := range features {
		c.Tessellate(&features[i], &bbox, q)
	}

	var shapes []*shape.Shape
	for q.Len() > 0 {
		s, _ := q.PopMin()
		shapes = append(shapes, s)
		for _, p := range s.Coordinates {
			if !bbox.Contains(p) {
				t.Fatalf("Point %v outside %s", p, bbox)
			}
		}
	}

	if got := Bounds(shapes); got != bbox {
		t.Errorf("Bounds() = %s, accumulated %s", got, bbox)
	}
}

func TestClassifyAllMatchesSequential(t *testing.T) {
	features := randomFeatures(2000, 42)
	c := New()

	seq := feature.NewBoundingBox()
	want := 0
	for i := range features {
		if c.Classify(&features[i], &seq) != nil {
			want++
		}
	}

	for _, workers := range []int{0, 1, 4, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			res, err := ClassifyAll(context.Background(), c, features, workers)
			if err != nil {
				t.Fatalf("ClassifyAll() error = %v", err)
			}
			if res.Classified() != want {
				t.Errorf("Classified %d, want %d", res.Classified(), want)
			}
			if res.Classified()+res.Dropped != len(features) {
				t.Errorf("Classified+Dropped = %d, want %d", res.Classified()+res.Dropped, len(features))
			}
			if res.Bounds != seq {
				t.Errorf("Bounds = %s, want %s", res.Bounds, seq)
			}
		})
	}
}

func TestClassifyAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ClassifyAll(ctx, New(), randomFeatures(10, 3), 2); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestClassifyAllEmpty(t *testing.T) {
	res, err := ClassifyAll(context.Background(), New(), nil, 4)
	if err != nil {
		t.Fatalf("ClassifyAll() error = %v", err)
	}
	if res.Queue.Len() != 0 || !res.Bounds.IsEmpty() {
		t.Errorf("Expected empty result, got %d shapes in %s", res.Queue.Len(), res.Bounds)
	}
}

func TestParseLandType(t *testing.T) {
	if _, ok := ParseLandType(" Recreation_Ground "); !ok {
		t.Error("Expected recreation_ground to parse")
	}
	if _, ok := ParseLandType("0"); ok {
		t.Error("Numeric values should not parse")
	}
}
