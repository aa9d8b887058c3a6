// internal/shape/shape_test.go - Unit tests for shapes, paint order and styles
package shape

import (
	"testing"

	"github.com/paulmach/orb"
	"golang.org/x/image/colornames"
)

func TestZIndexOrdering(t *testing.T) {
	line := []orb.Point{{0, 0}, {1, 1}}

	tests := []struct {
		name  string
		shape *Shape
		want  int
	}{
		{"unknown terrain", NewGeoFeature(line, GeoUnknown, true), 8},
		{"plain", NewGeoFeature(line, GeoPlain, true), 10},
		{"forest", NewGeoFeature(line, GeoForest, true), 11},
		{"border", NewBorder(line), 30},
		{"waterway", NewWaterway(line, false), 40},
		{"water body", NewGeoFeature(line, GeoWater, true), 40},
		{"residential", NewGeoFeature(line, GeoResidential, true), 41},
		{"railway", NewRailway(line), 45},
		{"road", NewRoad(line), 50},
		{"populated place", NewPopulatedPlace(line[:1], "Kyiv"), 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.shape.ZIndex(); got != tt.want {
				t.Errorf("ZIndex() = %d, want %d", got, tt.want)
			}
		})
	}

	for i := 1; i < len(tests); i++ {
		if tests[i-1].want > tests[i].want {
			t.Errorf("%s drawn above %s", tests[i-1].name, tests[i].name)
		}
	}
}

func TestShapeClonesCoordinates(t *testing.T) {
	coords := []orb.Point{{1, 2}, {3, 4}}
	s := NewRoad(coords)
	coords[0] = orb.Point{100, 100}
	if s.Coordinates[0] != (orb.Point{1, 2}) {
		t.Errorf("Shape shares backing array with input: %v", s.Coordinates[0])
	}
}

func TestTranslateAndScale(t *testing.T) {
	s := NewRoad([]orb.Point{{10, 20}, {12, 24}})

	if !s.TranslateAndScale(10, 20, 2, 100) {
		t.Fatal("First transform should apply")
	}
	want := []orb.Point{{0, 100}, {4, 92}}
	for i, p := range s.Coordinates {
		if p != want[i] {
			t.Errorf("Point %d: expected %v, got %v", i, want[i], p)
		}
	}

	if s.TranslateAndScale(0, 0, 10, 0) {
		t.Error("Second transform should be refused")
	}
	if s.Coordinates[1] != want[1] {
		t.Errorf("Coordinates changed by refused transform: %v", s.Coordinates[1])
	}
	if !s.Transformed() {
		t.Error("Transformed() should report true")
	}
}

func TestStyle(t *testing.T) {
	line := []orb.Point{{0, 0}, {1, 1}}

	forest := NewGeoFeature(line, GeoForest, true).Style()
	if !forest.Filled || forest.Fill != colornames.Forestgreen {
		t.Errorf("Forest area should fill forest green, got %+v", forest)
	}

	forestLine := NewGeoFeature(line, GeoForest, false).Style()
	if forestLine.Filled {
		t.Error("Terrain polyline should be stroked")
	}

	lake := NewWaterway(line, true).Style()
	if !lake.Filled {
		t.Error("Water body should be filled")
	}

	rail := NewRailway(line).Style()
	if len(rail.Dash) == 0 {
		t.Error("Railway should be dashed")
	}

	if road := NewRoad(line).Style(); road.Filled || road.Width <= 0 {
		t.Errorf("Road should be a stroked line, got %+v", road)
	}
}

func TestKindString(t *testing.T) {
	if KindPopulatedPlace.String() != "populated_place" {
		t.Errorf("Unexpected kind name %s", KindPopulatedPlace)
	}
	s := NewGeoFeature([]orb.Point{{0, 0}}, GeoPlain, true)
	if s.String() != "geo_feature(plain) z=10 n=1" {
		t.Errorf("Unexpected shape string %s", s)
	}
}
