// pkg/mvt/decoder_test.go - Unit tests for tile decoding
package mvt

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
)

func fixtureLayers() mvt.Layers {
	roads := geojson.NewFeatureCollection()
	road := geojson.NewFeature(orb.LineString{{0, 0}, {2048, 2048}})
	road.Properties["highway"] = "primary"
	road.Properties["lanes"] = 2
	roads.Append(road)

	landuse := geojson.NewFeatureCollection()
	forest := geojson.NewFeature(orb.Polygon{{{0, 0}, {4096, 0}, {4096, 4096}, {0, 4096}, {0, 0}}})
	forest.Properties["landuse"] = "forest"
	landuse.Append(forest)

	return mvt.NewLayers(map[string]*geojson.FeatureCollection{
		"roads":   roads,
		"landuse": landuse,
	})
}

func fixtureTile(t *testing.T, gzipped bool) []byte {
	t.Helper()
	var (
		data []byte
		err  error
	)
	if gzipped {
		data, err = mvt.MarshalGzipped(fixtureLayers())
	} else {
		data, err = mvt.Marshal(fixtureLayers())
	}
	if err != nil {
		t.Fatalf("Failed to build fixture tile: %v", err)
	}
	return data
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6*math.Max(1, math.Abs(b))
}

func TestNewDecoder(t *testing.T) {
	decoder := NewDecoder()
	if decoder.extent != 4096 {
		t.Errorf("Expected default extent 4096, got %d", decoder.extent)
	}
	if decoder.options.CoordinateSystem != CoordSystemWebMercator {
		t.Errorf("Expected default coordinate system %s, got %s", CoordSystemWebMercator, decoder.options.CoordinateSystem)
	}
}

func TestNewDecoderWithExtent(t *testing.T) {
	decoder := NewDecoderWithExtent(512)
	if decoder.extent != 512 {
		t.Errorf("Expected custom extent 512, got %d", decoder.extent)
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name    string
		options *Options
		wantErr bool
	}{
		{"valid web-mercator", &Options{CoordinateSystem: CoordSystemWebMercator}, false},
		{"valid wgs84", &Options{CoordinateSystem: CoordSystemWGS84}, false},
		{"invalid coordinate system", &Options{CoordinateSystem: "invalid"}, true},
		{"nil options", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOptions(tt.options)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_EmptyData(t *testing.T) {
	decoder := NewDecoder()
	_, err := decoder.Decode([]byte{}, 1, 1, 1)
	if err == nil {
		t.Fatal("Expected error for empty data")
	}
	if err.Error() != "empty tile data" {
		t.Errorf("Expected 'empty tile data' error, got %s", err.Error())
	}
}

func TestDecode_InvalidTileID(t *testing.T) {
	if _, err := NewDecoder().Decode(fixtureTile(t, false), 1, 2, 0); err == nil {
		t.Error("Expected error for x outside zoom 1")
	}
}

func TestDecode(t *testing.T) {
	for _, gzipped := range []bool{false, true} {
		tile, err := NewDecoder().Decode(fixtureTile(t, gzipped), 0, 0, 0)
		if err != nil {
			t.Fatalf("Decode(gzipped=%v) error = %v", gzipped, err)
		}

		names := tile.GetLayerNames()
		if len(names) != 2 || names[0] != "landuse" || names[1] != "roads" {
			t.Errorf("Unexpected layers %v", names)
		}
		if tile.GetFeatureCount() != 2 {
			t.Errorf("Expected 2 features, got %d", tile.GetFeatureCount())
		}

		road := tile.Layers["roads"].Features[0]
		if road.Type != geojson.TypeLineString {
			t.Fatalf("Expected LineString, got %s", road.Type)
		}
		if road.Tags["highway"] != "primary" {
			t.Errorf("Expected highway tag, got %v", road.Tags)
		}

		line := road.Geometry.(orb.LineString)
		if !near(line[0][0], -webMercatorMax) || !near(line[0][1], webMercatorMax) {
			t.Errorf("Tile origin should map to the north-west corner, got %v", line[0])
		}
		if !near(line[1][0], 0) || !near(line[1][1], 0) {
			t.Errorf("Tile centre should map to the origin, got %v", line[1])
		}

		if got := tile.Layers["landuse"].Features[0].Type; got != geojson.TypePolygon {
			t.Errorf("Expected Polygon, got %s", got)
		}
	}
}

func TestDecode_LayerFilter(t *testing.T) {
	decoder, err := NewDecoderWithOptions(&Options{
		LayerFilter:      []string{"roads"},
		CoordinateSystem: CoordSystemWGS84,
	})
	if err != nil {
		t.Fatalf("NewDecoderWithOptions() error = %v", err)
	}

	tile, err := decoder.Decode(fixtureTile(t, false), 0, 0, 0)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if tile.HasLayer("landuse") || !tile.HasLayer("roads") {
		t.Errorf("Layer filter not applied: %v", tile.GetLayerNames())
	}

	start := tile.Layers["roads"].Features[0].Geometry.(orb.LineString)[0]
	if !near(start[0], -180) || math.Abs(start[1]-85.0511) > 1e-3 {
		t.Errorf("Expected WGS84 north-west corner, got %v", start)
	}
}

func TestDecodeGeoJSON(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[30.5,50.45]},"properties":{"place":"city","name":"Kyiv","_layer":"places"}},
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{"railway":"rail"}},
		{"type":"Feature","geometry":null,"properties":{"amenity":"bench"}}
	]}`)

	decoder, _ := NewDecoderWithOptions(&Options{CoordinateSystem: CoordSystemWGS84})
	tile, err := decoder.DecodeGeoJSON(data, 10, 1, 1)
	if err != nil {
		t.Fatalf("DecodeGeoJSON() error = %v", err)
	}

	if !tile.HasLayer("places") || !tile.HasLayer(DefaultGeoJSONLayer) {
		t.Fatalf("Unexpected layers %v", tile.GetLayerNames())
	}
	city := tile.Layers["places"].Features[0]
	if _, ok := city.Tags[LayerProperty]; ok {
		t.Error("Layer property should be removed from tags")
	}
	if p := city.Geometry.(orb.Point); p != (orb.Point{30.5, 50.45}) {
		t.Errorf("WGS84 coordinates should pass through, got %v", p)
	}
	if tile.Layers[DefaultGeoJSONLayer].Skipped != 1 {
		t.Errorf("Expected one skipped feature, got %d", tile.Layers[DefaultGeoJSONLayer].Skipped)
	}
}

func TestDecodeGeoJSON_Mercator(t *testing.T) {
	data := []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[180,0]},"properties":{}}
	]}`)
	tile, err := NewDecoder().DecodeGeoJSON(data, 0, 0, 0)
	if err != nil {
		t.Fatalf("DecodeGeoJSON() error = %v", err)
	}
	p := tile.Layers[DefaultGeoJSONLayer].Features[0].Geometry.(orb.Point)
	if !near(p[0], webMercatorMax) || math.Abs(p[1]) > 1e-6 {
		t.Errorf("Expected (%f, 0), got %v", webMercatorMax, p)
	}
}

func TestDecodeGeoJSON_Invalid(t *testing.T) {
	if _, err := NewDecoder().DecodeGeoJSON([]byte(`{"type":`), 0, 0, 0); err == nil {
		t.Error("Expected error for malformed GeoJSON")
	}
}

func TestTileIDString(t *testing.T) {
	tid := TileID{Z: 14, X: 8362, Y: 5956}
	expected := "14/8362/5956"
	if tid.String() != expected {
		t.Errorf("Expected %s, got %s", expected, tid.String())
	}
}

func TestTileIDValidate(t *testing.T) {
	tests := []struct {
		name    string
		tid     TileID
		wantErr bool
	}{
		{"valid coordinates", TileID{14, 8362, 5956}, false},
		{"invalid zoom negative", TileID{-1, 0, 0}, true},
		{"invalid zoom too high", TileID{23, 0, 0}, true},
		{"invalid x negative", TileID{1, -1, 0}, true},
		{"invalid x too high", TileID{1, 2, 0}, true},
		{"invalid y negative", TileID{1, 0, -1}, true},
		{"invalid y too high", TileID{1, 0, 2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tid.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("TileID.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyGeometryTransform(t *testing.T) {
	shift := func(p orb.Point) orb.Point { return orb.Point{p[0] + 1, p[1]} }

	point := applyGeometryTransform(orb.Point{1.0, 2.0}, shift)
	if point != (orb.Point{2.0, 2.0}) {
		t.Errorf("Expected shifted point, got %v", point)
	}

	poly := applyGeometryTransform(orb.MultiPolygon{{{{0, 0}, {1, 0}, {0, 1}}}}, shift).(orb.MultiPolygon)
	if poly[0][0][1] != (orb.Point{2, 0}) {
		t.Errorf("Expected shifted polygon vertex, got %v", poly[0][0][1])
	}
}

func TestMercatorRoundTrip(t *testing.T) {
	p := orb.Point{-74.006, 40.7128}
	back := mercatorToWGS84(wgs84ToMercator(p))
	if math.Abs(back[0]-p[0]) > 1e-9 || math.Abs(back[1]-p[1]) > 1e-9 {
		t.Errorf("Expected %v, got %v", p, back)
	}
}

func TestDecodedTileIsEmpty(t *testing.T) {
	emptyTile := &DecodedTile{
		Layers: map[string]*DecodedLayer{},
	}
	if !emptyTile.IsEmpty() {
		t.Error("Expected empty tile to return true for IsEmpty()")
	}

	nonEmptyTile := &DecodedTile{
		Layers: map[string]*DecodedLayer{
			"test": {
				Features: []*DecodedFeature{{}},
			},
		},
	}
	if nonEmptyTile.IsEmpty() {
		t.Error("Expected non-empty tile to return false for IsEmpty()")
	}
	if nonEmptyTile.GetLayerFeatureCount("test") != 1 || nonEmptyTile.GetLayerFeatureCount("missing") != 0 {
		t.Error("Unexpected per-layer feature counts")
	}
}

func TestDecodedFeature_TypeName(t *testing.T) {
	tile, err := NewDecoder().Decode(fixtureTile(t, false), 0, 0, 0)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	road := tile.Layers["roads"].Features[0]
	if road.Type != "LineString" {
		t.Errorf("Expected type name LineString, got %q", road.Type)
	}

	data, err := json.Marshal(&DecodedFeature{Type: road.Type, Tags: road.Tags})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"type":"LineString"`) {
		t.Errorf("Expected plain type name in JSON, got %s", data)
	}
}
