// internal/output/output_test.go - Unit tests for formatters and writers
package output

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/valpere/tile_to_png/internal/shape"
	"github.com/valpere/tile_to_png/internal/tile"
)

func solidTile(z, x, y int, c color.RGBA) *tile.RenderedTile {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return &tile.RenderedTile{
		Coordinate: tile.NewTileCoordinate(z, x, y),
		Image:      img,
		Metadata:   &tile.TileMetadata{ShapeCount: 1, Kinds: map[string]int{"road": 1}},
	}
}

func shapeTile() *tile.RenderedTile {
	forest := shape.NewGeoFeature([]orb.Point{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, shape.GeoForest, true)
	rail := shape.NewRailway([]orb.Point{{0, 0}, {2, 2}})
	town := shape.NewPopulatedPlace([]orb.Point{{5, 5}}, "Kyiv")
	return &tile.RenderedTile{
		Coordinate: tile.NewTileCoordinate(2, 1, 1),
		Shapes:     []*shape.Shape{forest, rail, town, {Kind: shape.KindRoad}},
		Metadata:   &tile.TileMetadata{ShapeCount: 4},
	}
}

func TestPNGFormatter_Format(t *testing.T) {
	f := NewPNGFormatter()
	data, err := f.Format(solidTile(0, 0, 0, color.RGBA{255, 0, 0, 255}))
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if r, _, _, _ := img.At(1, 1).RGBA(); r>>8 != 255 {
		t.Errorf("Expected red pixel, got %v", img.At(1, 1))
	}

	if _, err := f.Format(&tile.RenderedTile{Coordinate: tile.NewTileCoordinate(0, 0, 0)}); err == nil {
		t.Error("Expected error for tile without image")
	}
}

func TestPNGFormatter_Mosaic(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	blue := color.RGBA{0, 0, 255, 255}
	failed := &tile.RenderedTile{Coordinate: tile.NewTileCoordinate(1, 0, 0), Error: errors.New("boom")}

	data, err := NewPNGFormatter().FormatBatch([]*tile.RenderedTile{
		solidTile(1, 0, 0, red),
		solidTile(1, 1, 1, blue),
		failed,
	})
	if err != nil {
		t.Fatalf("FormatBatch failed: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("Expected 8x8 mosaic, got %v", b)
	}
	if got := color.RGBAModel.Convert(img.At(1, 1)).(color.RGBA); got != red {
		t.Errorf("Expected red top-left, got %v", got)
	}
	if got := color.RGBAModel.Convert(img.At(6, 6)).(color.RGBA); got != blue {
		t.Errorf("Expected blue bottom-right, got %v", got)
	}
	if _, _, _, a := img.At(6, 1).RGBA(); a != 0 {
		t.Errorf("Expected transparent gap, got alpha %d", a)
	}

	if _, err := NewPNGFormatter().FormatBatch([]*tile.RenderedTile{solidTile(1, 0, 0, red), solidTile(2, 0, 0, red)}); err == nil {
		t.Error("Expected error when stitching mixed zoom levels")
	}
}

func TestGeoJSONFormatter_Format(t *testing.T) {
	data, err := NewGeoJSONFormatter(false, true).Format(shapeTile())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("Invalid GeoJSON: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Fatalf("Expected 3 features (empty shape skipped), got %d", len(fc.Features))
	}

	forest := fc.Features[0]
	if forest.Geometry.GeoJSONType() != geojson.TypePolygon {
		t.Errorf("Expected polygon, got %s", forest.Geometry.GeoJSONType())
	}
	if forest.Properties["kind"] != "geo_feature" || forest.Properties["subtype"] != "forest" {
		t.Errorf("Unexpected forest properties %v", forest.Properties)
	}
	if forest.Properties["fill"] != "#228b22" {
		t.Errorf("Expected forestgreen fill, got %v", forest.Properties["fill"])
	}

	rail := fc.Features[1]
	if rail.Geometry.GeoJSONType() != geojson.TypeLineString || rail.Properties["dash"] == nil {
		t.Errorf("Expected dashed line, got %s %v", rail.Geometry.GeoJSONType(), rail.Properties)
	}

	town := fc.Features[2]
	if town.Geometry.GeoJSONType() != geojson.TypePoint || town.Properties["name"] != "Kyiv" {
		t.Errorf("Expected named point, got %s %v", town.Geometry.GeoJSONType(), town.Properties)
	}
	if fc.ExtraMembers["_metadata"] == nil {
		t.Error("Expected _metadata member")
	}
}

func TestGeoJSONFormatter_Batch(t *testing.T) {
	failed := &tile.RenderedTile{Coordinate: tile.NewTileCoordinate(2, 0, 0), Error: errors.New("boom")}
	data, err := NewGeoJSONFormatter(true, true).FormatBatch([]*tile.RenderedTile{shapeTile(), failed})
	if err != nil {
		t.Fatalf("FormatBatch failed: %v", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("Invalid GeoJSON: %v", err)
	}
	if len(fc.Features) != 3 {
		t.Errorf("Expected 3 features, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["_tile"] != "2/1/1" {
		t.Errorf("Expected _tile property, got %v", fc.Features[0].Properties["_tile"])
	}
}

func TestJSONFormatter(t *testing.T) {
	failed := &tile.RenderedTile{Coordinate: tile.NewTileCoordinate(2, 0, 0), Error: errors.New("boom")}
	data, err := NewJSONFormatter(false).FormatBatch([]*tile.RenderedTile{solidTile(2, 1, 1, color.RGBA{A: 255}), failed})
	if err != nil {
		t.Fatalf("FormatBatch failed: %v", err)
	}
	var doc struct {
		Tiles   []map[string]interface{} `json:"tiles"`
		Summary map[string]interface{}   `json:"summary"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(doc.Tiles) != 2 || doc.Summary["failed_tiles"] != float64(1) {
		t.Errorf("Unexpected document %s", data)
	}
	if doc.Tiles[1]["error"] != "boom" {
		t.Errorf("Expected error entry, got %v", doc.Tiles[1])
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format Format
		ext    string
		ctype  string
	}{
		{FormatPNG, ".png", "image/png"},
		{FormatGeoJSON, ".geojson", "application/geo+json"},
		{FormatJSON, ".json", "application/json"},
	}
	for _, tt := range tests {
		f, err := NewFormatter(&FormatterConfig{Format: tt.format})
		if err != nil {
			t.Fatalf("NewFormatter(%s) failed: %v", tt.format, err)
		}
		if f.Extension() != tt.ext || f.ContentType() != tt.ctype {
			t.Errorf("%s: got %s %s", tt.format, f.Extension(), f.ContentType())
		}
	}
	if _, err := NewFormatter(&FormatterConfig{Format: "svg"}); err == nil {
		t.Error("Expected error for unknown format")
	}
	if _, err := ParseFormat("svg"); err == nil {
		t.Error("Expected ParseFormat error")
	}
	if !FormatJSON.NeedsRaster() || FormatGeoJSON.NeedsRaster() {
		t.Error("Unexpected NeedsRaster result")
	}
}

func TestMultiFileWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(&WriterConfig{Format: FormatPNG, Compression: true}, dir, true)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	defer w.Close()

	failed := &tile.RenderedTile{Coordinate: tile.NewTileCoordinate(3, 0, 0), Error: errors.New("boom")}
	err = w.WriteBatch([]*tile.RenderedTile{solidTile(3, 4, 2, color.RGBA{A: 255}), failed})
	if err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}

	path := filepath.Join(dir, "3", "4", "2.png")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Expected %s (PNG is never gzipped): %v", path, err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("Invalid PNG on disk: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "3", "0", "0.png")); !os.IsNotExist(err) {
		t.Error("Expected failed tile to be skipped")
	}
}

func TestFileWriter_Compressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tile.geojson")
	w, err := NewWriter(&WriterConfig{Format: FormatGeoJSON, Compression: true}, path, false)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(shapeTile()); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no uncompressed file next to the .gz")
	}
	f, err := os.Open(path + ".gz")
	if err != nil {
		t.Fatalf("Expected gzipped output: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("Invalid gzip: %v", err)
	}
	data, _ := io.ReadAll(zr)
	if _, err := geojson.UnmarshalFeatureCollection(data); err != nil {
		t.Errorf("Invalid GeoJSON in archive: %v", err)
	}
}

func TestStreamWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := newStreamWriter(&buf, FormatJSON, false)
	if err != nil {
		t.Fatalf("newStreamWriter failed: %v", err)
	}
	if err := w.Write(solidTile(0, 0, 0, color.RGBA{A: 255})); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("}\n")) {
		t.Errorf("Expected newline-terminated JSON, got %q", buf.String())
	}

	buf.Reset()
	w, _ = newStreamWriter(&buf, FormatPNG, false)
	if err := w.Write(solidTile(0, 0, 0, color.RGBA{A: 255})); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("IEND\xaeB`\x82")) {
		t.Error("Expected raw PNG ending in its IEND chunk")
	}
}

func TestBufferedWriter_SingleMosaic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mosaic.png")
	inner, err := NewWriter(&WriterConfig{Format: FormatPNG}, path, false)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	w := NewBufferedWriter(inner)

	// two chunks of one job
	if err := w.WriteBatch([]*tile.RenderedTile{solidTile(1, 0, 0, color.RGBA{R: 255, A: 255})}); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	failed := &tile.RenderedTile{Coordinate: tile.NewTileCoordinate(1, 0, 1), Error: errors.New("boom")}
	if err := w.WriteBatch([]*tile.RenderedTile{solidTile(1, 1, 0, color.RGBA{B: 255, A: 255}), failed}); err != nil {
		t.Fatalf("WriteBatch failed: %v", err)
	}
	if info, _ := os.Stat(path); info != nil && info.Size() != 0 {
		t.Error("Expected nothing written before Close")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Expected one PNG document: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("Expected 8x4 mosaic of both chunks, got %v", b)
	}
}
