// internal/render/braille_test.go - Unit tests for the braille surface
package render

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"golang.org/x/image/colornames"

	"github.com/valpere/tile_to_png/internal/shape"
)

func TestBrailleSize(t *testing.T) {
	b, err := NewBrailleSurface(10, 5)
	if err != nil {
		t.Fatalf("NewBrailleSurface() error = %v", err)
	}
	w, h := b.Size()
	if w != 20 || h != 20 {
		t.Errorf("Expected 20x20 micro-pixels, got %dx%d", w, h)
	}
	if _, err := NewBrailleSurface(0, 5); err == nil {
		t.Error("Expected error for zero columns")
	}
}

func TestBrailleHorizontalLine(t *testing.T) {
	b, _ := NewBrailleSurface(3, 1)
	if err := b.DrawPolyline([]orb.Point{{0, 0}, {5, 0}}, shape.Style{Stroke: colornames.Coral}); err != nil {
		t.Fatalf("DrawPolyline() error = %v", err)
	}
	// top row of both dot columns in every cell
	want := string([]rune{0x2809, 0x2809, 0x2809})
	if got := b.Plain()[0]; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestBrailleFillPolygon(t *testing.T) {
	b, _ := NewBrailleSurface(2, 2)
	square := []orb.Point{{0, 0}, {3, 0}, {3, 7}, {0, 7}}
	if err := b.FillPolygon(square, colornames.Forestgreen); err != nil {
		t.Fatalf("FillPolygon() error = %v", err)
	}
	for _, row := range b.Plain() {
		if row != "⣿⣿" {
			t.Errorf("Expected fully set cells, got %q", row)
		}
	}

	b.FillBackground(colornames.White)
	for _, row := range b.Plain() {
		if strings.TrimSpace(row) != "" {
			t.Errorf("Expected cleared row, got %q", row)
		}
	}
}

func TestBrailleRender(t *testing.T) {
	road := shape.NewRoad([]orb.Point{{0, 0}, {10, 10}})
	q, bbox := queue(road)

	b, _ := NewBrailleSurface(8, 4)
	stats, err := New().Draw(q, bbox, b)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if stats.Drawn != 1 {
		t.Errorf("Expected 1 drawn shape, got %d", stats.Drawn)
	}
	if len(b.Lines()) != 4 {
		t.Errorf("Expected 4 lines, got %d", len(b.Lines()))
	}
	if strings.TrimSpace(strings.Join(b.Plain(), "")) == "" {
		t.Error("Expected braille output for the road")
	}
}
