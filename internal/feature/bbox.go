// internal/feature/bbox.go - Bounding box accumulator for one tile
package feature

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// BoundingBox is the axis-aligned extent of every classified shape in a tile, in the
// coordinate space of the raw features. The zero value is not empty; use NewBoundingBox.
type BoundingBox struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

// NewBoundingBox returns an empty accumulator that any point will widen
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		MinX: math.Inf(1),
		MaxX: math.Inf(-1),
		MinY: math.Inf(1),
		MaxY: math.Inf(-1),
	}
}

// Extend widens the box to include p
func (b *BoundingBox) Extend(p orb.Point) {
	b.MinX = math.Min(b.MinX, p.X())
	b.MaxX = math.Max(b.MaxX, p.X())
	b.MinY = math.Min(b.MinY, p.Y())
	b.MaxY = math.Max(b.MaxY, p.Y())
}

// ExtendAll widens the box to include every point
func (b *BoundingBox) ExtendAll(points []orb.Point) {
	for _, p := range points {
		b.Extend(p)
	}
}

// Merge widens the box by another accumulator, component-wise
func (b *BoundingBox) Merge(other BoundingBox) {
	if other.IsEmpty() {
		return
	}
	b.MinX = math.Min(b.MinX, other.MinX)
	b.MaxX = math.Max(b.MaxX, other.MaxX)
	b.MinY = math.Min(b.MinY, other.MinY)
	b.MaxY = math.Max(b.MaxY, other.MaxY)
}

// IsEmpty reports whether no point has been added yet
func (b BoundingBox) IsEmpty() bool {
	return !(b.MinX <= b.MaxX && b.MinY <= b.MaxY)
}

// Width returns the horizontal extent, zero for an empty box
func (b BoundingBox) Width() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.MaxX - b.MinX
}

// Height returns the vertical extent, zero for an empty box
func (b BoundingBox) Height() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.MaxY - b.MinY
}

// Contains reports whether p lies inside the box, edges included
func (b BoundingBox) Contains(p orb.Point) bool {
	return p.X() >= b.MinX && p.X() <= b.MaxX && p.Y() >= b.MinY && p.Y() <= b.MaxY
}

// Bound converts the box to an orb.Bound
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinX, b.MinY},
		Max: orb.Point{b.MaxX, b.MaxY},
	}
}

// String returns a string representation of the box
func (b BoundingBox) String() string {
	if b.IsEmpty() {
		return "empty"
	}
	return fmt.Sprintf("[%g,%g]x[%g,%g]", b.MinX, b.MaxX, b.MinY, b.MaxY)
}
