// internal/render/surface.go - Drawing primitives the renderer paints through
package render

import (
	"image/color"

	"github.com/paulmach/orb"

	"github.com/valpere/tile_to_png/internal/shape"
)

// Surface is a raster target. Points passed to it are already in pixel space with the
// origin at the top-left corner.
type Surface interface {
	Size() (width, height int)
	FillBackground(c color.Color)
	DrawPolyline(points []orb.Point, style shape.Style) error
	FillPolygon(points []orb.Point, c color.Color) error
}
