// internal/render/braille.go - Terminal surface drawing with braille micro-pixels
package render

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/valpere/tile_to_png/internal/shape"
)

// Each terminal cell holds a 2x4 grid of micro-pixels
const (
	cellW = 2
	cellH = 4
)

// brailleBits maps a micro-pixel (column, row) inside a cell to its dot bit
var brailleBits = [cellW][cellH]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// BrailleSurface renders into a grid of braille characters. Its pixel size is the
// micro-pixel grid: two columns and four rows per terminal cell.
type BrailleSurface struct {
	cols, rows int
	mask       [][]uint8
	ink        [][]color.Color
}

// NewBrailleSurface creates a surface covering cols x rows terminal cells
func NewBrailleSurface(cols, rows int) (*BrailleSurface, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d cells", ErrInvalidSize, cols, rows)
	}
	b := &BrailleSurface{cols: cols, rows: rows}
	b.reset()
	return b, nil
}

func (b *BrailleSurface) reset() {
	b.mask = make([][]uint8, b.rows)
	b.ink = make([][]color.Color, b.rows)
	for i := range b.mask {
		b.mask[i] = make([]uint8, b.cols)
		b.ink[i] = make([]color.Color, b.cols)
	}
}

// Size returns the micro-pixel dimensions
func (b *BrailleSurface) Size() (int, int) {
	return b.cols * cellW, b.rows * cellH
}

// FillBackground clears every dot; the terminal background shows through
func (b *BrailleSurface) FillBackground(color.Color) {
	b.reset()
}

// DrawPolyline plots the segments between consecutive points
func (b *BrailleSurface) DrawPolyline(points []orb.Point, style shape.Style) error {
	for i := 1; i < len(points); i++ {
		x0, y0 := micro(points[i-1])
		x1, y1 := micro(points[i])
		b.line(x0, y0, x1, y1, style.Stroke)
	}
	return nil
}

// FillPolygon fills the ring with an even-odd scanline pass, then traces its edges
func (b *BrailleSurface) FillPolygon(points []orb.Point, c color.Color) error {
	if len(points) < 3 {
		return b.DrawPolyline(points, shape.Style{Stroke: c})
	}
	ring := make([][2]int, len(points))
	for i, p := range points {
		ring[i][0], ring[i][1] = micro(p)
	}

	_, h := b.Size()
	for y := 0; y < h; y++ {
		var xs []int
		for i := range ring {
			a := ring[i]
			e := ring[(i+1)%len(ring)]
			if a[1] == e[1] {
				continue
			}
			if (y >= a[1] && y < e[1]) || (y >= e[1] && y < a[1]) {
				t := float64(y-a[1]) / float64(e[1]-a[1])
				xs = append(xs, int(float64(a[0])+t*float64(e[0]-a[0])))
			}
		}
		sort.Ints(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := max(0, xs[i]); x <= xs[i+1]; x++ {
				b.set(x, y, c)
			}
		}
	}

	for i := range ring {
		a := ring[i]
		e := ring[(i+1)%len(ring)]
		b.line(a[0], a[1], e[0], e[1], c)
	}
	return nil
}

func micro(p orb.Point) (int, int) {
	return int(math.Round(p.X())), int(math.Round(p.Y()))
}

func (b *BrailleSurface) set(mx, my int, c color.Color) {
	if mx < 0 || my < 0 {
		return
	}
	cx, cy := mx/cellW, my/cellH
	if cx >= b.cols || cy >= b.rows {
		return
	}
	b.mask[cy][cx] |= brailleBits[mx%cellW][my%cellH]
	b.ink[cy][cx] = c
}

// line plots a Bresenham segment on the micro grid
func (b *BrailleSurface) line(x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Plain returns the rows without colour
func (b *BrailleSurface) Plain() []string {
	out := make([]string, b.rows)
	for y := range b.mask {
		row := make([]rune, b.cols)
		for x, m := range b.mask[y] {
			row[x] = glyph(m)
		}
		out[y] = string(row)
	}
	return out
}

// Lines returns the rows with each run of same-coloured cells styled by lipgloss
func (b *BrailleSurface) Lines() []string {
	out := make([]string, b.rows)
	for y := range b.mask {
		var sb strings.Builder
		var run []rune
		var runColor color.Color
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runColor == nil {
				sb.WriteString(string(run))
			} else {
				sb.WriteString(lipgloss.NewStyle().Foreground(hexColor(runColor)).Render(string(run)))
			}
			run = run[:0]
		}
		for x, m := range b.mask[y] {
			var c color.Color
			if m != 0 {
				c = b.ink[y][x]
			}
			if !sameColor(c, runColor) {
				flush()
				runColor = c
			}
			run = append(run, glyph(m))
		}
		flush()
		out[y] = sb.String()
	}
	return out
}

// String joins Lines with newlines
func (b *BrailleSurface) String() string {
	return strings.Join(b.Lines(), "\n")
}

func glyph(mask uint8) rune {
	if mask == 0 {
		return ' '
	}
	return rune(0x2800 + int(mask))
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

func sameColor(a, b color.Color) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}
