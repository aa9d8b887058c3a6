// internal/batch/ranges.go - Tile range parsing and validation
package batch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/valpere/tile_to_png/internal/tile"
)

// MaxZoom is the deepest zoom level accepted in a range
const MaxZoom = 22

// ValidateJob validates job configuration and requirements
func ValidateJob(job *Job) error {
	if job.Config == nil {
		return fmt.Errorf("job configuration is required")
	}

	if len(job.TileRanges) == 0 {
		return fmt.Errorf("at least one tile range is required")
	}

	if job.Config.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if job.Config.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}

	if job.Config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	for i, tileRange := range job.TileRanges {
		if err := ValidateTileRange(tileRange); err != nil {
			return fmt.Errorf("tile range %d is invalid: %w", i, err)
		}
	}

	return nil
}

// ValidateTileRange validates a single tile range
func ValidateTileRange(tileRange *tile.TileRange) error {
	if tileRange.MinZ < 0 || tileRange.MaxZ > MaxZoom {
		return fmt.Errorf("zoom levels must be between 0 and %d", MaxZoom)
	}

	if tileRange.MinZ > tileRange.MaxZ {
		return fmt.Errorf("min zoom (%d) cannot be greater than max zoom (%d)", tileRange.MinZ, tileRange.MaxZ)
	}

	if tileRange.MinX > tileRange.MaxX {
		return fmt.Errorf("min X (%d) cannot be greater than max X (%d)", tileRange.MinX, tileRange.MaxX)
	}

	if tileRange.MinY > tileRange.MaxY {
		return fmt.Errorf("min Y (%d) cannot be greater than max Y (%d)", tileRange.MinY, tileRange.MaxY)
	}

	// the x/y window must exist at the shallowest zoom of the range
	maxTile := 1 << uint(tileRange.MinZ)
	if tileRange.MinX < 0 || tileRange.MaxX >= maxTile {
		return fmt.Errorf("X coordinates for zoom %d must be between 0 and %d", tileRange.MinZ, maxTile-1)
	}
	if tileRange.MinY < 0 || tileRange.MaxY >= maxTile {
		return fmt.Errorf("Y coordinates for zoom %d must be between 0 and %d", tileRange.MinZ, maxTile-1)
	}

	return nil
}

// ParseTiles parses a comma-separated z/x/y list into single-tile ranges
func ParseTiles(tiles string) ([]*tile.TileRange, error) {
	var ranges []*tile.TileRange

	for _, part := range strings.Split(tiles, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := ParseCoordinate(part)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, tile.NewTileRange(c.Z, c.Z, c.X, c.X, c.Y, c.Y))
	}

	return ranges, nil
}

// ParseCoordinate parses a single z/x/y string
func ParseCoordinate(s string) (*tile.TileCoordinate, error) {
	coords := strings.Split(strings.TrimSpace(s), "/")
	if len(coords) != 3 {
		return nil, fmt.Errorf("invalid tile format: %s (expected z/x/y)", s)
	}

	z, err := strconv.Atoi(coords[0])
	if err != nil {
		return nil, fmt.Errorf("invalid zoom level: %s", coords[0])
	}

	x, err := strconv.Atoi(coords[1])
	if err != nil {
		return nil, fmt.Errorf("invalid x coordinate: %s", coords[1])
	}

	y, err := strconv.Atoi(coords[2])
	if err != nil {
		return nil, fmt.Errorf("invalid y coordinate: %s", coords[2])
	}

	if err := tile.ValidateCoordinates(z, x, y); err != nil {
		return nil, err
	}
	return tile.NewTileCoordinate(z, x, y), nil
}

// ParseBounds parses 'min_lon,min_lat,max_lon,max_lat'
func ParseBounds(bbox string) (orb.Bound, error) {
	parts := strings.Split(bbox, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box must have 4 values: min_lon,min_lat,max_lon,max_lat")
	}

	coords := make([]float64, 4)
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid coordinate value: %s", part)
		}
		coords[i] = val
	}

	if coords[0] > coords[2] || coords[1] > coords[3] {
		return orb.Bound{}, fmt.Errorf("bounding box minimum must not exceed maximum")
	}

	return orb.Bound{
		Min: orb.Point{coords[0], coords[1]},
		Max: orb.Point{coords[2], coords[3]},
	}, nil
}

// RangesForBounds returns one range per zoom level covering bound, or the whole
// world when bound is nil
func RangesForBounds(minZoom, maxZoom int, bound *orb.Bound) ([]*tile.TileRange, error) {
	if minZoom < 0 || maxZoom > MaxZoom || minZoom > maxZoom {
		return nil, fmt.Errorf("invalid zoom range %d-%d", minZoom, maxZoom)
	}

	var ranges []*tile.TileRange
	for z := minZoom; z <= maxZoom; z++ {
		maxTile := (1 << uint(z)) - 1
		minX, minY, maxX, maxY := 0, 0, maxTile, maxTile

		if bound != nil {
			// tile rows grow southwards: the north-west corner gives the minimum
			nw := maptile.At(orb.Point{bound.Min.X(), clampLat(bound.Max.Y())}, maptile.Zoom(z))
			se := maptile.At(orb.Point{bound.Max.X(), clampLat(bound.Min.Y())}, maptile.Zoom(z))
			minX, minY = clamp(int(nw.X), maxTile), clamp(int(nw.Y), maxTile)
			maxX, maxY = clamp(int(se.X), maxTile), clamp(int(se.Y), maxTile)
		}

		ranges = append(ranges, tile.NewTileRange(z, z, minX, maxX, minY, maxY))
	}

	return ranges, nil
}

// maxLatitude is the edge of the Web Mercator square
const maxLatitude = 85.05112878

func clampLat(lat float64) float64 {
	return max(-maxLatitude, min(lat, maxLatitude))
}

func clamp(v, hi int) int {
	return max(0, min(v, hi))
}
