// internal/output/types.go - Output handling types
package output

import (
	"fmt"
	"io"

	"github.com/valpere/tile_to_png/internal/tile"
)

// Format represents different output formats supported by the application
type Format string

const (
	FormatPNG     Format = "png"
	FormatGeoJSON Format = "geojson"
	FormatJSON    Format = "json"
)

// Writer defines the interface for writing rendered tiles to various destinations
type Writer interface {
	Write(tile *tile.RenderedTile) error
	WriteBatch(tiles []*tile.RenderedTile) error
	Close() error
}

// Formatter defines the interface for encoding rendered tiles
type Formatter interface {
	Format(tile *tile.RenderedTile) ([]byte, error)
	FormatBatch(tiles []*tile.RenderedTile) ([]byte, error)
	ContentType() string
	Extension() string
}

// Destination represents an output destination (file, stdout, etc.)
type Destination interface {
	io.WriteCloser
	Name() string
	Size() int64
}

// WriterConfig contains configuration for creating writers
type WriterConfig struct {
	Format      Format
	Pretty      bool
	Compression bool
	Metadata    bool
}

// FormatterConfig contains configuration for creating formatters
type FormatterConfig struct {
	Format       Format
	Pretty       bool
	IncludeStats bool
}

// ParseFormat validates a format name
func ParseFormat(name string) (Format, error) {
	f := Format(name)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid output format: %s", name)
	}
	return f, nil
}

// String returns a string representation of the format
func (f Format) String() string {
	return string(f)
}

// IsValid checks if the format is supported
func (f Format) IsValid() bool {
	switch f {
	case FormatPNG, FormatGeoJSON, FormatJSON:
		return true
	default:
		return false
	}
}

// NeedsRaster reports whether the tile must be rasterized; GeoJSON only needs shapes
func (f Format) NeedsRaster() bool {
	return f != FormatGeoJSON
}

// IsText reports whether the format is a text document
func (f Format) IsText() bool {
	return f == FormatGeoJSON || f == FormatJSON
}
