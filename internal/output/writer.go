// internal/output/writer.go - Output writing implementation
package output

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/valpere/tile_to_png/internal/tile"
)

// FileWriter writes output to files with optional compression
type FileWriter struct {
	formatter   Formatter
	destination Destination
	config      *WriterConfig
}

// NewFileWriter creates a new file-based writer
func NewFileWriter(config *WriterConfig, destination string) (*FileWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:       config.Format,
		Pretty:       config.Pretty,
		IncludeStats: config.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	dest, err := newFileDestination(destination, config.Compression && config.Format.IsText())
	if err != nil {
		return nil, fmt.Errorf("failed to create file destination: %w", err)
	}

	return &FileWriter{
		formatter:   formatter,
		destination: dest,
		config:      config,
	}, nil
}

// Write writes a single rendered tile to the output destination
func (w *FileWriter) Write(tile *tile.RenderedTile) error {
	data, err := w.formatter.Format(tile)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	_, err = w.destination.Write(data)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	return nil
}

// WriteBatch writes multiple rendered tiles as one document (or mosaic)
func (w *FileWriter) WriteBatch(tiles []*tile.RenderedTile) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("batch formatting failed: %w", err)
	}

	_, err = w.destination.Write(data)
	if err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}

	return nil
}

// Close closes the writer and underlying destination
func (w *FileWriter) Close() error {
	return w.destination.Close()
}

// StdoutWriter writes output to standard output
type StdoutWriter struct {
	formatter Formatter
	out       io.Writer
	binary    bool
}

// NewStdoutWriter creates a new stdout-based writer
func NewStdoutWriter(format Format, pretty bool) (*StdoutWriter, error) {
	return newStreamWriter(os.Stdout, format, pretty)
}

func newStreamWriter(out io.Writer, format Format, pretty bool) (*StdoutWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:       format,
		Pretty:       pretty,
		IncludeStats: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	return &StdoutWriter{formatter: formatter, out: out, binary: !format.IsText()}, nil
}

// Write writes a single tile to stdout
func (w *StdoutWriter) Write(tile *tile.RenderedTile) error {
	data, err := w.formatter.Format(tile)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	_, err = w.out.Write(data)
	if err != nil {
		return fmt.Errorf("write to stdout failed: %w", err)
	}

	return w.newline()
}

// WriteBatch writes multiple tiles to stdout
func (w *StdoutWriter) WriteBatch(tiles []*tile.RenderedTile) error {
	data, err := w.formatter.FormatBatch(tiles)
	if err != nil {
		return fmt.Errorf("batch formatting failed: %w", err)
	}

	_, err = w.out.Write(data)
	if err != nil {
		return fmt.Errorf("batch write to stdout failed: %w", err)
	}

	return w.newline()
}

// newline separates text documents; binary output is left untouched
func (w *StdoutWriter) newline() error {
	if w.binary {
		return nil
	}
	_, err := w.out.Write([]byte("\n"))
	return err
}

// Close is a no-op for stdout writer
func (w *StdoutWriter) Close() error {
	return nil
}

// MultiFileWriter writes each tile to a separate file
type MultiFileWriter struct {
	formatter Formatter
	baseDir   string
	config    *WriterConfig
}

// NewMultiFileWriter creates a writer that outputs each tile to a separate file
func NewMultiFileWriter(config *WriterConfig, baseDir string) (*MultiFileWriter, error) {
	formatter, err := NewFormatter(&FormatterConfig{
		Format:       config.Format,
		Pretty:       config.Pretty,
		IncludeStats: config.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &MultiFileWriter{
		formatter: formatter,
		baseDir:   baseDir,
		config:    config,
	}, nil
}

// Write writes a single tile to its own file
func (w *MultiFileWriter) Write(tile *tile.RenderedTile) error {
	data, err := w.formatter.Format(tile)
	if err != nil {
		return fmt.Errorf("formatting failed: %w", err)
	}

	dest, err := newFileDestination(w.Path(tile.Coordinate), w.compress())
	if err != nil {
		return fmt.Errorf("failed to create file destination: %w", err)
	}

	if _, err = dest.Write(data); err != nil {
		dest.Close()
		return fmt.Errorf("write failed: %w", err)
	}

	return dest.Close()
}

// WriteBatch writes each successful tile in the batch to its own file. Failed tiles are
// skipped; write errors are collected rather than stopping the batch.
func (w *MultiFileWriter) WriteBatch(tiles []*tile.RenderedTile) error {
	var errs error
	for _, t := range tiles {
		if t.Error != nil {
			continue
		}
		if err := w.Write(t); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to write tile %s: %w", t.Coordinate, err))
		}
	}
	return errs
}

// Close is a no-op for multi-file writer
func (w *MultiFileWriter) Close() error {
	return nil
}

// Path returns the z/x/y file path a tile is written to
func (w *MultiFileWriter) Path(coord *tile.TileCoordinate) string {
	ext := w.formatter.Extension()
	if w.compress() {
		ext += ".gz"
	}
	return filepath.Join(w.baseDir, strconv.Itoa(coord.Z), strconv.Itoa(coord.X), strconv.Itoa(coord.Y)+ext)
}

// compress reports whether gzip applies; PNG is already compressed
func (w *MultiFileWriter) compress() bool {
	return w.config.Compression && w.config.Format.IsText()
}

// fileDestination implements the Destination interface for file output
type fileDestination struct {
	file   *os.File
	writer io.WriteCloser
	name   string
	size   int64
}

// newFileDestination creates a new file destination with optional compression
func newFileDestination(path string, compression bool) (*fileDestination, error) {
	if compression && !strings.HasSuffix(path, ".gz") {
		path += ".gz"
	}

	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	var writer io.WriteCloser = file
	if compression {
		writer = gzip.NewWriter(file)
	}

	return &fileDestination{
		file:   file,
		writer: writer,
		name:   path,
	}, nil
}

// Write implements io.Writer
func (d *fileDestination) Write(p []byte) (n int, err error) {
	n, err = d.writer.Write(p)
	d.size += int64(n)
	return n, err
}

// Close implements io.Closer
func (d *fileDestination) Close() error {
	if d.writer != d.file {
		if err := d.writer.Close(); err != nil {
			d.file.Close()
			return err
		}
	}
	return d.file.Close()
}

// Name returns the destination file path
func (d *fileDestination) Name() string {
	return d.name
}

// Size returns the number of bytes written
func (d *fileDestination) Size() int64 {
	return d.size
}

// NewWriter creates the appropriate writer based on configuration. An empty destination
// or "-" selects stdout; multiFile lays tiles out as z/x/y files under destination.
func NewWriter(config *WriterConfig, destination string, multiFile bool) (Writer, error) {
	var (
		w   Writer
		err error
	)
	switch {
	case destination == "" || destination == "-":
		w, err = NewStdoutWriter(config.Format, config.Pretty)
	case multiFile:
		w, err = NewMultiFileWriter(config, destination)
	default:
		w, err = NewFileWriter(config, destination)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// BufferedWriter holds every tile until Close and then writes them as one batch. It lets
// chunked batch jobs produce a single mosaic or FeatureCollection.
type BufferedWriter struct {
	inner  Writer
	tiles  []*tile.RenderedTile
	closed bool
	mu     sync.Mutex
}

// NewBufferedWriter wraps inner
func NewBufferedWriter(inner Writer) *BufferedWriter {
	return &BufferedWriter{inner: inner}
}

// Write buffers a single tile
func (w *BufferedWriter) Write(t *tile.RenderedTile) error {
	return w.WriteBatch([]*tile.RenderedTile{t})
}

// WriteBatch buffers the successful tiles of a batch
func (w *BufferedWriter) WriteBatch(tiles []*tile.RenderedTile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range tiles {
		if t.Error == nil {
			w.tiles = append(w.tiles, t)
		}
	}
	return nil
}

// Close writes the buffered tiles and closes the wrapped writer. Later calls do nothing.
func (w *BufferedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if len(w.tiles) > 0 {
		err = w.inner.WriteBatch(w.tiles)
		w.tiles = nil
	}
	return multierr.Append(err, w.inner.Close())
}
