// internal/tile/local_fetcher.go - Local file fetching implementation
package tile

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/valpere/tile_to_png/internal"
	"github.com/valpere/tile_to_png/internal/config"
)

// LocalFetcher implements the Fetcher interface for z/x/y tile directories
type LocalFetcher struct {
	config     *config.LocalConfig
	maxRetries int
}

// NewLocalFetcher creates a new local file fetcher
func NewLocalFetcher(cfg *config.Config) *LocalFetcher {
	return &LocalFetcher{
		config:     &cfg.Local,
		maxRetries: 2,
	}
}

// Fetch retrieves a tile from the local file system
func (f *LocalFetcher) Fetch(ctx context.Context, request *TileRequest) (*TileResponse, error) {
	start := time.Now()

	fail := func(err error) (*TileResponse, error) {
		return &TileResponse{
			Request:   request,
			FetchTime: time.Since(start),
			Error:     err,
		}, err
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	filePath, err := f.buildFilePath(request)
	if err != nil {
		return fail(internal.NewError(internal.ErrorCodeValidation, "failed to build file path", err))
	}

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fail(internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("tile file not found: %s", filePath), err))
		}
		if errors.Is(err, fs.ErrPermission) {
			return fail(internal.NewError(internal.ErrorCodePermission, fmt.Sprintf("cannot access tile file: %s", filePath), err))
		}
		return fail(internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("cannot access tile file: %s", filePath), err))
	}

	if !fileInfo.Mode().IsRegular() {
		return fail(internal.NewError(internal.ErrorCodeValidation, fmt.Sprintf("path is not a regular file: %s", filePath), nil))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fail(internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to open tile file: %s", filePath), err))
	}
	defer file.Close()

	var reader io.Reader = file
	isCompressed := isCompressedFile(filePath)
	if isCompressed {
		gzipReader, err := gzip.NewReader(file)
		if err != nil {
			return fail(internal.NewError(internal.ErrorCodeProcessing, fmt.Sprintf("failed to create gzip reader for: %s", filePath), err))
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return fail(internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("failed to read tile file: %s", filePath), err))
	}

	response := &TileResponse{
		Request:    request,
		Data:       data,
		StatusCode: 200, // Simulate HTTP 200 OK for consistency
		Size:       len(data),
		FetchTime:  time.Since(start),
	}

	// Pseudo-headers for consistency with the HTTP fetcher
	response.Headers = make(map[string][]string)
	response.Headers["Content-Type"] = []string{contentTypeFor(filePath)}
	response.Headers["Content-Length"] = []string{strconv.Itoa(len(data))}
	if isCompressed {
		response.Headers["Content-Encoding"] = []string{"gzip"}
	}

	return response, nil
}

// FetchWithRetry retries transient file system failures
func (f *LocalFetcher) FetchWithRetry(ctx context.Context, request *TileRequest) (*TileResponse, error) {
	var lastResponse *TileResponse
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return lastResponse, ctx.Err()
			case <-time.After(time.Duration(attempt*100) * time.Millisecond):
			}
		}

		response, err := f.Fetch(ctx, request)
		if err == nil {
			return response, nil
		}

		lastResponse = response
		lastErr = err

		if !f.shouldRetry(err) {
			break
		}
	}

	return lastResponse, fmt.Errorf("failed after %d attempts: %w", f.maxRetries+1, lastErr)
}

// buildFilePath constructs the file path from tile request coordinates
func (f *LocalFetcher) buildFilePath(request *TileRequest) (string, error) {
	if request.URL != "" {
		// A URL on a local request is a direct file path
		if filepath.IsAbs(request.URL) {
			return request.URL, nil
		}
		return filepath.Join(f.config.BasePath, request.URL), nil
	}

	if f.config.BasePath == "" {
		return "", fmt.Errorf("base_path is required for coordinate-based file paths")
	}

	if err := ValidateCoordinates(request.Z, request.X, request.Y); err != nil {
		return "", fmt.Errorf("invalid coordinates: %w", err)
	}

	extension := f.config.Extension
	if f.config.Compressed {
		extension += ".gz"
	}

	return filepath.Join(
		f.config.BasePath,
		strconv.Itoa(request.Z),
		strconv.Itoa(request.X),
		strconv.Itoa(request.Y)+extension,
	), nil
}

func isCompressedFile(filePath string) bool {
	return strings.HasSuffix(strings.ToLower(filePath), ".gz")
}

func contentTypeFor(filePath string) string {
	name := strings.TrimSuffix(strings.ToLower(filePath), ".gz")
	if strings.HasSuffix(name, ".geojson") || strings.HasSuffix(name, ".json") {
		return "application/geo+json"
	}
	return "application/x-protobuf"
}

// shouldRetry determines if a failed local file access should be retried
func (f *LocalFetcher) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch internal.ErrorCodeOf(err) {
	case internal.ErrorCodeNotFound, internal.ErrorCodePermission, internal.ErrorCodeValidation, internal.ErrorCodeProcessing:
		return false
	}
	return true
}

// ListAvailableTiles scans the local directory structure to find available tiles
func (f *LocalFetcher) ListAvailableTiles() ([]*TileCoordinate, error) {
	if f.config.BasePath == "" {
		return nil, fmt.Errorf("base_path is required for tile listing")
	}

	var tiles []*TileCoordinate

	err := filepath.WalkDir(f.config.BasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		coords, err := f.parseCoordinatesFromPath(path)
		if err != nil {
			// Skip files that don't match the z/x/y layout
			return nil
		}

		tiles = append(tiles, coords)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan tile directory: %w", err)
	}

	return tiles, nil
}

// parseCoordinatesFromPath extracts tile coordinates from a file path
func (f *LocalFetcher) parseCoordinatesFromPath(filePath string) (*TileCoordinate, error) {
	relPath, err := filepath.Rel(f.config.BasePath, filePath)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(filepath.ToSlash(relPath), "/")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid path structure: %s", relPath)
	}

	z, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid Z coordinate: %s", parts[0])
	}

	x, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid X coordinate: %s", parts[1])
	}

	filename := parts[2]
	filename = strings.TrimSuffix(filename, ".gz")
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))

	y, err := strconv.Atoi(filename)
	if err != nil {
		return nil, fmt.Errorf("invalid Y coordinate: %s", filename)
	}

	return &TileCoordinate{Z: z, X: x, Y: y}, nil
}

// ValidateTileExists checks if a specific tile exists in the local file system
func (f *LocalFetcher) ValidateTileExists(z, x, y int) error {
	filePath, err := f.buildFilePath(&TileRequest{Z: z, X: x, Y: y})
	if err != nil {
		return err
	}

	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("tile %d/%d/%d not found", z, x, y), err)
		}
		return internal.NewError(internal.ErrorCodeFileSystem, fmt.Sprintf("cannot access tile %d/%d/%d", z, x, y), err)
	}

	return nil
}
