// internal/tile/fetcher_factory.go - Fetcher factory implementation
package tile

import (
	"context"
	"fmt"

	"github.com/valpere/tile_to_png/internal"
	"github.com/valpere/tile_to_png/internal/config"
)

// FetcherFactory creates appropriate fetchers based on configuration
type FetcherFactory struct {
	config *config.Config
}

// NewFetcherFactory creates a new fetcher factory
func NewFetcherFactory(cfg *config.Config) *FetcherFactory {
	return &FetcherFactory{
		config: cfg,
	}
}

// CreateFetcher creates the fetcher for the configured source type
func (f *FetcherFactory) CreateFetcher() (Fetcher, error) {
	return f.CreateFetcherForType(f.config.DetermineSourceType())
}

// CreateFetcherForType creates a fetcher for a specific source type
func (f *FetcherFactory) CreateFetcherForType(sourceType internal.SourceType) (Fetcher, error) {
	switch sourceType {
	case internal.SourceTypeHTTP:
		if f.config.Server.BaseURL == "" {
			return nil, fmt.Errorf("base_url is required for HTTP fetcher")
		}
		return NewHTTPFetcher(f.config), nil
	case internal.SourceTypeLocal:
		if f.config.Local.BasePath == "" {
			return nil, fmt.Errorf("base_path is required for local fetcher")
		}
		if err := config.ValidateLocalTileDirectory(f.config); err != nil {
			return nil, fmt.Errorf("local tile directory validation failed: %w", err)
		}
		return NewLocalFetcher(f.config), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}

// CoordinateFetcher fetches tiles by z/x/y from the configured source
type CoordinateFetcher struct {
	Fetcher
	config *config.Config
}

// NewCoordinateFetcher creates a fetcher that resolves tile coordinates to requests
func NewCoordinateFetcher(cfg *config.Config) (*CoordinateFetcher, error) {
	fetcher, err := NewFetcherFactory(cfg).CreateFetcher()
	if err != nil {
		return nil, err
	}

	return &CoordinateFetcher{
		Fetcher: fetcher,
		config:  cfg,
	}, nil
}

// Request builds the tile request for a coordinate
func (cf *CoordinateFetcher) Request(z, x, y int) *TileRequest {
	request := &TileRequest{Z: z, X: x, Y: y}
	if cf.config.DetermineSourceType() == internal.SourceTypeHTTP {
		request.URL = cf.config.GetTileURL(z, x, y)
	}
	return request
}

// FetchTile fetches a tile by coordinates with retries
func (cf *CoordinateFetcher) FetchTile(ctx context.Context, z, x, y int) (*TileResponse, error) {
	if err := ValidateCoordinates(z, x, y); err != nil {
		return nil, internal.NewError(internal.ErrorCodeValidation, "invalid tile coordinates", err)
	}
	return cf.FetchWithRetry(ctx, cf.Request(z, x, y))
}

// IsLocal returns true if this fetcher uses local file access
func (cf *CoordinateFetcher) IsLocal() bool {
	return cf.config.DetermineSourceType() == internal.SourceTypeLocal
}
