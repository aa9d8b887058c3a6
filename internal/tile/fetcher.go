// internal/tile/fetcher.go - Tile fetching implementation
package tile

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"


	"github.com/valpere/tile_to_png/internal"
	"github.com/valpere/tile_to_png/internal/config"
)

// HTTPFetcher implements the Fetcher interface using HTTP requests
type HTTPFetcher struct {
	client    *http.Client
	config    *config.ServerConfig
	userAgent string
	backoff   time.Duration
}

// NewHTTPFetcher creates a new HTTP-based tile fetcher
func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Network.MaxIdleConns,
		IdleConnTimeout:     cfg.Network.IdleConnTimeout,
		DisableKeepAlives:   cfg.Network.DisableKeepAlive,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxConnsPerHost:     cfg.Batch.Concurrency,
	}

	if cfg.Network.ProxyURL != "" {
		if proxyURL, err := url.Parse(cfg.Network.ProxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{
		Timeout:   cfg.Server.Timeout,
		Transport: transport,
	}

	userAgent := cfg.Network.UserAgent
	if userAgent == "" {
		userAgent = "TileToPNG/1.0"
	}

	return &HTTPFetcher{
		client:    client,
		config:    &cfg.Server,
		userAgent: userAgent,
		backoff:   time.Second,
	}
}

// Fetch retrieves a single tile from the configured server
func (f *HTTPFetcher) Fetch(ctx context.Context, request *TileRequest) (*TileResponse, error) {
	start := time.Now()

	req, err := f.buildHTTPRequest(ctx, request)
	if err != nil {
		return &TileResponse{
			Request: request,
			Error:   fmt.Errorf("failed to build HTTP request: %w", err),
		}, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		netErr := internal.NewError(internal.ErrorCodeNetwork, "HTTP request failed", err)
		return &TileResponse{
			Request:   request,
			FetchTime: time.Since(start),
			Error:     netErr,
		}, netErr
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return &TileResponse{
				Request:    request,
				StatusCode: resp.StatusCode,
				Headers:    resp.Header,
				FetchTime:  time.Since(start),
				Error:      fmt.Errorf("failed to create gzip reader: %w", err),
			}, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return &TileResponse{
			Request:    request,
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
			FetchTime:  time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}, err
	}

	response := &TileResponse{
		Request:    request,
		Data:       data,
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
		Size:       len(data),
		FetchTime:  time.Since(start),
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		response.Error = internal.NewError(internal.ErrorCodeNotFound, fmt.Sprintf("tile not found: %s", request.URL), nil)
	case resp.StatusCode != http.StatusOK:
		response.Error = internal.NewError(internal.ErrorCodeNetwork, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status), nil)
	}
	if response.Error != nil {
		return response, response.Error
	}

	return response, nil
}

// FetchWithRetry implements retry logic for failed tile requests
func (f *HTTPFetcher) FetchWithRetry(ctx context.Context, request *TileRequest) (*TileResponse, error) {
	var lastResponse *TileResponse
	var lastErr error

	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return lastResponse, ctx.Err()
			case <-time.After(time.Duration(attempt*attempt) * f.backoff):
			}
		}

		response, err := f.Fetch(ctx, request)
		if err == nil {
			return response, nil
		}

		lastResponse = response
		lastErr = err

		if !f.shouldRetry(response, err) {
			break
		}
	}

	return lastResponse, fmt.Errorf("failed after %d attempts: %w", f.config.MaxRetries+1, lastErr)
}

// buildHTTPRequest constructs an HTTP request from a tile request
func (f *HTTPFetcher) buildHTTPRequest(ctx context.Context, tileReq *TileRequest) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileReq.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Accept", "application/x-protobuf, application/geo+json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", f.userAgent)

	if f.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.config.APIKey)
	}

	for key, value := range f.config.Headers {
		req.Header.Set(key, value)
	}

	for key, value := range tileReq.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// shouldRetry determines whether a failed request should be retried
func (f *HTTPFetcher) shouldRetry(response *TileResponse, err error) bool {
	if response == nil {
		return true
	}

	if response.StatusCode >= 400 && response.StatusCode < 500 {
		return false
	}

	if response.StatusCode >= 500 || response.StatusCode == 0 {
		return true
	}

	return false
}
