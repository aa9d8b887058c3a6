// internal/server/server.go - HTTP tile server
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/valpere/tile_to_png/internal/cache"
	"github.com/valpere/tile_to_png/internal/config"
	"github.com/valpere/tile_to_png/internal/logger"
	"github.com/valpere/tile_to_png/internal/metrics"
	"github.com/valpere/tile_to_png/internal/output"
	"github.com/valpere/tile_to_png/internal/tile"
)

// TileFetcher fetches raw tile bytes by coordinate
type TileFetcher interface {
	FetchTile(ctx context.Context, z, x, y int) (*tile.TileResponse, error)
}

// Server renders tiles on request and keeps the encoded PNGs in a cache
type Server struct {
	fetcher   TileFetcher
	processor tile.Processor
	cache     cache.Cache
	png       *output.PNGFormatter
	metrics   *metrics.Provider
	logger    zerolog.Logger
	prefix    string
	variant   string
	maxAge    time.Duration
}

// Option configures a Server
type Option func(*Server)

// WithMetrics records request and cache metrics and mounts /metrics
func WithMetrics(m *metrics.Provider) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the request logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCacheKey sets the key prefix and the render variant folded into every key
func WithCacheKey(prefix, variant string) Option {
	return func(s *Server) {
		s.prefix = prefix
		s.variant = variant
	}
}

// WithMaxAge sets the Cache-Control max-age of tile responses
func WithMaxAge(d time.Duration) Option {
	return func(s *Server) { s.maxAge = d }
}

// New creates a tile server. A nil cache disables caching.
func New(fetcher TileFetcher, processor tile.Processor, c cache.Cache, opts ...Option) *Server {
	if c == nil {
		c = cache.Nop{}
	}
	s := &Server{
		fetcher:   fetcher,
		processor: processor,
		cache:     c,
		png:       output.NewPNGFormatter(),
		logger:    zerolog.Nop(),
		maxAge:    time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.logger))
	r.Use(Logging(logger.NewSlog(&s.logger)))
	r.Use(Metrics(s.metrics))

	r.Get("/healthz", Liveness())
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/tiles/{z}/{x}/{y}.png", s.handleTile)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, cfg config.HTTPConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.NewSlog(&s.logger).Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", cfg.Addr).Msg("http listen")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info().Msg("http shutdown")
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
