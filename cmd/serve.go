// cmd/serve.go - HTTP tile server command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/tile_to_png/internal/cache"
	"github.com/valpere/tile_to_png/internal/config"
	"github.com/valpere/tile_to_png/internal/metrics"
	"github.com/valpere/tile_to_png/internal/server"
	"github.com/valpere/tile_to_png/internal/tile"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered tiles over HTTP",
	Long: `Serve rendered tiles at /tiles/{z}/{x}/{y}.png.

Tiles are fetched from the configured source, rendered on first request and kept in an
in-process LRU or a shared Redis cache. /healthz answers liveness probes and /metrics
exposes Prometheus metrics.

Examples:
  # Serve local tiles with the default LRU cache
  tile-to-png serve --base-path "/path/to/tiles" --addr :8080

  # Serve a remote source through Redis
  tile-to-png serve --base-url "https://example.com/tiles" --cache redis --redis-addr localhost:6379`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("cache", "lru", "tile cache (none, lru, redis)")
	serveCmd.Flags().Int("cache-size", 1024, "LRU cache size in tiles")
	serveCmd.Flags().String("redis-addr", "localhost:6379", "Redis address for the redis cache")
	serveCmd.Flags().Duration("cache-ttl", 0, "cache entry lifetime (0 keeps the configured default)")

	viper.BindPFlag("http.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("cache.type", serveCmd.Flags().Lookup("cache"))
	viper.BindPFlag("cache.size", serveCmd.Flags().Lookup("cache-size"))
	viper.BindPFlag("cache.redis_addr", serveCmd.Flags().Lookup("redis-addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if ttl, _ := cmd.Flags().GetDuration("cache-ttl"); ttl > 0 {
		cfg.Cache.TTL = ttl
	}

	zl, closeLog, err := setupLogger(cfg, "serve")
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewProvider(version)

	fetcher, err := tile.NewCoordinateFetcher(cfg)
	if err != nil {
		return fmt.Errorf("source configuration invalid: %w", err)
	}
	processor, err := tile.NewRenderProcessor(cfg, tile.WithMetrics(m), tile.WithProcessorLogger(zl))
	if err != nil {
		return err
	}

	c, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to open %s cache: %w", cfg.Cache.Type, err)
	}
	defer c.Close()

	srv := server.New(fetcher, processor, c,
		server.WithMetrics(m),
		server.WithLogger(zl),
		server.WithCacheKey(cfg.Cache.Prefix, renderVariant(cfg)),
		server.WithMaxAge(cfg.Cache.TTL),
	)

	zl.Info().
		Str("addr", cfg.HTTP.Addr).
		Str("cache", cfg.Cache.Type).
		Str("source", string(cfg.DetermineSourceType())).
		Msg("starting tile server")
	return srv.Run(ctx, cfg.HTTP)
}

// renderVariant describes every setting that changes the rendered bytes of a tile
func renderVariant(cfg *config.Config) string {
	return fmt.Sprintf("%dx%d|%s|%s|%s|%s|%s",
		cfg.Render.Width, cfg.Render.Height,
		strings.ToLower(cfg.Render.Background),
		strings.Join(cfg.Render.Layers, ","),
		cfg.Render.CoordinateSystem,
		cfg.Source.Format,
		cfg.GetTileURL(0, 0, 0)+cfg.Local.BasePath,
	)
}
