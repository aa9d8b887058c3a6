// cmd/root.go - Root command implementation
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gogpu/gg"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/tile_to_png/internal/config"
	"github.com/valpere/tile_to_png/internal/logger"
)

// version is overridden at build time with -ldflags "-X .../cmd.version=..."
var version = "1.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tile-to-png",
	Short: "Render Mapbox Vector Tiles to PNG images",
	Long: `TileToPNG classifies the features of a vector tile into map shapes (roads, water,
borders, railways, settlements and terrain) and paints them in z-order onto a raster.

Data Sources:
- Remote tile servers via HTTP/HTTPS
- Local tile files and directories
- MVT protobuf or GeoJSON FeatureCollection tiles

Features:
- Render individual tiles or batch render tile ranges
- PNG images, GeoJSON dumps of the classified shapes or JSON summaries
- HTTP tile server with LRU or Redis cache and Prometheus metrics
- Terminal preview as braille art

Examples:
  # Render a single remote tile
  tile-to-png render --base-url "https://example.com/tiles" --z 14 --x 8362 --y 5956 --output tile.png

  # Render a local tile file
  tile-to-png render --file "/path/to/tiles/14/8362/5956.mvt" --output tile.png

  # Dump the classified shapes as GeoJSON
  tile-to-png render --base-path "/path/to/tiles" --z 14 --x 8362 --y 5956 --format geojson

  # Batch render a bounding box
  tile-to-png batch --base-url "https://example.com/tiles" --min-zoom 10 --max-zoom 12 --bbox "-74.0,40.7,-73.9,40.8"

  # Serve rendered tiles
  tile-to-png serve --base-path "/path/to/tiles" --addr :8080

  # Preview a tile in the terminal
  tile-to-png preview --base-path "/path/to/tiles" --z 14 --x 8362 --y 5956`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tile-to-png.yaml)")

	// Source configuration flags
	rootCmd.PersistentFlags().String("source-type", "auto", "data source type (auto, http, local)")
	rootCmd.PersistentFlags().String("source-format", "mvt", "tile encoding (mvt, geojson)")
	rootCmd.PersistentFlags().String("base-url", "", "base URL for tile server (HTTP source)")
	rootCmd.PersistentFlags().String("base-path", "", "base path for local tiles (local source)")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (HTTP source)")

	// Render flags
	rootCmd.PersistentFlags().Int("width", 512, "output image width in pixels")
	rootCmd.PersistentFlags().Int("height", 512, "output image height in pixels")
	rootCmd.PersistentFlags().String("background", "white", "background colour (SVG colour name)")
	rootCmd.PersistentFlags().Int("workers", 4, "classification workers per tile")
	rootCmd.PersistentFlags().StringSlice("layers", nil, "render only these MVT layers")

	// Output flags
	rootCmd.PersistentFlags().StringP("format", "f", "png", "output format (png, geojson, json)")
	rootCmd.PersistentFlags().Bool("pretty", true, "pretty print JSON output")

	// Processing flags
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().Int("concurrency", 10, "number of concurrent tiles")
	rootCmd.PersistentFlags().Duration("timeout", 30*1000000000, "request timeout (HTTP source)")
	rootCmd.PersistentFlags().Int("retries", 3, "number of retry attempts")

	// Bind flags to viper
	viper.BindPFlag("source.type", rootCmd.PersistentFlags().Lookup("source-type"))
	viper.BindPFlag("source.format", rootCmd.PersistentFlags().Lookup("source-format"))
	viper.BindPFlag("server.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	viper.BindPFlag("local.base_path", rootCmd.PersistentFlags().Lookup("base-path"))
	viper.BindPFlag("server.api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("render.width", rootCmd.PersistentFlags().Lookup("width"))
	viper.BindPFlag("render.height", rootCmd.PersistentFlags().Lookup("height"))
	viper.BindPFlag("render.background", rootCmd.PersistentFlags().Lookup("background"))
	viper.BindPFlag("render.workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("render.layers", rootCmd.PersistentFlags().Lookup("layers"))
	viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output.pretty", rootCmd.PersistentFlags().Lookup("pretty"))
	viper.BindPFlag("logging.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("batch.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	viper.BindPFlag("server.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("server.max_retries", rootCmd.PersistentFlags().Lookup("retries"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".tile-to-png" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tile-to-png")
	}

	viper.SetEnvPrefix("TILE_TO_PNG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig loads the configuration and applies a --source-type override
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	switch cfg.Source.Type {
	case "http", "local":
		cfg.Source.AutoDetect = false
	case "", "auto":
	default:
		return nil, fmt.Errorf("invalid source type: %s (must be 'auto', 'http' or 'local')", cfg.Source.Type)
	}
	return cfg, nil
}

// setupLogger builds the process logger and routes the drawing library's logs through it.
// The returned function closes a log file when one was configured.
func setupLogger(cfg *config.Config, component string) (zerolog.Logger, func() error, error) {
	out, closeFn, err := logger.Open(cfg.Logging.Output)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	level := cfg.Logging.Level
	if cfg.Logging.Verbose && level == "info" {
		level = "debug"
	}
	zl := logger.Build(logger.Config{
		Level:     level,
		Console:   cfg.Logging.Format == "text",
		Output:    cfg.Logging.Output,
		Component: component,
	}, out)

	gg.SetLogger(logger.NewSlog(&zl))
	return zl, closeFn, nil
}
