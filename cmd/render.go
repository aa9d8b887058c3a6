// cmd/render.go - Single tile rendering command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/valpere/tile_to_png/internal/batch"
	"github.com/valpere/tile_to_png/internal/config"
	"github.com/valpere/tile_to_png/internal/output"
	"github.com/valpere/tile_to_png/internal/tile"
)

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a single vector tile",
	Long: `Render a single vector tile to a PNG image.

The tile is fetched from a direct URL, a local file, or from the configured source by
coordinates. Its features are classified into map shapes and painted in z-order. With
--format geojson the classified shapes are written instead of an image; with --format
json a summary of the tile is written.

Examples:
  # Render using coordinates and base URL
  tile-to-png render --base-url "https://example.com/tiles" --z 14 --x 8362 --y 5956 --output tile.png

  # Render a local file, taking the coordinates from its z/x/y path
  tile-to-png render --file "/path/to/tiles/14/8362/5956.mvt" --output tile.png

  # Dump the classified shapes to stdout
  tile-to-png render --url "https://example.com/tiles/14/8362/5956.mvt" --format geojson

  # Compressed shape dump with statistics
  tile-to-png render --file tile.mvt.gz --format geojson --metadata --compression --output shapes.geojson`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	addTileFlags(renderCmd)

	renderCmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
	renderCmd.Flags().Bool("compression", false, "gzip text output")
	renderCmd.Flags().Bool("metadata", false, "include tile statistics in GeoJSON output")
}

// addTileFlags registers the flags selecting one tile
func addTileFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "direct URL to the tile")
	cmd.Flags().String("file", "", "direct path to a local tile file")
	cmd.Flags().Int("z", 0, "tile zoom level")
	cmd.Flags().Int("x", 0, "tile x coordinate")
	cmd.Flags().Int("y", 0, "tile y coordinate")

	cmd.MarkFlagsRequiredTogether("z", "x", "y")
	cmd.MarkFlagsMutuallyExclusive("url", "file")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zl, closeLog, err := setupLogger(cfg, "render")
	if err != nil {
		return err
	}
	defer closeLog()

	outputPath, _ := cmd.Flags().GetString("output")
	compression, _ := cmd.Flags().GetBool("compression")
	metadata, _ := cmd.Flags().GetBool("metadata")

	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	opts := []tile.ProcessorOption{tile.WithProcessorLogger(zl)}
	if !format.NeedsRaster() {
		opts = append(opts, tile.WithShapesOnly())
	}
	processor, err := tile.NewRenderProcessor(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	response, err := fetchOne(ctx, cmd, cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to fetch tile: %w", err)
	}

	rendered, err := processor.Process(ctx, response)
	if err != nil {
		return fmt.Errorf("failed to render tile: %w", err)
	}

	if outputPath != "" && outputPath != "-" {
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	writer, err := output.NewWriter(&output.WriterConfig{
		Format:      format,
		Pretty:      cfg.Output.Pretty,
		Compression: compression,
		Metadata:    metadata,
	}, outputPath, false)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer writer.Close()

	if err := writer.Write(rendered); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	m := rendered.Metadata
	zl.Info().
		Str("tile", rendered.Coordinate.String()).
		Strs("layers", m.Layers).
		Int("features", m.FeatureCount).
		Int("shapes", m.ShapeCount).
		Int("dropped", m.Dropped).
		Int("drawn", m.Render.Drawn).
		Str("output", destinationName(outputPath)).
		Msg("tile rendered")
	return nil
}

// fetchOne fetches the tile selected by --url, --file or --z/--x/--y
func fetchOne(ctx context.Context, cmd *cobra.Command, cfg *config.Config, zl zerolog.Logger) (*tile.TileResponse, error) {
	url, _ := cmd.Flags().GetString("url")
	file, _ := cmd.Flags().GetString("file")
	z, _ := cmd.Flags().GetInt("z")
	x, _ := cmd.Flags().GetInt("x")
	y, _ := cmd.Flags().GetInt("y")
	haveCoords := cmd.Flags().Changed("z")

	direct := url
	if file != "" {
		direct = file
	}

	if direct == "" {
		if !haveCoords {
			return nil, fmt.Errorf("either --url, --file or --z/--x/--y coordinates must be specified")
		}
		fetcher, err := tile.NewCoordinateFetcher(cfg)
		if err != nil {
			return nil, fmt.Errorf("source configuration invalid: %w", err)
		}
		zl.Debug().Str("tile", tile.NewTileCoordinate(z, x, y).String()).Bool("local", fetcher.IsLocal()).Msg("fetching tile")
		return fetcher.FetchTile(ctx, z, x, y)
	}

	if !haveCoords {
		if c, ok := coordinateFromPath(direct); ok {
			z, x, y = c.Z, c.X, c.Y
		}
	}
	if err := tile.ValidateCoordinates(z, x, y); err != nil {
		return nil, fmt.Errorf("invalid tile coordinates: %w", err)
	}

	request := &tile.TileRequest{Z: z, X: x, Y: y, URL: direct}
	zl.Debug().Str("source", direct).Msg("fetching tile")
	if file != "" {
		return tile.NewLocalFetcher(cfg).FetchWithRetry(ctx, request)
	}
	return tile.NewHTTPFetcher(cfg).FetchWithRetry(ctx, request)
}

// coordinateFromPath reads z/x/y from the last three segments of a tile path or URL
func coordinateFromPath(p string) (*tile.TileCoordinate, bool) {
	p = strings.TrimSuffix(filepath.ToSlash(p), ".gz")
	p = strings.TrimSuffix(p, path.Ext(p))
	parts := strings.Split(p, "/")
	if len(parts) < 3 {
		return nil, false
	}
	c, err := batch.ParseCoordinate(strings.Join(parts[len(parts)-3:], "/"))
	if err != nil {
		return nil, false
	}
	return c, true
}

func destinationName(outputPath string) string {
	if outputPath == "" || outputPath == "-" {
		return "stdout"
	}
	return outputPath
}
