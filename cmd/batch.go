// cmd/batch.go - Batch rendering command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/valpere/tile_to_png/internal"
	"github.com/valpere/tile_to_png/internal/batch"
	"github.com/valpere/tile_to_png/internal/config"
	"github.com/valpere/tile_to_png/internal/output"
	"github.com/valpere/tile_to_png/internal/tile"
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch render multiple vector tiles",
	Long: `Batch render multiple vector tiles to PNG images.

This command renders tile ranges from both remote servers and local file systems. Tiles
are rendered concurrently in chunks and written to a z/x/y tree, or stitched into one
mosaic (PNG) or FeatureCollection (GeoJSON) with --single-file.

Examples:
  # Render remote tiles in a zoom range with bounding box
  tile-to-png batch --base-url "https://example.com/tiles" --min-zoom 10 --max-zoom 12 --bbox "-74.0,40.7,-73.9,40.8" --output-dir ./tiles/

  # Render local tiles in a directory
  tile-to-png batch --base-path "/path/to/tiles" --min-zoom 10 --max-zoom 12 --bbox "-74.0,40.7,-73.9,40.8" --output-dir ./output/

  # Render a whole zoom level
  tile-to-png batch --base-url "https://example.com/tiles" --zoom 4 --output-dir ./tiles/

  # Render specific tiles with custom concurrency and chunk size
  tile-to-png batch --base-path "/path/to/tiles" --tiles "14/8362/5956,14/8363/5956" --concurrency 20 --chunk-size 50

  # Render everything in a local tile tree
  tile-to-png batch --base-path "/path/to/tiles" --available --output-dir ./png/

  # Stitch a bounding box into one image
  tile-to-png batch --base-path "/path/to/tiles" --zoom 12 --bbox "30.2,50.3,30.8,50.6" --single-file --output kyiv.png`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Tile range flags
	batchCmd.Flags().Int("zoom", 0, "single zoom level to render")
	batchCmd.Flags().Int("min-zoom", 0, "minimum zoom level")
	batchCmd.Flags().Int("max-zoom", 0, "maximum zoom level")
	batchCmd.Flags().String("bbox", "", "bounding box: 'min_lon,min_lat,max_lon,max_lat'")
	batchCmd.Flags().String("tiles", "", "specific tiles list: 'z/x/y,z/x/y,...'")
	batchCmd.Flags().Bool("available", false, "render every tile found under --base-path")

	// Output flags
	batchCmd.Flags().String("output-dir", "./output", "output directory for tiles")
	batchCmd.Flags().StringP("output", "o", "", "single output file (use with --single-file)")
	batchCmd.Flags().Bool("single-file", false, "combine all tiles into a single file")
	batchCmd.Flags().Bool("compression", false, "gzip text output files")
	batchCmd.Flags().Bool("metadata", false, "include tile statistics in GeoJSON output")

	// Processing flags
	batchCmd.Flags().Int("chunk-size", 100, "number of tiles per processing chunk")
	batchCmd.Flags().Bool("fail-on-error", false, "stop processing on first error")

	// Progress flags
	batchCmd.Flags().Bool("progress", true, "show progress indicator")
	batchCmd.Flags().Duration("progress-interval", time.Second, "progress update interval")

	batchCmd.MarkFlagsMutuallyExclusive("zoom", "min-zoom")
	batchCmd.MarkFlagsMutuallyExclusive("zoom", "max-zoom")
	batchCmd.MarkFlagsMutuallyExclusive("tiles", "zoom")
	batchCmd.MarkFlagsMutuallyExclusive("tiles", "bbox")
	batchCmd.MarkFlagsMutuallyExclusive("available", "tiles")
	batchCmd.MarkFlagsMutuallyExclusive("available", "zoom")
	batchCmd.MarkFlagsMutuallyExclusive("available", "bbox")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zl, closeLog, err := setupLogger(cfg, "batch")
	if err != nil {
		return err
	}
	defer closeLog()

	outputDir, _ := cmd.Flags().GetString("output-dir")
	outputFile, _ := cmd.Flags().GetString("output")
	singleFile, _ := cmd.Flags().GetBool("single-file")
	compression, _ := cmd.Flags().GetBool("compression")
	metadata, _ := cmd.Flags().GetBool("metadata")
	chunkSize, _ := cmd.Flags().GetInt("chunk-size")
	failOnError, _ := cmd.Flags().GetBool("fail-on-error")
	showProgress, _ := cmd.Flags().GetBool("progress")
	progressInterval, _ := cmd.Flags().GetDuration("progress-interval")

	if cmd.Flags().Changed("chunk-size") {
		cfg.Batch.ChunkSize = chunkSize
	}
	if cmd.Flags().Changed("fail-on-error") {
		cfg.Batch.FailOnError = failOnError
	}

	var tileRanges []*tile.TileRange
	if available, _ := cmd.Flags().GetBool("available"); available {
		tileRanges, err = availableRanges(cfg)
	} else {
		tileRanges, err = tileRangesFromFlags(cmd)
	}
	if err != nil {
		return err
	}

	var totalTiles int64
	for _, tr := range tileRanges {
		totalTiles += tr.Count()
	}

	sourceType := cfg.DetermineSourceType()
	fetcher, err := tile.NewCoordinateFetcher(cfg)
	if err != nil {
		return fmt.Errorf("source configuration validation failed: %w", err)
	}
	if sourceType == internal.SourceTypeLocal {
		sampleLocalTiles(cfg, tileRanges, zl)
	}

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

	jobConfig := &batch.JobConfig{
		Concurrency:  cfg.Batch.Concurrency,
		ChunkSize:    cfg.Batch.ChunkSize,
		Timeout:      cfg.Batch.Timeout,
		FailOnError:  cfg.Batch.FailOnError,
		OutputFormat: format.String(),
		Compression:  compression,
		MultiFile:    !singleFile,
		OutputPath:   outputDir,
	}
	if singleFile {
		if outputFile == "" {
			return fmt.Errorf("output file must be specified when using --single-file")
		}
		jobConfig.OutputPath = outputFile
	}

	writer, err := newBatchWriter(jobConfig, cfg.Output.Pretty, metadata)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer writer.Close()

	var reporter batch.ProgressReporter = batch.NewLogReporter(zl)
	if showProgress {
		reporter = batch.NewConsoleReporter(os.Stderr, progressInterval)
	}

	bp := batch.NewBatchProcessor(fetcher, processor, writer, reporter, fetcher.Request).WithLogger(zl)
	job := batch.NewJob(generateJobID(), tileRanges, jobConfig)

	zl.Info().
		Str("job", job.ID).
		Int64("tiles", totalTiles).
		Int("ranges", len(tileRanges)).
		Str("source", string(sourceType)).
		Str("output", jobConfig.OutputPath).
		Msg("starting batch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := bp.Process(ctx, job); err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	// single-file output is only written on Close
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish output: %w", err)
	}
	return nil
}

// tileRangesFromFlags resolves --tiles or --zoom/--min-zoom/--max-zoom with --bbox
func tileRangesFromFlags(cmd *cobra.Command) ([]*tile.TileRange, error) {
	tilesStr, _ := cmd.Flags().GetString("tiles")
	if tilesStr != "" {
		ranges, err := batch.ParseTiles(tilesStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tiles list: %w", err)
		}
		if len(ranges) == 0 {
			return nil, fmt.Errorf("no tiles to process")
		}
		return ranges, nil
	}

	zoom, _ := cmd.Flags().GetInt("zoom")
	minZoom, _ := cmd.Flags().GetInt("min-zoom")
	maxZoom, _ := cmd.Flags().GetInt("max-zoom")
	bboxStr, _ := cmd.Flags().GetString("bbox")

	switch {
	case cmd.Flags().Changed("zoom"):
		minZoom, maxZoom = zoom, zoom
	case cmd.Flags().Changed("min-zoom") && !cmd.Flags().Changed("max-zoom"):
		maxZoom = minZoom
	case !cmd.Flags().Changed("min-zoom") && !cmd.Flags().Changed("max-zoom"):
		return nil, fmt.Errorf("zoom level(s), --tiles or --available must be specified")
	}

	var bound *orb.Bound
	if bboxStr != "" {
		b, err := batch.ParseBounds(bboxStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bounding box: %w", err)
		}
		bound = &b
	}

	ranges, err := batch.RangesForBounds(minZoom, maxZoom, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tile ranges: %w", err)
	}
	return ranges, nil
}

// availableRanges lists the local tile tree as single-tile ranges in z/x/y order
func availableRanges(cfg *config.Config) ([]*tile.TileRange, error) {
	if cfg.DetermineSourceType() != internal.SourceTypeLocal {
		return nil, fmt.Errorf("--available needs a local source (--base-path)")
	}
	coords, err := tile.NewLocalFetcher(cfg).ListAvailableTiles()
	if err != nil {
		return nil, err
	}
	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})

	var ranges []*tile.TileRange
	for _, c := range coords {
		if tile.ValidateCoordinates(c.Z, c.X, c.Y) != nil {
			continue
		}
		ranges = append(ranges, tile.NewTileRange(c.Z, c.Z, c.X, c.X, c.Y, c.Y))
	}
	if len(ranges) == 0 {
		return nil, fmt.Errorf("no tiles found under %s", cfg.Local.BasePath)
	}
	return ranges, nil
}

// newBatchWriter lays tiles out as a z/x/y tree, or buffers them into one document
func newBatchWriter(job *batch.JobConfig, pretty, metadata bool) (output.Writer, error) {
	format, err := output.ParseFormat(job.OutputFormat)
	if err != nil {
		return nil, err
	}
	wc := &output.WriterConfig{
		Format:      format,
		Pretty:      pretty,
		Compression: job.Compression,
		Metadata:    metadata,
	}
	if job.MultiFile {
		return output.NewWriter(wc, job.OutputPath, true)
	}
	inner, err := output.NewWriter(wc, job.OutputPath, false)
	if err != nil {
		return nil, err
	}
	return output.NewBufferedWriter(inner), nil
}

// sampleLocalTiles warns about missing local tiles among the first few coordinates
func sampleLocalTiles(cfg *config.Config, tileRanges []*tile.TileRange, zl zerolog.Logger) {
	const maxSamples = 10

	localFetcher := tile.NewLocalFetcher(cfg)
	samples := 0
	for _, tr := range tileRanges {
		for z := tr.MinZ; z <= tr.MaxZ; z++ {
			for x := tr.MinX; x <= tr.MaxX; x++ {
				for y := tr.MinY; y <= tr.MaxY; y++ {
					if samples == maxSamples {
						return
					}
					if err := localFetcher.ValidateTileExists(z, x, y); err != nil {
						zl.Warn().Str("tile", tile.NewTileCoordinate(z, x, y).String()).Msg("tile not found locally")
					}
					samples++
				}
			}
		}
	}
}

// generateJobID creates a unique job ID
func generateJobID() string {
	return fmt.Sprintf("batch-%d", time.Now().Unix())
}
