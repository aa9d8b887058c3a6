// cmd/preview.go - Terminal preview command
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/valpere/tile_to_png/internal/classify"
	"github.com/valpere/tile_to_png/internal/render"
	"github.com/valpere/tile_to_png/internal/tile"
	"github.com/valpere/tile_to_png/internal/zorder"
)

// previewCmd represents the preview command
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview a tile in the terminal",
	Long: `Draw a single tile as braille characters, coloured by shape kind.

Each terminal cell holds a 2x4 grid of dots, so an 80x40 preview has a 160x160 canvas.

Examples:
  tile-to-png preview --base-path "/path/to/tiles" --z 14 --x 8362 --y 5956
  tile-to-png preview --file tile.mvt --cols 120 --rows 60 --plain`,
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)
	addTileFlags(previewCmd)

	previewCmd.Flags().Int("cols", 80, "preview width in terminal cells")
	previewCmd.Flags().Int("rows", 40, "preview height in terminal cells")
	previewCmd.Flags().Bool("plain", false, "print without colour")
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zl, closeLog, err := setupLogger(cfg, "preview")
	if err != nil {
		return err
	}
	defer closeLog()

	cols, _ := cmd.Flags().GetInt("cols")
	rows, _ := cmd.Flags().GetInt("rows")
	plain, _ := cmd.Flags().GetBool("plain")

	surface, err := render.NewBrailleSurface(cols, rows)
	if err != nil {
		return err
	}

	processor, err := tile.NewRenderProcessor(cfg, tile.WithShapesOnly(), tile.WithProcessorLogger(zl))
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
		return fmt.Errorf("failed to classify tile: %w", err)
	}

	q := zorder.NewWithCapacity(len(rendered.Shapes))
	for _, s := range rendered.Shapes {
		q.PushShape(s)
	}
	stats, err := render.New(render.WithLogger(zl)).Draw(q, classify.Bounds(rendered.Shapes), surface)
	if err != nil {
		return fmt.Errorf("failed to draw preview: %w", err)
	}

	lines := surface.Lines()
	if plain {
		lines = surface.Plain()
	}
	out := cmd.OutOrStdout()
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%s: %d shapes drawn, %d skipped\n", rendered.Coordinate, stats.Drawn, stats.Skipped)
	return nil
}
