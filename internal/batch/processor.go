// internal/batch/processor.go - Batch rendering implementation
package batch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/valpere/tile_to_png/internal"
	"github.com/valpere/tile_to_png/internal/output"
	"github.com/valpere/tile_to_png/internal/tile"
)

// RequestBuilder turns a tile coordinate into a request for the configured source
type RequestBuilder func(z, x, y int) *tile.TileRequest

// BatchProcessor implements the Processor interface: fetch, render and write tile ranges
type BatchProcessor struct {
	fetcher     tile.Fetcher
	processor   tile.Processor
	writer      output.Writer
	reporter    ProgressReporter
	request     RequestBuilder
	concurrency int
	logger      zerolog.Logger
	mutex       sync.Mutex
}

var _ Processor = (*BatchProcessor)(nil)

// NewBatchProcessor creates a new batch processor with the specified components
func NewBatchProcessor(fetcher tile.Fetcher, processor tile.Processor, writer output.Writer, reporter ProgressReporter, request RequestBuilder) *BatchProcessor {
	if request == nil {
		request = func(z, x, y int) *tile.TileRequest { return &tile.TileRequest{Z: z, X: x, Y: y} }
	}
	return &BatchProcessor{
		fetcher:     fetcher,
		processor:   processor,
		writer:      writer,
		reporter:    reporter,
		request:     request,
		concurrency: 10,
		logger:      zerolog.Nop(),
	}
}

// WithLogger sets the logger used for per-tile failures
func (bp *BatchProcessor) WithLogger(l zerolog.Logger) *BatchProcessor {
	bp.logger = l
	return bp
}

// Process executes a complete batch job. Tile failures are counted and only abort the job
// when FailOnError is set.
func (bp *BatchProcessor) Process(ctx context.Context, job *Job) error {
	if err := ValidateJob(job); err != nil {
		return internal.NewError(internal.ErrorCodeValidation, "job validation failed", err)
	}
	bp.concurrency = job.Config.Concurrency

	ctx, cancel := context.WithTimeout(ctx, job.Config.Timeout)
	defer cancel()

	bp.mutex.Lock()
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Progress.StartTime = now
	bp.mutex.Unlock()

	bp.report(func(r ProgressReporter) error { return r.ReportProgress(job) })

	workItems := bp.generateWorkItems(job.TileRanges, job.Config.ChunkSize)

	bp.mutex.Lock()
	job.Progress.TotalTiles = int64(len(workItems))
	job.Progress.TotalChunks = (len(workItems) + job.Config.ChunkSize - 1) / job.Config.ChunkSize
	bp.mutex.Unlock()

	for chunkStart := 0; chunkStart < len(workItems); chunkStart += job.Config.ChunkSize {
		if err := ctx.Err(); err != nil {
			bp.completeJobWithError(job, err)
			return err
		}

		chunkEnd := min(chunkStart+job.Config.ChunkSize, len(workItems))
		chunk := workItems[chunkStart:chunkEnd]

		bp.mutex.Lock()
		job.Progress.CurrentChunk = chunk[0].ChunkID + 1
		bp.mutex.Unlock()

		chunkResult, err := bp.ProcessChunk(ctx, chunk)
		bp.updateJobProgress(job, chunkResult)
		bp.report(func(r ProgressReporter) error { return r.ReportChunkComplete(job, chunkResult) })

		if err == nil && job.Config.FailOnError {
			err = chunkResult.Err()
		}
		if err != nil && (job.Config.FailOnError || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
			err = fmt.Errorf("chunk %d failed: %w", chunkResult.ChunkID, err)
			bp.completeJobWithError(job, err)
			return err
		}
		if err != nil {
			bp.logger.Warn().Err(err).Int("chunk", chunkResult.ChunkID).Msg("chunk written with errors")
		}
	}

	bp.completeJobSuccessfully(job)
	bp.report(func(r ProgressReporter) error { return r.ReportJobComplete(job) })
	return nil
}

// ProcessChunk renders a chunk of work items concurrently and writes the successful tiles.
// Results keep the order of workItems.
func (bp *BatchProcessor) ProcessChunk(ctx context.Context, workItems []*WorkItem) (*ChunkResult, error) {
	start := time.Now()
	chunkResult := &ChunkResult{}
	if len(workItems) == 0 {
		return chunkResult, nil
	}
	chunkResult.ChunkID = workItems[0].ChunkID

	p := pool.NewWithResults[*WorkResult]().WithMaxGoroutines(max(1, min(len(workItems), bp.concurrency)))
	for _, item := range workItems {
		p.Go(func() *WorkResult {
			return bp.processWorkItem(ctx, item)
		})
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Item.ItemID < results[j].Item.ItemID })

	var rendered []*tile.RenderedTile
	for _, result := range results {
		if result.Error != nil {
			chunkResult.FailureCount++
			bp.logger.Debug().Err(result.Error).Str("tile", coordinateOf(result.Item)).Msg("tile failed")
			continue
		}
		chunkResult.SuccessCount++
		rendered = append(rendered, result.Tile)
	}
	chunkResult.Results = results

	var err error
	if len(rendered) > 0 {
		if werr := bp.writer.WriteBatch(rendered); werr != nil {
			err = fmt.Errorf("failed to write batch: %w", werr)
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = multierr.Append(err, ctxErr)
	}

	chunkResult.Duration = time.Since(start)
	return chunkResult, err
}

// processWorkItem fetches and renders a single tile; retries are left to the fetcher
func (bp *BatchProcessor) processWorkItem(ctx context.Context, workItem *WorkItem) *WorkResult {
	start := time.Now()
	result := &WorkResult{Item: workItem}

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	response, err := bp.fetcher.FetchWithRetry(ctx, workItem.Request)
	if err != nil {
		result.Error = fmt.Errorf("fetch %s failed: %w", coordinateOf(workItem), err)
		result.Duration = time.Since(start)
		return result
	}

	rendered, err := bp.processor.Process(ctx, response)
	if err != nil {
		result.Error = fmt.Errorf("render %s failed: %w", coordinateOf(workItem), err)
		result.Duration = time.Since(start)
		return result
	}

	result.Tile = rendered
	result.Duration = time.Since(start)
	return result
}

// generateWorkItems expands the tile ranges into work items, numbered by chunk
func (bp *BatchProcessor) generateWorkItems(tileRanges []*tile.TileRange, chunkSize int) []*WorkItem {
	var workItems []*WorkItem
	for _, tileRange := range tileRanges {
		for _, c := range tileRange.Coordinates() {
			itemID := len(workItems)
			workItems = append(workItems, NewWorkItem(bp.request(c.Z, c.X, c.Y), itemID/chunkSize, itemID))
		}
	}
	return workItems
}

// updateJobProgress updates job progress based on chunk results
func (bp *BatchProcessor) updateJobProgress(job *Job, chunkResult *ChunkResult) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	job.Progress.ProcessedTiles += int64(len(chunkResult.Results))
	job.Progress.SuccessTiles += int64(chunkResult.SuccessCount)
	job.Progress.FailedTiles += int64(chunkResult.FailureCount)
	for _, r := range chunkResult.Results {
		if r.Tile != nil && r.Tile.Metadata != nil {
			job.Progress.ShapesDrawn += int64(r.Tile.Metadata.Render.Drawn)
		}
	}
	job.Progress.UpdateThroughput()

	estimatedEnd := job.Progress.EstimateCompletion()
	job.Progress.EstimatedEnd = &estimatedEnd
}

// completeJobSuccessfully marks the job as completed
func (bp *BatchProcessor) completeJobSuccessfully(job *Job) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	job.Status = JobStatusCompleted
	now := time.Now()
	job.CompletedAt = &now
}

// completeJobWithError marks the job as failed, or canceled when its context ended
func (bp *BatchProcessor) completeJobWithError(job *Job, err error) {
	bp.mutex.Lock()
	job.Status = JobStatusFailed
	if errors.Is(err, context.Canceled) {
		job.Status = JobStatusCanceled
	}
	job.Error = err
	now := time.Now()
	job.CompletedAt = &now
	bp.mutex.Unlock()

	bp.report(func(r ProgressReporter) error { return r.ReportJobFailed(job, err) })
}

func (bp *BatchProcessor) report(fn func(ProgressReporter) error) {
	if bp.reporter == nil {
		return
	}
	if err := fn(bp.reporter); err != nil {
		bp.logger.Debug().Err(err).Msg("progress report failed")
	}
}

func coordinateOf(item *WorkItem) string {
	return tile.NewTileCoordinate(item.Request.Z, item.Request.X, item.Request.Y).String()
}
