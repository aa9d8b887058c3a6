// internal/batch/types.go - Batch processing types
package batch

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/valpere/tile_to_png/internal/tile"
)

// Job represents a batch rendering job
type Job struct {
	ID          string            `json:"id"`
	TileRanges  []*tile.TileRange `json:"tile_ranges"`
	Config      *JobConfig        `json:"config"`
	Status      JobStatus         `json:"status"`
	Progress    *JobProgress      `json:"progress"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Error       error             `json:"error,omitempty"`
}

// JobConfig contains configuration for a batch rendering job
type JobConfig struct {
	Concurrency  int           `json:"concurrency"`
	ChunkSize    int           `json:"chunk_size"`
	Timeout      time.Duration `json:"timeout"`
	OutputPath   string        `json:"output_path"`
	OutputFormat string        `json:"output_format"`
	FailOnError  bool          `json:"fail_on_error"`
	MultiFile    bool          `json:"multi_file"`
	Compression  bool          `json:"compression"`
}

// JobStatus represents the current status of a batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// JobProgress tracks the progress of a batch rendering job
type JobProgress struct {
	TotalTiles     int64      `json:"total_tiles"`
	ProcessedTiles int64      `json:"processed_tiles"`
	FailedTiles    int64      `json:"failed_tiles"`
	SuccessTiles   int64      `json:"success_tiles"`
	ShapesDrawn    int64      `json:"shapes_drawn"`
	CurrentChunk   int        `json:"current_chunk"`
	TotalChunks    int        `json:"total_chunks"`
	StartTime      time.Time  `json:"start_time"`
	EstimatedEnd   *time.Time `json:"estimated_end,omitempty"`
	Throughput     float64    `json:"throughput"`
}

// WorkItem represents a single tile of a batch job
type WorkItem struct {
	Request *tile.TileRequest `json:"request"`
	ChunkID int               `json:"chunk_id"`
	ItemID  int               `json:"item_id"`
}

// WorkResult represents the result of rendering a work item
type WorkResult struct {
	Item     *WorkItem          `json:"item"`
	Tile     *tile.RenderedTile `json:"tile,omitempty"`
	Error    error              `json:"error,omitempty"`
	Duration time.Duration      `json:"duration"`
}

// ChunkResult represents the result of rendering a chunk of work items
type ChunkResult struct {
	ChunkID      int           `json:"chunk_id"`
	Results      []*WorkResult `json:"results"`
	Duration     time.Duration `json:"duration"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
}

// Err combines the errors of every failed item in the chunk
func (c *ChunkResult) Err() error {
	var err error
	for _, r := range c.Results {
		err = multierr.Append(err, r.Error)
	}
	return err
}

// Processor defines the interface for executing batch jobs
type Processor interface {
	Process(ctx context.Context, job *Job) error
	ProcessChunk(ctx context.Context, workItems []*WorkItem) (*ChunkResult, error)
}

// ProgressReporter defines the interface for reporting job progress
type ProgressReporter interface {
	ReportProgress(job *Job) error
	ReportChunkComplete(job *Job, chunk *ChunkResult) error
	ReportJobComplete(job *Job) error
	ReportJobFailed(job *Job, err error) error
}

// NewJob creates a new batch rendering job
func NewJob(id string, ranges []*tile.TileRange, config *JobConfig) *Job {
	return &Job{
		ID:         id,
		TileRanges: ranges,
		Config:     config,
		Status:     JobStatusPending,
		Progress:   NewJobProgress(),
		CreatedAt:  time.Now(),
	}
}

// NewJobConfig creates a new job configuration with default values
func NewJobConfig() *JobConfig {
	return &JobConfig{
		Concurrency:  10,
		ChunkSize:    100,
		Timeout:      5 * time.Minute,
		MultiFile:    true,
		OutputFormat: "png",
	}
}

// NewJobProgress creates a new job progress tracker
func NewJobProgress() *JobProgress {
	return &JobProgress{StartTime: time.Now()}
}

// NewWorkItem creates a new work item
func NewWorkItem(request *tile.TileRequest, chunkID, itemID int) *WorkItem {
	return &WorkItem{
		Request: request,
		ChunkID: chunkID,
		ItemID:  itemID,
	}
}

// EstimateCompletion estimates when the job will complete based on current progress
func (p *JobProgress) EstimateCompletion() time.Time {
	if p.Throughput == 0 || p.ProcessedTiles == 0 {
		return time.Now().Add(time.Hour)
	}

	remaining := p.TotalTiles - p.ProcessedTiles
	if remaining <= 0 {
		return time.Now()
	}

	secondsRemaining := float64(remaining) / p.Throughput
	return time.Now().Add(time.Duration(secondsRemaining * float64(time.Second)))
}

// CalculateProgress calculates the completion percentage
func (p *JobProgress) CalculateProgress() float64 {
	if p.TotalTiles == 0 {
		return 0
	}
	return float64(p.ProcessedTiles) / float64(p.TotalTiles) * 100
}

// UpdateThroughput updates the processing throughput based on elapsed time
func (p *JobProgress) UpdateThroughput() {
	elapsed := time.Since(p.StartTime)
	if elapsed.Seconds() > 0 && p.ProcessedTiles > 0 {
		p.Throughput = float64(p.ProcessedTiles) / elapsed.Seconds()
	}
}

// String returns a string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// IsValid checks if the job status is valid
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}
