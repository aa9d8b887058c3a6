// internal/batch/reporter.go - Progress reporting for batch jobs
package batch

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

var (
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fafd7"))
	doneStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5faf5f"))
	failStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#d75f5f"))
)

// ConsoleReporter prints a single updating progress line
type ConsoleReporter struct {
	out        io.Writer
	interval   time.Duration
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewConsoleReporter creates a reporter writing to out at most once per interval
func NewConsoleReporter(out io.Writer, interval time.Duration) *ConsoleReporter {
	return &ConsoleReporter{out: out, interval: interval}
}

// ReportProgress reports job progress to the console
func (r *ConsoleReporter) ReportProgress(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if time.Since(r.lastUpdate) < r.interval {
		return nil
	}
	r.lastUpdate = time.Now()

	p := job.Progress
	line := fmt.Sprintf("Progress: %.1f%% (%d/%d tiles, %d failed, %.2f tiles/sec)",
		p.CalculateProgress(), p.ProcessedTiles, p.TotalTiles, p.FailedTiles, p.Throughput)
	_, err := fmt.Fprint(r.out, "\r"+progressStyle.Render(line))
	return err
}

// ReportChunkComplete reports chunk completion
func (r *ConsoleReporter) ReportChunkComplete(job *Job, _ *ChunkResult) error {
	return r.ReportProgress(job)
}

// ReportJobComplete reports job completion
func (r *ConsoleReporter) ReportJobComplete(job *Job) error {
	p := job.Progress
	line := fmt.Sprintf("Completed: %d tiles rendered, %d failed, %d shapes drawn in %v",
		p.SuccessTiles, p.FailedTiles, p.ShapesDrawn, time.Since(p.StartTime).Round(time.Millisecond))
	_, err := fmt.Fprintln(r.out, "\r"+doneStyle.Render(line))
	return err
}

// ReportJobFailed reports job failure
func (r *ConsoleReporter) ReportJobFailed(_ *Job, err error) error {
	_, werr := fmt.Fprintln(r.out, "\r"+failStyle.Render("Failed: "+err.Error()))
	return werr
}

// LogReporter reports progress as structured log events
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter creates a reporter logging through l
func NewLogReporter(l zerolog.Logger) *LogReporter {
	return &LogReporter{logger: l}
}

func (r *LogReporter) ReportProgress(job *Job) error {
	r.logger.Info().
		Str("job", job.ID).
		Int64("total", job.Progress.TotalTiles).
		Msg("batch started")
	return nil
}

func (r *LogReporter) ReportChunkComplete(job *Job, chunk *ChunkResult) error {
	r.logger.Info().
		Str("job", job.ID).
		Int("chunk", chunk.ChunkID+1).
		Int("chunks", job.Progress.TotalChunks).
		Int("ok", chunk.SuccessCount).
		Int("failed", chunk.FailureCount).
		Dur("elapsed", chunk.Duration).
		Float64("progress", job.Progress.CalculateProgress()).
		Msg("chunk complete")
	return nil
}

func (r *LogReporter) ReportJobComplete(job *Job) error {
	r.logger.Info().
		Str("job", job.ID).
		Int64("rendered", job.Progress.SuccessTiles).
		Int64("failed", job.Progress.FailedTiles).
		Int64("shapes", job.Progress.ShapesDrawn).
		Float64("tiles_per_sec", job.Progress.Throughput).
		Msg("batch complete")
	return nil
}

func (r *LogReporter) ReportJobFailed(job *Job, err error) error {
	r.logger.Error().Err(err).Str("job", job.ID).Msg("batch failed")
	return nil
}
