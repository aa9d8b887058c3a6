// internal/batch/batch_test.go - Unit tests for batch rendering
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/valpere/tile_to_png/internal"
	"github.com/valpere/tile_to_png/internal/render"
	"github.com/valpere/tile_to_png/internal/tile"
)

type fakeFetcher struct {
	missing map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, req *tile.TileRequest) (*tile.TileResponse, error) {
	key := fmt.Sprintf("%d/%d/%d", req.Z, req.X, req.Y)
	if f.missing[key] {
		err := internal.NewError(internal.ErrorCodeNotFound, "tile not found: "+key, nil)
		return &tile.TileResponse{Request: req, Error: err}, err
	}
	return &tile.TileResponse{Request: req, Data: []byte(key), StatusCode: 200}, nil
}

func (f *fakeFetcher) FetchWithRetry(ctx context.Context, req *tile.TileRequest) (*tile.TileResponse, error) {
	return f.Fetch(ctx, req)
}

type fakeProcessor struct{}

func (fakeProcessor) Process(ctx context.Context, resp *tile.TileResponse) (*tile.RenderedTile, error) {
	return &tile.RenderedTile{
		Coordinate: tile.NewTileCoordinate(resp.Request.Z, resp.Request.X, resp.Request.Y),
		Image:      image.NewRGBA(image.Rect(0, 0, 2, 2)),
		Metadata:   &tile.TileMetadata{Render: render.Stats{Drawn: 3}},
	}, nil
}

type recordingWriter struct {
	mu      sync.Mutex
	written []string
	err     error
}

func (w *recordingWriter) Write(t *tile.RenderedTile) error {
	return w.WriteBatch([]*tile.RenderedTile{t})
}

func (w *recordingWriter) WriteBatch(tiles []*tile.RenderedTile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range tiles {
		w.written = append(w.written, t.Coordinate.String())
	}
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func testJob(failOnError bool, ranges ...*tile.TileRange) *Job {
	cfg := NewJobConfig()
	cfg.Concurrency = 4
	cfg.ChunkSize = 3
	cfg.Timeout = 10 * time.Second
	cfg.FailOnError = failOnError
	return NewJob("test", ranges, cfg)
}

func TestProcess(t *testing.T) {
	fetcher := &fakeFetcher{missing: map[string]bool{"2/1/1": true}}
	writer := &recordingWriter{}
	bp := NewBatchProcessor(fetcher, fakeProcessor{}, writer, nil, nil)

	job := testJob(false, tile.NewTileRange(2, 2, 0, 1, 0, 2))
	if err := bp.Process(context.Background(), job); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if job.Status != JobStatusCompleted {
		t.Errorf("Expected completed, got %s", job.Status)
	}
	p := job.Progress
	if p.TotalTiles != 6 || p.ProcessedTiles != 6 || p.SuccessTiles != 5 || p.FailedTiles != 1 {
		t.Errorf("Unexpected progress %+v", p)
	}
	if p.TotalChunks != 2 {
		t.Errorf("Expected 2 chunks, got %d", p.TotalChunks)
	}
	if p.ShapesDrawn != 15 {
		t.Errorf("Expected 15 shapes drawn, got %d", p.ShapesDrawn)
	}

	want := []string{"2/0/0", "2/0/1", "2/0/2", "2/1/0", "2/1/2"}
	if strings.Join(writer.written, " ") != strings.Join(want, " ") {
		t.Errorf("Expected writes %v in order, got %v", want, writer.written)
	}
}

func TestProcess_FailOnError(t *testing.T) {
	fetcher := &fakeFetcher{missing: map[string]bool{"1/0/0": true}}
	bp := NewBatchProcessor(fetcher, fakeProcessor{}, &recordingWriter{}, nil, nil)

	job := testJob(true, tile.NewTileRange(1, 1, 0, 1, 0, 1))
	err := bp.Process(context.Background(), job)
	if err == nil {
		t.Fatal("Expected error with fail_on_error")
	}
	if code := internal.ErrorCodeOf(err); code != internal.ErrorCodeNotFound {
		t.Errorf("Expected wrapped NOT_FOUND, got %q (%v)", code, err)
	}
	if job.Status != JobStatusFailed || job.Error == nil {
		t.Errorf("Expected failed job with error, got %s", job.Status)
	}
}

func TestProcess_WriteErrorIsNotFatal(t *testing.T) {
	writer := &recordingWriter{err: errors.New("disk full")}
	bp := NewBatchProcessor(&fakeFetcher{}, fakeProcessor{}, writer, nil, nil)

	job := testJob(false, tile.NewTileRange(0, 0, 0, 0, 0, 0))
	if err := bp.Process(context.Background(), job); err != nil {
		t.Errorf("Expected write errors to be logged only, got %v", err)
	}

	job = testJob(true, tile.NewTileRange(0, 0, 0, 0, 0, 0))
	if err := bp.Process(context.Background(), job); err == nil {
		t.Error("Expected write error with fail_on_error")
	}
}

func TestProcess_Canceled(t *testing.T) {
	bp := NewBatchProcessor(&fakeFetcher{}, fakeProcessor{}, &recordingWriter{}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := testJob(false, tile.NewTileRange(1, 1, 0, 1, 0, 1))
	if err := bp.Process(ctx, job); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if job.Status != JobStatusCanceled {
		t.Errorf("Expected canceled job, got %s", job.Status)
	}
}

func TestProcess_RequestBuilder(t *testing.T) {
	var mu sync.Mutex
	var urls []string
	build := func(z, x, y int) *tile.TileRequest {
		mu.Lock()
		defer mu.Unlock()
		r := tile.NewTileRequest(z, x, y, "https://tiles.example")
		urls = append(urls, r.URL)
		return r
	}
	bp := NewBatchProcessor(&fakeFetcher{}, fakeProcessor{}, &recordingWriter{}, nil, build)
	if err := bp.Process(context.Background(), testJob(false, tile.NewTileRange(3, 3, 4, 4, 2, 2))); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://tiles.example/3/4/2.mvt" {
		t.Errorf("Unexpected request URLs %v", urls)
	}
}

func TestValidateJob(t *testing.T) {
	valid := func() *Job { return testJob(false, tile.NewTileRange(1, 2, 0, 1, 0, 1)) }

	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr bool
	}{
		{"valid", func(*Job) {}, false},
		{"no config", func(j *Job) { j.Config = nil }, true},
		{"no ranges", func(j *Job) { j.TileRanges = nil }, true},
		{"zero concurrency", func(j *Job) { j.Config.Concurrency = 0 }, true},
		{"zero chunk", func(j *Job) { j.Config.ChunkSize = 0 }, true},
		{"zero timeout", func(j *Job) { j.Config.Timeout = 0 }, true},
		{"zoom too deep", func(j *Job) { j.TileRanges[0].MaxZ = 23 }, true},
		{"inverted x", func(j *Job) { j.TileRanges[0].MinX = 2 }, true},
		{"x outside zoom", func(j *Job) { j.TileRanges[0].MaxX = 2 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := valid()
			tt.mutate(job)
			if err := ValidateJob(job); (err != nil) != tt.wantErr {
				t.Errorf("ValidateJob() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTiles(t *testing.T) {
	ranges, err := ParseTiles("3/4/2, 0/0/0,")
	if err != nil {
		t.Fatalf("ParseTiles failed: %v", err)
	}
	if len(ranges) != 2 || ranges[0].MinZ != 3 || ranges[0].MinX != 4 || ranges[0].MaxY != 2 {
		t.Errorf("Unexpected ranges %+v", ranges)
	}

	for _, bad := range []string{"3/4", "a/1/1", "1/b/1", "1/1/c", "1/2/0"} {
		if _, err := ParseTiles(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestParseBounds(t *testing.T) {
	b, err := ParseBounds("30.2, 50.3, 30.8, 50.6")
	if err != nil {
		t.Fatalf("ParseBounds failed: %v", err)
	}
	if b.Min != (orb.Point{30.2, 50.3}) || b.Max != (orb.Point{30.8, 50.6}) {
		t.Errorf("Unexpected bound %v", b)
	}
	for _, bad := range []string{"1,2,3", "a,2,3,4", "10,0,0,10"} {
		if _, err := ParseBounds(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestRangesForBounds(t *testing.T) {
	world, err := RangesForBounds(0, 2, nil)
	if err != nil {
		t.Fatalf("RangesForBounds failed: %v", err)
	}
	if len(world) != 3 || world[2].MaxX != 3 || world[2].MaxY != 3 {
		t.Errorf("Unexpected world ranges %+v", world[2])
	}

	// north-east quadrant
	b := orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{170, 80}}
	ranges, err := RangesForBounds(1, 1, &b)
	if err != nil {
		t.Fatalf("RangesForBounds failed: %v", err)
	}
	r := ranges[0]
	if r.MinX != 1 || r.MaxX != 1 || r.MinY != 0 || r.MaxY != 0 {
		t.Errorf("Expected tile 1/1/0 only, got %+v", r)
	}

	full := orb.Bound{Min: orb.Point{-180, -90}, Max: orb.Point{180, 90}}
	ranges, _ = RangesForBounds(3, 3, &full)
	if r := ranges[0]; r.MinX != 0 || r.MinY != 0 || r.MaxX != 7 || r.MaxY != 7 {
		t.Errorf("Expected clamped world range at zoom 3, got %+v", r)
	}

	if _, err := RangesForBounds(5, 2, nil); err == nil {
		t.Error("Expected error for inverted zoom range")
	}
}

func TestConsoleReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, 0)
	job := testJob(false, tile.NewTileRange(0, 0, 0, 0, 0, 0))
	job.Progress.TotalTiles = 4
	job.Progress.ProcessedTiles = 1

	r.ReportProgress(job)
	r.ReportJobComplete(job)
	r.ReportJobFailed(job, errors.New("boom"))

	out := buf.String()
	for _, want := range []string{"25.0%", "Completed", "Failed: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogReporter(zerolog.New(&buf))
	job := testJob(false, tile.NewTileRange(0, 0, 0, 0, 0, 0))

	r.ReportChunkComplete(job, &ChunkResult{SuccessCount: 2})
	r.ReportJobFailed(job, errors.New("boom"))
	out := buf.String()
	if !strings.Contains(out, `"msg":"chunk complete"`) && !strings.Contains(out, `"message":"chunk complete"`) {
		t.Errorf("Expected chunk event, got %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("Expected failure event, got %q", out)
	}
}

func TestJobProgress(t *testing.T) {
	p := NewJobProgress()
	if p.CalculateProgress() != 0 {
		t.Error("Expected 0% for empty job")
	}
	p.TotalTiles = 10
	p.ProcessedTiles = 10
	p.Throughput = 5
	if p.CalculateProgress() != 100 {
		t.Errorf("Expected 100%%, got %v", p.CalculateProgress())
	}
	if time.Until(p.EstimateCompletion()) > time.Second {
		t.Error("Expected completion estimate of now")
	}
	if !JobStatusCanceled.IsValid() || JobStatus("paused").IsValid() {
		t.Error("Unexpected status validity")
	}
}
