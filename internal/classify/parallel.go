// internal/classify/parallel.go - Concurrent classification with per-worker accumulators
package classify

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/valpere/tile_to_png/internal/feature"
	"github.com/valpere/tile_to_png/internal/shape"
	"github.com/valpere/tile_to_png/internal/zorder"
)

// minChunk keeps tiny tiles on a single worker
const minChunk = 256

// Result is the outcome of classifying every feature of a tile
type Result struct {
	Queue   *zorder.Scheduler
	Bounds  feature.BoundingBox
	Counts  map[shape.Kind]int
	Dropped int
}

// Classified returns the number of shapes produced
func (r *Result) Classified() int {
	return r.Queue.Len()
}

type chunkResult struct {
	shapes  []*shape.Shape
	bounds  feature.BoundingBox
	dropped int
}

// ClassifyAll classifies features on up to workers goroutines. Every worker owns its
// bounding box; the boxes are merged once all workers finish, so the returned queue and
// bounds are complete before any rendering may start.
func ClassifyAll(ctx context.Context, c *Classifier, features []feature.RawFeature, workers int) (*Result, error) {
	if workers < 1 {
		workers = 1
	}

	chunk := (len(features) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	p := pool.NewWithResults[chunkResult]().
		WithContext(ctx).
		WithCancelOnError().
		WithMaxGoroutines(workers)

	for start := 0; start < len(features); start += chunk {
		end := min(start+chunk, len(features))
		part := features[start:end]
		p.Go(func(ctx context.Context) (chunkResult, error) {
			return c.classifyChunk(ctx, part)
		})
	}

	parts, err := p.Wait()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Queue:  zorder.NewWithCapacity(len(features)),
		Bounds: feature.NewBoundingBox(),
		Counts: make(map[shape.Kind]int),
	}
	for _, part := range parts {
		res.Bounds.Merge(part.bounds)
		res.Dropped += part.dropped
		for _, s := range part.shapes {
			res.Queue.PushShape(s)
			res.Counts[s.Kind]++
		}
	}
	return res, nil
}

func (c *Classifier) classifyChunk(ctx context.Context, features []feature.RawFeature) (chunkResult, error) {
	out := chunkResult{bounds: feature.NewBoundingBox()}
	for i := range features {
		if i%minChunk == 0 {
			if err := ctx.Err(); err != nil {
				return out, err
			}
		}
		s := c.Classify(&features[i], &out.bounds)
		if s == nil {
			out.dropped++
			continue
		}
		out.shapes = append(out.shapes, s)
	}
	return out, nil
}
