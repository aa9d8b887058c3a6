// internal/zorder/scheduler.go - Paint order queue for one tile
package zorder

import (
	"container/heap"

	"github.com/valpere/tile_to_png/internal/shape"
)

// Scheduler is a min-priority queue of shapes. PopMin always returns a shape with the
// lowest queued priority; the order among equal priorities is unspecified.
// A Scheduler is not safe for concurrent use.
type Scheduler struct {
	items entries
}

type entry struct {
	shape    *shape.Shape
	priority int
}

type entries []entry

func (e entries) Len() int           { return len(e) }
func (e entries) Less(i, j int) bool { return e[i].priority < e[j].priority }
func (e entries) Swap(i, j int)      { e[i], e[j] = e[j], e[i] }
func (e *entries) Push(x any)        { *e = append(*e, x.(entry)) }
func (e *entries) Pop() any {
	old := *e
	n := len(old)
	it := old[n-1]
	old[n-1] = entry{}
	*e = old[:n-1]
	return it
}

// New creates an empty scheduler
func New() *Scheduler {
	return &Scheduler{}
}

// NewWithCapacity creates an empty scheduler with room for n shapes
func NewWithCapacity(n int) *Scheduler {
	return &Scheduler{items: make(entries, 0, n)}
}

// Push queues s with the given priority
func (q *Scheduler) Push(s *shape.Shape, priority int) {
	heap.Push(&q.items, entry{shape: s, priority: priority})
}

// PushShape queues s by its own z-index
func (q *Scheduler) PushShape(s *shape.Shape) {
	q.Push(s, s.ZIndex())
}

// PopMin removes and returns the lowest-priority shape
func (q *Scheduler) PopMin() (*shape.Shape, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	it := heap.Pop(&q.items).(entry)
	return it.shape, true
}

// PeekPriority returns the lowest queued priority without removing anything
func (q *Scheduler) PeekPriority() (int, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	return q.items[0].priority, true
}

// Len returns the number of queued shapes
func (q *Scheduler) Len() int {
	return len(q.items)
}
