package reportqueue

import (
	"sync"

	"gamereporter/internal/report"
)

// Queue is a FIFO of pending reports. Any goroutine may push; only the
// worker pops.
type Queue struct {
	mu    sync.Mutex
	items []*report.GameReport
}

// Push appends r and returns the new length.
func (q *Queue) Push(r *report.GameReport) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, r)
	return len(q.items)
}

// Front returns the oldest report without removing it.
func (q *Queue) Front() (*report.GameReport, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// PopFront removes the oldest report and returns the remaining length.
func (q *Queue) PopFront() (*report.GameReport, int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, 0
	}
	head := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return head, len(q.items)
}

// Len returns the number of pending reports.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
