package application

import (
	"container/heap"
	"time"

	"github.com/roster-cli/roster/internal/domain"
)

// delayQueue is the time-ordered min-heap shared by throttled actions.
// Items due at the same instant keep insertion order via a monotonic
// sequence number, which is what preserves per-peer request ordering.
type queueItem struct {
	at    time.Time
	seq   uint64
	req   domain.ActionRequest
	batch *Batch
}

type queueHeap []*queueItem

func (h queueHeap) Len() int { return len(h) }

func (h queueHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}

func (h queueHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *queueHeap) Push(x any) { *h = append(*h, x.(*queueItem)) }

func (h *queueHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

type delayQueue struct {
	items queueHeap
	seq   uint64
}

func (q *delayQueue) push(at time.Time, req domain.ActionRequest, batch *Batch) {
	q.seq++
	heap.Push(&q.items, &queueItem{at: at, seq: q.seq, req: req, batch: batch})
}

func (q *delayQueue) nextAt() (time.Time, bool) {
	if len(q.items) == 0 {
		return time.Time{}, false
	}

	return q.items[0].at, true
}

// popDue removes and returns every item due at or before now, in schedule
// order.
func (q *delayQueue) popDue(now time.Time) []*queueItem {
	var due []*queueItem
	for len(q.items) > 0 && !q.items[0].at.After(now) {
		due = append(due, heap.Pop(&q.items).(*queueItem))
	}

	return due
}

func (q *delayQueue) len() int {
	return len(q.items)
}
