package application

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/roster-cli/roster/internal/domain"
)

// Batch collects the per-item outcomes of one throttled operation. Abort
// stops items not yet dispatched; an item already handed to the remote
// capability only has its outcome reported.
type Batch struct {
	ID string

	aborted atomic.Bool

	mu       sync.Mutex
	expected int
	outcomes []domain.ActionOutcome
	done     chan struct{}
}

func newBatch(expected int) *Batch {
	b := &Batch{
		ID:       uuid.NewString(),
		expected: expected,
		done:     make(chan struct{}),
	}
	if expected == 0 {
		close(b.done)
	}

	return b
}

func (b *Batch) Abort() {
	b.aborted.Store(true)
}

func (b *Batch) Aborted() bool {
	return b.aborted.Load()
}

// Size is the number of items the batch will report outcomes for.
func (b *Batch) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.expected
}

func (b *Batch) Outcomes() []domain.ActionOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.ActionOutcome, len(b.outcomes))
	copy(out, b.outcomes)
	return out
}

// Done is closed once every expected outcome has been recorded.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

func (b *Batch) Wait(ctx context.Context) ([]domain.ActionOutcome, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return b.Outcomes(), nil
	}
}

func (b *Batch) record(outcome domain.ActionOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.outcomes = append(b.outcomes, outcome)
	if len(b.outcomes) == b.expected {
		close(b.done)
	}
}
