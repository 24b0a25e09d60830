package dispatch

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kocayinsec/network-automation-sender/model"
)

// pendingResult is one in-flight descriptor's completion channel, adapted
// from the teacher's DeduplicationEntry wait pattern: exactly one closer,
// any number of waiters.
type pendingResult struct {
	done   chan struct{}
	record model.ResponseRecord
	err    error
}

// resultTracker lets callers await a submitted descriptor's terminal
// outcome without polling, generalizing the teacher's single-request
// wait channel to the queue's async submit/complete lifecycle.
type resultTracker struct {
	mu      sync.Mutex
	pending map[uuid.UUID]*pendingResult
}

func newResultTracker() *resultTracker {
	return &resultTracker{pending: make(map[uuid.UUID]*pendingResult)}
}

func (t *resultTracker) register(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[id] = &pendingResult{done: make(chan struct{})}
}

func (t *resultTracker) complete(id uuid.UUID, record model.ResponseRecord, err error) {
	t.mu.Lock()
	p, ok := t.pending[id]
	t.mu.Unlock()
	if !ok {
		return
	}
	p.record = record
	p.err = err
	close(p.done)
}

// Await blocks until id's descriptor reaches a terminal outcome or ctx is
// canceled, then discards the tracked entry.
func (t *resultTracker) Await(ctx context.Context, id uuid.UUID) (model.ResponseRecord, error) {
	t.mu.Lock()
	p, ok := t.pending[id]
	t.mu.Unlock()
	if !ok {
		return model.ResponseRecord{}, ErrUnknownDescriptor
	}

	select {
	case <-p.done:
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return p.record, p.err
	case <-ctx.Done():
		return model.ResponseRecord{}, ctx.Err()
	}
}

// forget discards a tracked entry without completing it, used only when a
// submission never became visible to a caller in the first place (Submit
// itself returns the enqueue error, so nothing can be Awaiting on id yet).
// Anything that might already have an Await call blocked on id must go
// through complete instead, so that call unblocks with a terminal outcome
// rather than hanging forever.
func (t *resultTracker) forget(id uuid.UUID) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}
