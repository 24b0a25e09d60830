// Package queue implements the dispatcher's priority-band pending-request
// store: one min-heap per priority level ordered by (next-eligible time,
// sequence), strict priority between bands, FIFO within a band, plus
// snapshot/restore for crash-recovery persistence and expiry sweeps that
// feed the dead-letter path.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kocayinsec/network-automation-sender/clock"
	"github.com/kocayinsec/network-automation-sender/model"
)

// ErrQueueFull is returned by Enqueue when the queue is at max_size.
// Neither Enqueue nor Coordinator.Submit offers a blocking variant.
var ErrQueueFull = errors.New("queue: full")

// ErrShutdown is returned by DequeueReady once the queue has been closed
// and drained.
var ErrShutdown = errors.New("queue: shut down")

// PriorityQueue is a concurrent multi-band ordered collection of
// model.QueueEntry, safe for use by many producer and worker goroutines.
type PriorityQueue struct {
	mu      sync.Mutex
	bands   [model.NumBands]bandHeap
	size    int
	maxSize int
	seq     uint64
	closed  bool
	wake    chan struct{}
	clk     clock.Clock
}

// New creates a PriorityQueue bounded at maxSize entries (0 means
// unbounded).
func New(clk clock.Clock, maxSize int) *PriorityQueue {
	if clk == nil {
		clk = clock.New()
	}
	return &PriorityQueue{
		maxSize: maxSize,
		wake:    make(chan struct{}),
		clk:     clk,
	}
}

// Size returns the current number of pending entries.
func (q *PriorityQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// broadcastLocked wakes every goroutine currently parked in DequeueReady. Must be
// called with q.mu held.
func (q *PriorityQueue) broadcastLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// Enqueue admits entry unless the queue is at capacity, in which case it
// returns ErrQueueFull immediately. Enqueue never blocks, and
// Coordinator.Submit passes the error straight back to its caller rather
// than retrying. entry.Sequence is assigned here.
func (q *PriorityQueue) Enqueue(entry *model.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxSize > 0 && q.size >= q.maxSize {
		return ErrQueueFull
	}

	entry.Sequence = atomic.AddUint64(&q.seq, 1)
	band := &q.bands[entry.Descriptor.Priority]
	heapPush(band, entry)
	q.size++
	q.broadcastLocked()
	return nil
}

// popReadyLocked returns and removes the highest-priority ready entry, or
// nil if none is ready. Must be called with q.mu held.
func (q *PriorityQueue) popReadyLocked(now time.Time) *model.QueueEntry {
	for p := 0; p < model.NumBands; p++ {
		band := &q.bands[p]
		if band.Len() == 0 {
			continue
		}
		top := (*band)[0]
		if top.Ready(now) {
			entry := heapPop(band)
			q.size--
			return entry
		}
	}
	return nil
}

// nextWaitLocked returns how long until the earliest non-ready entry across
// all bands becomes ready, or 0 if the queue has no pending timed entries.
// Must be called with q.mu held.
func (q *PriorityQueue) nextWaitLocked(now time.Time) time.Duration {
	var best time.Duration
	found := false
	for p := 0; p < model.NumBands; p++ {
		band := &q.bands[p]
		if band.Len() == 0 {
			continue
		}
		top := (*band)[0]
		wait := top.NextEligibleAt.Sub(now)
		if wait < 0 {
			wait = 0
		}
		if !found || wait < best {
			best = wait
			found = true
		}
	}
	return best
}

// DequeueReady returns the minimum-ordered ready entry, blocking
// cooperatively until one becomes ready, a new entry arrives, or ctx is
// canceled. It returns ErrShutdown once Close has been called and the
// queue has drained.
func (q *PriorityQueue) DequeueReady(ctx context.Context) (*model.QueueEntry, error) {
	for {
		q.mu.Lock()
		now := q.clk.Now()
		if entry := q.popReadyLocked(now); entry != nil {
			q.mu.Unlock()
			return entry, nil
		}
		if q.closed && q.size == 0 {
			q.mu.Unlock()
			return nil, ErrShutdown
		}
		wake := q.wake
		wait := q.nextWaitLocked(now)
		q.mu.Unlock()

		var timerC <-chan time.Time
		if wait > 0 {
			timerC = q.clk.After(wait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		case <-timerC:
		}
	}
}

// Remove deletes the entry for id from whichever band holds it, reporting
// whether it was still queued. It returns false once the entry has already
// been popped by DequeueReady, since at that point a worker owns it and
// cancellation can no longer prevent dispatch.
func (q *PriorityQueue) Remove(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for p := 0; p < model.NumBands; p++ {
		band := &q.bands[p]
		for i, e := range *band {
			if e.Descriptor.ID == id {
				heap.Remove(band, i)
				q.size--
				return true
			}
		}
	}
	return false
}

// PurgeExpired removes and returns entries whose ExpiresAt has passed, for
// the caller to route to the dead-letter sink.
func (q *PriorityQueue) PurgeExpired(now time.Time) []*model.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	var expired []*model.QueueEntry
	for p := 0; p < model.NumBands; p++ {
		band := &q.bands[p]
		kept := (*band)[:0]
		for _, e := range *band {
			if e.TimedOut(now) {
				expired = append(expired, e)
				q.size--
			} else {
				kept = append(kept, e)
			}
		}
		*band = kept
		heapInit(band)
	}
	return expired
}

// Close signals shutdown: pending DequeueReady calls return ErrShutdown
// once the queue has drained (workers finish in-flight attempts and stop
// pulling new work, matching the Coordinator's stop(grace) contract).
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.broadcastLocked()
	q.mu.Unlock()
}

// Depths returns the current size of each priority band, keyed by
// Priority, for status reporting.
func (q *PriorityQueue) Depths() [model.NumBands]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	var d [model.NumBands]int
	for p := 0; p < model.NumBands; p++ {
		d[p] = q.bands[p].Len()
	}
	return d
}
