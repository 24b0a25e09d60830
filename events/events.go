// Package events implements the dispatcher's side-channel event stream:
// every stage of a descriptor's lifecycle emits an Event that fans out to
// every handler subscribed on the Bus, mirroring the teacher client's
// pluggable-Logger pattern generalized to a pub/sub bus. The Monitor does
// not subscribe; it samples metrics through its own callback.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind names one stage in a descriptor's lifecycle.
type Kind string

const (
	Submitted       Kind = "submitted"
	Dequeued        Kind = "dequeued"
	CacheHit        Kind = "cache_hit"
	BreakerRejected Kind = "breaker_rejected"
	Attempted       Kind = "attempted"
	Succeeded       Kind = "succeeded"
	Failed          Kind = "failed"
	RetryScheduled  Kind = "retry_scheduled"
	DeadLettered    Kind = "dead_lettered"
	Canceled        Kind = "canceled"
	AlertFiring     Kind = "alert_firing"
	AlertResolved   Kind = "alert_resolved"
)

// Event is one occurrence in a descriptor's lifecycle, or a monitor-level
// alert transition (DescriptorID is the zero UUID for those).
type Event struct {
	Kind         Kind
	DescriptorID uuid.UUID
	Timestamp    time.Time
	Payload      map[string]interface{}
}

// Handler receives every published Event. A panicking handler is
// recovered so it cannot take down the publisher.
type Handler func(Event)

// Bus fans out published events to every registered handler.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers h to receive every future Publish call.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish fans event out to every subscribed handler synchronously.
// Callers that need Publish to not block the calling goroutine should
// invoke it from a worker rather than the hot dispatch path directly.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		invoke(h, event)
	}
}

func invoke(h Handler, event Event) {
	defer func() { recover() }()
	h(event)
}
