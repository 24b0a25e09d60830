// Package dlq implements the dead-letter sink: a bounded FIFO of
// descriptors that exhausted their retries or expired, inspectable through
// the Coordinator, plus an optional durable Postgres-backed sink for
// deployments that want dead letters to survive a restart.
package dlq

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kocayinsec/network-automation-sender/model"
)

// Record is one dead-lettered descriptor.
type Record struct {
	Descriptor  model.RequestDescriptor
	Outcome     model.OutcomeKind
	Attempts    int
	LastError   string
	RecordedAt  time.Time
}

// Sink is the dead-letter contract; Memory and Postgres both implement it.
type Sink interface {
	Add(rec Record)
	List() []Record
	Len() int
	Dropped() int64
}

// Memory is a bounded ring buffer: when full, the oldest record is
// dropped and a counter increments for the drop gauge.
type Memory struct {
	mu      sync.Mutex
	records []Record
	cap     int
	head    int
	size    int
	dropped int64
}

// NewMemory creates a Memory sink bounded at capacity records.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Memory{records: make([]Record, capacity), cap: capacity}
}

// Add implements Sink.
func (m *Memory) Add(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := (m.head + m.size) % m.cap
	if m.size == m.cap {
		m.head = (m.head + 1) % m.cap
		m.dropped++
	} else {
		m.size++
	}
	m.records[idx] = rec
}

// List implements Sink, returning records oldest-first.
func (m *Memory) List() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, m.size)
	for i := 0; i < m.size; i++ {
		out[i] = m.records[(m.head+i)%m.cap]
	}
	return out
}

// Len implements Sink.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Dropped implements Sink.
func (m *Memory) Dropped() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// FindByDescriptor returns the record for a given descriptor ID, if still
// retained.
func (m *Memory) FindByDescriptor(id uuid.UUID) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < m.size; i++ {
		rec := m.records[(m.head+i)%m.cap]
		if rec.Descriptor.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

var _ Sink = (*Memory)(nil)
