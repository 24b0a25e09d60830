package model

import "time"

// QueueEntry wraps a RequestDescriptor with the scheduling metadata the
// priority queue and dispatcher need. The ordering key is
// (Descriptor.Priority, NextEligibleAt, Sequence); ties within a priority
// band are broken FIFO by Sequence.
type QueueEntry struct {
	Descriptor     RequestDescriptor
	Sequence       uint64
	Attempt        int
	NextEligibleAt time.Time
	ExpiresAt      time.Time
}

// Ready reports whether the entry may be dequeued at time now.
func (e *QueueEntry) Ready(now time.Time) bool {
	return !e.NextEligibleAt.After(now)
}

// TimedOut reports whether the entry has crossed its wall-clock expiry.
func (e *QueueEntry) TimedOut(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !e.ExpiresAt.After(now)
}
