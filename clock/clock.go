// Package clock provides an injectable time source so every timed component
// in the dispatcher (queue TTLs, breaker recovery, retry backoff, token
// refill, monitor sampling) can be driven deterministically under test
// instead of racing against the wall clock.
package clock

import (
	"context"
	"time"
)

// Clock is a source of time and timers. The standard implementation is
// System, which defers to the time package; Fake is used in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the time once d has elapsed.
	After(d time.Duration) <-chan time.Time

	// Sleep blocks the calling goroutine for d, or until ctx is done,
	// whichever comes first.
	Sleep(ctx context.Context, d time.Duration)

	// NewTimer returns a Timer that fires after d.
	NewTimer(d time.Duration) Timer
}

// Timer mirrors the subset of *time.Timer the dispatcher needs, so Fake can
// substitute its own implementation.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}
