package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Fake is a manually-advanced Clock for deterministic tests. Zero value is
// not usable; construct with NewFake.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
	fired    bool
}

// NewFake returns a Fake clock starting at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d, firing any waiter whose
// deadline has been reached, in deadline order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	now := f.now
	var ready []*fakeWaiter
	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.fired && !w.deadline.After(now) {
			ready = append(ready, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
	f.mu.Unlock()
	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].deadline.Before(ready[j].deadline)
	})

	for _, w := range ready {
		w.fired = true
		w.ch <- now
	}
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	w := &fakeWaiter{deadline: f.now.Add(d), ch: make(chan time.Time, 1)}
	f.waiters = append(f.waiters, w)
	f.mu.Unlock()
	return w.ch
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-f.After(d):
	case <-ctx.Done():
	}
}

func (f *Fake) NewTimer(d time.Duration) Timer {
	f.mu.Lock()
	w := &fakeWaiter{deadline: f.now.Add(d), ch: make(chan time.Time, 1)}
	f.waiters = append(f.waiters, w)
	f.mu.Unlock()
	return &fakeTimer{clock: f, waiter: w}
}

type fakeTimer struct {
	clock  *Fake
	waiter *fakeWaiter
}

func (t *fakeTimer) C() <-chan time.Time { return t.waiter.ch }

func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range c.waiters {
		if w == t.waiter {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return !w.fired
		}
	}
	return false
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	active := t.Stop()
	c := t.clock
	c.mu.Lock()
	w := &fakeWaiter{deadline: c.now.Add(d), ch: t.waiter.ch}
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()
	t.waiter = w
	return active
}
