package breaker

import (
	"sync/atomic"
	"time"

	"github.com/kocayinsec/network-automation-sender/clock"
)

// Config parameterizes a single Breaker.
type Config struct {
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	SuccessThreshold  int
	HalfOpenMaxCalls  int // max concurrent in-flight calls admitted while half-open
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout == 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 2
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = 1
	}
	return c
}

// Breaker is a single origin's circuit breaker: closed admits everything,
// open rejects everything until the recovery timeout elapses, half_open
// admits a bounded number of trial calls to decide whether to close or
// reopen. All hot-path state lives in atomics so Allow/RecordSuccess/
// RecordFailure never block each other.
type Breaker struct {
	cfg Config
	clk clock.Clock

	state       int64
	failures    int64
	successes   int64
	lastFailure int64 // UnixNano
	halfOpenInFlight int64
}

// New creates a Breaker in the closed state.
func New(cfg Config, clk clock.Clock) *Breaker {
	if clk == nil {
		clk = clock.New()
	}
	return &Breaker{cfg: cfg.withDefaults(), clk: clk, state: int64(Closed)}
}

// State reports the breaker's current state without side effects.
func (b *Breaker) State() State {
	return State(atomic.LoadInt64(&b.state))
}

// Allow reports whether a call may proceed, transitioning open->half_open
// once the recovery timeout has elapsed and admitting at most
// HalfOpenMaxCalls concurrent trial calls while half-open. Every call that
// returns true must be paired with exactly one RecordSuccess or
// RecordFailure; half-open callers that are rejected here must not call
// either.
func (b *Breaker) Allow() bool {
	switch State(atomic.LoadInt64(&b.state)) {
	case Closed:
		return true
	case Open:
		now := b.clk.Now().UnixNano()
		lastFail := atomic.LoadInt64(&b.lastFailure)
		if now-lastFail < int64(b.cfg.RecoveryTimeout) {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.state, int64(Open), int64(HalfOpen)) {
			atomic.StoreInt64(&b.successes, 0)
			atomic.StoreInt64(&b.halfOpenInFlight, 0)
		}
		return b.admitHalfOpen()
	case HalfOpen:
		return b.admitHalfOpen()
	default:
		return false
	}
}

func (b *Breaker) admitHalfOpen() bool {
	for {
		cur := atomic.LoadInt64(&b.halfOpenInFlight)
		if cur >= int64(b.cfg.HalfOpenMaxCalls) {
			return false
		}
		if atomic.CompareAndSwapInt64(&b.halfOpenInFlight, cur, cur+1) {
			return true
		}
	}
}

// RecordFailure reports a failed call. Must only be called after a
// matching Allow returned true.
func (b *Breaker) RecordFailure() {
	b.recordFailureAt(b.clk.Now())
}

func (b *Breaker) recordFailureAt(now time.Time) {
	atomic.StoreInt64(&b.lastFailure, now.UnixNano())

	switch State(atomic.LoadInt64(&b.state)) {
	case Closed:
		if atomic.AddInt64(&b.failures, 1) >= int64(b.cfg.FailureThreshold) {
			atomic.CompareAndSwapInt64(&b.state, int64(Closed), int64(Open))
		}
	case HalfOpen:
		atomic.AddInt64(&b.halfOpenInFlight, -1)
		if atomic.CompareAndSwapInt64(&b.state, int64(HalfOpen), int64(Open)) {
			atomic.StoreInt64(&b.successes, 0)
			atomic.StoreInt64(&b.failures, 0)
		}
	case Open:
		atomic.AddInt64(&b.failures, 1)
	}
}

// RecordSuccess reports a successful call. Must only be called after a
// matching Allow returned true.
func (b *Breaker) RecordSuccess() {
	switch State(atomic.LoadInt64(&b.state)) {
	case HalfOpen:
		atomic.AddInt64(&b.halfOpenInFlight, -1)
		if atomic.AddInt64(&b.successes, 1) >= int64(b.cfg.SuccessThreshold) {
			if atomic.CompareAndSwapInt64(&b.state, int64(HalfOpen), int64(Closed)) {
				atomic.StoreInt64(&b.failures, 0)
				atomic.StoreInt64(&b.successes, 0)
			}
		}
	case Closed:
		atomic.StoreInt64(&b.failures, 0)
	}
}

// Stats is a point-in-time, allocation-light snapshot for status
// reporting and metrics export.
type Stats struct {
	State     State
	Failures  int64
	Successes int64
}

// Stats returns the breaker's current counters.
func (b *Breaker) Stats() Stats {
	return Stats{
		State:     State(atomic.LoadInt64(&b.state)),
		Failures:  atomic.LoadInt64(&b.failures),
		Successes: atomic.LoadInt64(&b.successes),
	}
}
