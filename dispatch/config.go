// Package dispatch wires together the queue, breakers, rate limiter,
// cache, retry policy, transport, dead-letter sink and monitor into the
// worker pool and lifecycle surface external callers submit against,
// generalized from the teacher client's single-request Do pipeline into a
// queued, priority-aware, many-worker pipeline.
package dispatch

import (
	"fmt"
	"time"
)

// Config parameterizes a Coordinator's default policies. Individual
// descriptors may still override retry/priority per submission.
type Config struct {
	MaxConcurrentRequests int
	MaxQueueSize          int // 0 = unbounded

	RateLimitPerSecond float64
	RateLimitBurst     int

	CacheTTL        time.Duration
	CacheMaxEntries int

	BreakerFailureThreshold int
	BreakerRecoveryTimeout  time.Duration
	BreakerSuccessThreshold int
	BreakerHalfOpenMaxCalls int

	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            float64

	RequestTimeout time.Duration
	EntryTTL       time.Duration
	DrainGrace     time.Duration

	MonitorCollectInterval time.Duration
	DeadLetterCapacity     int

	// QueuePersistPath, if set, is where Stop writes a queue.Snapshot on
	// shutdown and where New looks for one to queue.Restore from on
	// the next startup. Empty disables persistence entirely.
	QueuePersistPath string
}

// DefaultConfig returns the dispatcher's out-of-the-box configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentRequests:   50,
		MaxQueueSize:            0,
		RateLimitPerSecond:      50,
		RateLimitBurst:          50,
		CacheTTL:                5 * time.Minute,
		CacheMaxEntries:         10000,
		BreakerFailureThreshold: 5,
		BreakerRecoveryTimeout:  60 * time.Second,
		BreakerSuccessThreshold: 2,
		BreakerHalfOpenMaxCalls: 1,
		MaxRetries:              3,
		InitialBackoff:          200 * time.Millisecond,
		MaxBackoff:              60 * time.Second,
		BackoffMultiplier:       2.0,
		Jitter:                  0.25,
		RequestTimeout:          30 * time.Second,
		EntryTTL:                10 * time.Minute,
		DrainGrace:              10 * time.Second,
		MonitorCollectInterval:  10 * time.Second,
		DeadLetterCapacity:      1000,
	}
}

// Validate reports the first configuration error found, following the
// teacher client's fail-fast ValidateConfiguration convention.
func (c Config) Validate() error {
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("dispatch: MaxConcurrentRequests must be positive")
	}
	if c.MaxQueueSize < 0 {
		return fmt.Errorf("dispatch: MaxQueueSize must not be negative")
	}
	if c.RateLimitPerSecond <= 0 {
		return fmt.Errorf("dispatch: RateLimitPerSecond must be positive")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("dispatch: RateLimitBurst must be positive")
	}
	if c.BreakerFailureThreshold <= 0 {
		return fmt.Errorf("dispatch: BreakerFailureThreshold must be positive")
	}
	if c.BreakerSuccessThreshold <= 0 {
		return fmt.Errorf("dispatch: BreakerSuccessThreshold must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("dispatch: MaxRetries must not be negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("dispatch: InitialBackoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("dispatch: MaxBackoff must be >= InitialBackoff")
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		return fmt.Errorf("dispatch: Jitter must be within [0, 1]")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("dispatch: RequestTimeout must be positive")
	}
	return nil
}
