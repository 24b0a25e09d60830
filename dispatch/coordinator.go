package dispatch

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kocayinsec/network-automation-sender/breaker"
	"github.com/kocayinsec/network-automation-sender/cache"
	"github.com/kocayinsec/network-automation-sender/clock"
	"github.com/kocayinsec/network-automation-sender/dispatchlog"
	"github.com/kocayinsec/network-automation-sender/dlq"
	"github.com/kocayinsec/network-automation-sender/events"
	"github.com/kocayinsec/network-automation-sender/internal/singleflight"
	"github.com/kocayinsec/network-automation-sender/model"
	"github.com/kocayinsec/network-automation-sender/monitor"
	"github.com/kocayinsec/network-automation-sender/queue"
	"github.com/kocayinsec/network-automation-sender/ratelimit"
	"github.com/kocayinsec/network-automation-sender/retry"
	"github.com/kocayinsec/network-automation-sender/transport"
)

// ErrUnknownDescriptor is returned by Await for an id that was never
// submitted or whose result has already been consumed.
var ErrUnknownDescriptor = errors.New("dispatch: unknown descriptor id")

// ErrNotQueued is returned by Cancel when the descriptor has already left
// the queue (dispatched, completed, or dead-lettered).
var ErrNotQueued = errors.New("dispatch: descriptor not queued")

// Stats is a point-in-time snapshot of the Coordinator's health,
// surfacing more than spec.md's bare status() by pulling in per-origin
// breaker states and queue depths the way the original orchestrator's
// status endpoint did.
type Stats struct {
	QueueSize      int
	QueueDepths    [model.NumBands]int
	InFlight       int
	Workers        int
	BreakerStates  map[string]breaker.Stats
	CacheSize      int
	DeadLettered   int
	Health         model.Health
}

// Coordinator owns lifecycle (start/stop) and the external submission
// surface: it wires the queue, breaker registry, rate limiter, cache,
// retry policy, transport, dead-letter sink, event bus, and monitor
// together the way the teacher's Client wired its own reliability layers
// around one http.Client, generalized to many concurrent workers pulling
// from a shared queue instead of one call stack per request.
type Coordinator struct {
	cfg Config
	clk clock.Clock
	log dispatchlog.Logger

	queue      *queue.PriorityQueue
	breakers   *breaker.Registry
	limiter    *ratelimit.TokenBucket
	cacheImpl  cache.Cache
	sendGroup  *singleflight.Group
	retryer    *retry.Policy
	trans      transport.Transport
	deadLetter dlq.Sink
	bus        *events.Bus
	mon        *monitor.Monitor
	collectors *monitor.Collectors
	results    *resultTracker

	mu       sync.Mutex
	inFlight int

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New builds a Coordinator from cfg and options, but does not start its
// workers -- call Start for that.
func New(cfg Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := newSettings(cfg)
	for _, opt := range opts {
		opt(s)
	}

	collectors := monitor.NewCollectors()
	q := queue.New(s.clk, cfg.MaxQueueSize)
	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		RecoveryTimeout:  cfg.BreakerRecoveryTimeout,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		HalfOpenMaxCalls: cfg.BreakerHalfOpenMaxCalls,
	}, s.clk)

	c := &Coordinator{
		cfg:        cfg,
		clk:        s.clk,
		log:        s.log,
		queue:      q,
		breakers:   breakers,
		limiter:    ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		cacheImpl:  s.cacheImpl,
		sendGroup:  singleflight.New(),
		retryer: retry.New(retry.Config{
			MaxRetries:        cfg.MaxRetries,
			InitialBackoff:    cfg.InitialBackoff,
			MaxBackoff:        cfg.MaxBackoff,
			BackoffMultiplier: cfg.BackoffMultiplier,
			Jitter:            cfg.Jitter,
		}),
		trans:      s.transport,
		deadLetter: s.deadLtr,
		bus:        events.New(),
		collectors: collectors,
		results:    newResultTracker(),
	}
	c.mon = monitor.New(s.clk, s.log, c.sampleMetric, cfg.MonitorCollectInterval)
	c.mon.OnTick(c.publishGaugeMetrics)
	c.mon.AddSink(c.publishAlertEvent)
	c.restoreQueue()
	return c, nil
}

// publishAlertEvent bridges the Monitor's own Sink mechanism onto the
// Coordinator's event bus, so a caller subscribed only to Bus() still sees
// alert transitions rather than needing a separate Monitor().AddSink call.
func (c *Coordinator) publishAlertEvent(alert model.Alert) {
	kind := events.AlertFiring
	if alert.Status == model.AlertResolved {
		kind = events.AlertResolved
	}
	c.bus.Publish(events.Event{
		Kind:      kind,
		Timestamp: alert.Timestamp,
		Payload: map[string]interface{}{
			"alert_id":  alert.ID,
			"severity":  alert.Severity,
			"metric":    alert.Metric,
			"observed":  alert.Observed,
			"threshold": alert.Threshold,
		},
	})
}

// restoreQueue loads a prior queue.Snapshot from cfg.QueuePersistPath, if
// configured and present. A missing file is not an error (first run); a
// corrupt one is renamed aside with a ".corrupt-<unixnano>" suffix and
// logged at Warn, and the queue starts empty, since queue.Restore leaves
// the queue untouched on decode failure.
func (c *Coordinator) restoreQueue() {
	if c.cfg.QueuePersistPath == "" {
		return
	}
	data, err := os.ReadFile(c.cfg.QueuePersistPath)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Error("failed to read queue snapshot", "path", c.cfg.QueuePersistPath, "error", err)
		}
		return
	}
	if err := c.queue.Restore(data); err != nil {
		aside := c.cfg.QueuePersistPath + ".corrupt-" + strconv.FormatInt(c.clk.Now().UnixNano(), 10)
		if rerr := os.Rename(c.cfg.QueuePersistPath, aside); rerr != nil {
			c.log.Error("failed to rename corrupt queue snapshot", "path", c.cfg.QueuePersistPath, "error", rerr)
			return
		}
		c.log.Warn("corrupt queue snapshot renamed aside; starting with an empty queue", "path", c.cfg.QueuePersistPath, "renamed_to", aside, "error", err)
	}
}

// persistQueue writes a queue.Snapshot to cfg.QueuePersistPath, if
// configured, so a future restoreQueue can pick it back up.
func (c *Coordinator) persistQueue() {
	if c.cfg.QueuePersistPath == "" {
		return
	}
	data, err := c.queue.Snapshot()
	if err != nil {
		c.log.Error("failed to snapshot queue", "path", c.cfg.QueuePersistPath, "error", err)
		return
	}
	if err := os.WriteFile(c.cfg.QueuePersistPath, data, 0o644); err != nil {
		c.log.Error("failed to write queue snapshot", "path", c.cfg.QueuePersistPath, "error", err)
	}
}

// publishGaugeMetrics refreshes the Prometheus gauges that reflect
// point-in-time state rather than a running total, on the same cadence as
// threshold evaluation.
func (c *Coordinator) publishGaugeMetrics() {
	depths := c.queue.Depths()
	for p := 0; p < model.NumBands; p++ {
		c.collectors.SetQueueSize(model.Priority(p).String(), float64(depths[p]))
	}

	c.mu.Lock()
	inFlight := c.inFlight
	c.mu.Unlock()
	c.collectors.SetInFlight(float64(inFlight))

	openCount := 0
	for _, s := range c.breakers.Snapshot() {
		if s.State == breaker.Open {
			openCount++
		}
	}
	c.collectors.SetBreakerOpenCount(float64(openCount))
}

// Bus exposes the event stream for external sinks.
func (c *Coordinator) Bus() *events.Bus { return c.bus }

// Monitor exposes the alerting/health engine so callers can register
// thresholds and sinks before Start.
func (c *Coordinator) Monitor() *monitor.Monitor { return c.mon }

// Collectors exposes the Prometheus registry for statusapi's /metrics
// handler.
func (c *Coordinator) Collectors() *monitor.Collectors { return c.collectors }

// Start launches the worker pool and the monitor sampling loop.
func (c *Coordinator) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	group, gctx := errgroup.WithContext(ctx)
	c.group = group

	for i := 0; i < c.cfg.MaxConcurrentRequests; i++ {
		group.Go(func() error {
			c.workerLoop(gctx)
			return nil
		})
	}
	c.mon.Start(ctx)
}

// Stop signals the queue to drain, waits up to grace for in-flight
// attempts to finish, then cancels remaining work and, if
// cfg.QueuePersistPath is set, snapshots whatever is left in the queue so
// the next New can restore it.
func (c *Coordinator) Stop(grace time.Duration) {
	c.queue.Close()

	done := make(chan struct{})
	go func() {
		c.group.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		if c.cancel != nil {
			c.cancel()
		}
		<-done
	}
	c.mon.Stop()
	c.persistQueue()
}

// Submit enqueues descriptor at the given priority, returning its
// system-assigned id immediately without waiting for dispatch.
func (c *Coordinator) Submit(descriptor model.RequestDescriptor, priority model.Priority) (uuid.UUID, error) {
	descriptor.ID = model.NewID()
	descriptor.Priority = priority
	if descriptor.SubmittedAt.IsZero() {
		descriptor.SubmittedAt = c.clk.Now()
	}

	entry := &model.QueueEntry{
		Descriptor:     descriptor,
		Attempt:        0,
		NextEligibleAt: c.clk.Now(),
		ExpiresAt:      c.deadline(descriptor),
	}

	c.results.register(descriptor.ID)
	if err := c.queue.Enqueue(entry); err != nil {
		c.results.forget(descriptor.ID)
		return uuid.Nil, err
	}
	c.collectors.RecordSubmitted()
	c.bus.Publish(events.Event{Kind: events.Submitted, DescriptorID: descriptor.ID, Timestamp: c.clk.Now()})
	return descriptor.ID, nil
}

func (c *Coordinator) deadline(descriptor model.RequestDescriptor) time.Time {
	return c.clk.Now().Add(c.cfg.EntryTTL)
}

// SubmitBatch submits every descriptor at the given priority, returning
// their ids in the same order. A single failure aborts the remaining
// submissions but does not roll back ones already enqueued.
func (c *Coordinator) SubmitBatch(descriptors []model.RequestDescriptor, priority model.Priority) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(descriptors))
	for _, d := range descriptors {
		id, err := c.Submit(d, priority)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Await blocks until id's descriptor reaches a terminal outcome.
func (c *Coordinator) Await(ctx context.Context, id uuid.UUID) (model.ResponseRecord, error) {
	return c.results.Await(ctx, id)
}

// Cancel removes id from the queue if it has not yet been dispatched,
// returning true. If the descriptor is already in-flight or completed, it
// returns false; in-flight cancellation is best-effort via the attempt's
// own timeout, matching spec's stated contract.
func (c *Coordinator) Cancel(id uuid.UUID) bool {
	return c.cancelQueued(id) == nil
}

// cancelQueued is Cancel's error-returning implementation: ErrNotQueued
// distinguishes "already dispatched or completed" from any other failure
// mode a future caller might want to branch on.
func (c *Coordinator) cancelQueued(id uuid.UUID) error {
	if !c.queue.Remove(id) {
		return ErrNotQueued
	}

	now := c.clk.Now()
	c.results.complete(id, model.ResponseRecord{Outcome: model.Canceled}, &model.DispatchError{
		Type:         model.Canceled,
		Message:      "canceled before dispatch",
		DescriptorID: id,
		Timestamp:    now,
	})
	c.bus.Publish(events.Event{Kind: events.Canceled, DescriptorID: id, Timestamp: now})
	return nil
}

// Status returns a snapshot of the Coordinator's current state.
func (c *Coordinator) Status() Stats {
	c.mu.Lock()
	inFlight := c.inFlight
	c.mu.Unlock()

	return Stats{
		QueueSize:     c.queue.Size(),
		QueueDepths:   c.queue.Depths(),
		InFlight:      inFlight,
		Workers:       c.cfg.MaxConcurrentRequests,
		BreakerStates: c.breakers.Snapshot(),
		CacheSize:     c.cacheImpl.Len(),
		DeadLettered:  c.deadLetter.Len(),
		Health:        c.mon.Health(),
	}
}

func (c *Coordinator) sampleMetric(metric string) (float64, bool) {
	switch metric {
	case "queue.size":
		return float64(c.queue.Size()), true
	case "inflight":
		c.mu.Lock()
		defer c.mu.Unlock()
		return float64(c.inFlight), true
	case "cache.size":
		return float64(c.cacheImpl.Len()), true
	case "dead_letters":
		return float64(c.deadLetter.Len()), true
	case "breaker.open_count":
		count := 0
		for _, s := range c.breakers.Snapshot() {
			if s.State == breaker.Open {
				count++
			}
		}
		return float64(count), true
	default:
		return 0, false
	}
}
