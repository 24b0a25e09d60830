package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kocayinsec/network-automation-sender/breaker"
	"github.com/kocayinsec/network-automation-sender/cache"
	"github.com/kocayinsec/network-automation-sender/events"
	"github.com/kocayinsec/network-automation-sender/model"
	"github.com/kocayinsec/network-automation-sender/transport"
)

// workerLoop implements one dispatcher worker: dequeue, cache lookup,
// breaker admission, rate-limit acquisition, transport send, outcome
// classification, and either completion, re-enqueue for retry, or
// dead-lettering. Exactly one worker owns a descriptor between dequeue
// and either completion or re-enqueue.
func (c *Coordinator) workerLoop(ctx context.Context) {
	for {
		entry, err := c.queue.DequeueReady(ctx)
		if err != nil {
			return
		}
		c.processEntry(ctx, entry)
	}
}

func (c *Coordinator) processEntry(ctx context.Context, entry *model.QueueEntry) {
	now := c.clk.Now()
	if entry.TimedOut(now) {
		c.completeFailure(entry, model.Expired, 0, "entry expired before dispatch")
		return
	}

	c.bus.Publish(events.Event{Kind: events.Dequeued, DescriptorID: entry.Descriptor.ID, Timestamp: now})
	if !entry.Descriptor.SubmittedAt.IsZero() {
		c.collectors.ObserveQueueWait(now.Sub(entry.Descriptor.SubmittedAt))
	}

	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	key := cache.Key(entry.Descriptor)
	if cache.Cacheable(entry.Descriptor.Method) {
		c.attemptCacheable(ctx, entry, key)
		return
	}
	c.attempt(ctx, entry, key)
}

// attemptResult is one physical dispatch attempt's outcome: breaker
// admission, rate-limit acquisition, and (if both were granted) a
// transport send plus its classification. terminal marks an outcome that
// short-circuits retry evaluation entirely (invalid origin, an open
// breaker, or cancellation while waiting on the rate limiter), matching
// the teacher's behavior of failing those immediately rather than
// treating them as a retryable attempt.
type attemptResult struct {
	record   model.ResponseRecord
	message  string
	terminal bool
}

// uncoalescedFailure carries an attemptResult that could not be cached
// through the error return of Cache.GetOrCompute, so every queue entry
// sharing a coalesced compute call - not only the one whose goroutine ran
// it - can still classify the outcome and drive its own retry-or-complete
// decision.
type uncoalescedFailure struct {
	result attemptResult
}

func (f *uncoalescedFailure) Error() string { return f.result.message }

// doAttempt runs one physical dispatch attempt for entry: breaker
// admission, rate-limit acquisition, and a transport send coalesced with
// any other in-flight request sharing key. It has no knowledge of entry's
// own retry bookkeeping, which callers own independently even when several
// entries share a single doAttempt call via Cache.GetOrCompute.
func (c *Coordinator) doAttempt(ctx context.Context, entry *model.QueueEntry, key string) attemptResult {
	origin, err := model.Origin(entry.Descriptor.URL)
	if err != nil {
		return attemptResult{record: model.ResponseRecord{Outcome: model.TransportError}, message: "invalid origin: " + err.Error(), terminal: true}
	}

	br := c.breakers.Get(origin)
	if !br.Allow() {
		return attemptResult{record: model.ResponseRecord{Outcome: model.CircuitOpen}, message: "circuit open for " + origin, terminal: true}
	}

	if err := c.limiter.Acquire(ctx, 1); err != nil {
		br.RecordFailure()
		return attemptResult{record: model.ResponseRecord{Outcome: model.Canceled}, message: "canceled while waiting for rate limiter", terminal: true}
	}

	deadline := c.clk.Now().Add(c.perAttemptTimeout(entry))
	outcome := c.sendCoalesced(ctx, key, &entry.Descriptor, deadline)
	c.collectors.ObserveRequestDuration(outcome.Elapsed)

	kind, statusCode := classify(outcome)
	if isBreakerFailure(kind, statusCode) {
		before := br.State()
		br.RecordFailure()
		if before != breaker.Open && br.State() == breaker.Open {
			c.collectors.RecordBreakerOpen(origin)
		}
	} else {
		br.RecordSuccess()
	}

	return attemptResult{
		record: model.ResponseRecord{
			StatusCode: statusCode,
			Header:     outcome.Header,
			Body:       outcome.Body,
			WallTime:   outcome.Elapsed,
			Outcome:    kind,
		},
		message: "dispatch attempt failed",
	}
}

// attempt runs a single, uncoalesced dispatch attempt for entry: used for
// methods the cache never stores (POST/PUT/DELETE), where Cache.GetOrCompute
// has nothing to coalesce through. The wire send may still coalesce with
// other in-flight requests sharing key via sendCoalesced.
func (c *Coordinator) attempt(ctx context.Context, entry *model.QueueEntry, key string) {
	result := c.doAttempt(ctx, entry, key)
	c.applyAttemptResult(entry, result)
}

// attemptCacheable runs entry's dispatch attempt through the cache's
// GetOrCompute, so that for a cache key with many identical concurrent
// entries, breaker admission, rate-limit acquisition, and the transport
// send all happen at most once: one goroutine's computeFn call produces
// the shared result, and every other entry sharing the key - including
// this one, if it lost the race - resolves from that single call instead
// of running its own attempt.
func (c *Coordinator) attemptCacheable(ctx context.Context, entry *model.QueueEntry, key string) {
	now := c.clk.Now()
	computed := false

	stored, err := c.cacheImpl.GetOrCompute(key, now, func() (cache.Entry, error) {
		computed = true
		result := c.doAttempt(ctx, entry, key)
		if !result.terminal && result.record.Outcome == model.Success && cache.ShouldCache(result.record.StatusCode) {
			return cache.Entry{Value: result.record, StoredAt: c.clk.Now(), TTL: c.cfg.CacheTTL}, nil
		}
		return cache.Entry{}, &uncoalescedFailure{result: result}
	})

	if err == nil {
		record := stored.Value
		record.CacheHit = !computed
		if computed {
			entry.Attempt++
			record.Attempts = entry.Attempt
			c.bus.Publish(events.Event{Kind: events.Attempted, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})
			c.collectors.RecordCacheMiss()
			c.collectors.RecordSucceeded()
		} else {
			c.collectors.RecordCacheHit()
			c.bus.Publish(events.Event{Kind: events.CacheHit, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})
		}
		c.results.complete(entry.Descriptor.ID, record, nil)
		c.bus.Publish(events.Event{Kind: events.Succeeded, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})
		return
	}

	var uncoalesced *uncoalescedFailure
	if !errors.As(err, &uncoalesced) {
		// GetOrCompute's own plumbing never returns any other error shape.
		return
	}
	c.applyAttemptResult(entry, uncoalesced.result)
}

// applyAttemptResult drives entry's own retry, completion, or
// dead-lettering from a (possibly shared) attemptResult. Every entry that
// shares a coalesced attemptResult calls this independently, so a shared
// physical send still produces per-entry attempt counts, events, and retry
// decisions.
func (c *Coordinator) applyAttemptResult(entry *model.QueueEntry, result attemptResult) {
	if result.terminal {
		if result.record.Outcome == model.CircuitOpen {
			c.bus.Publish(events.Event{Kind: events.BreakerRejected, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})
		}
		c.completeFailure(entry, result.record.Outcome, result.record.StatusCode, result.message)
		return
	}

	entry.Attempt++
	result.record.Attempts = entry.Attempt
	c.bus.Publish(events.Event{Kind: events.Attempted, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})

	if result.record.Outcome == model.Success {
		c.collectors.RecordSucceeded()
		c.results.complete(entry.Descriptor.ID, result.record, nil)
		c.bus.Publish(events.Event{Kind: events.Succeeded, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})
		return
	}

	maxRetries := c.retryer.MaxRetries()
	if entry.Descriptor.MaxRetries != nil {
		maxRetries = *entry.Descriptor.MaxRetries
	}

	decision := c.retryer.Evaluate(result.record.Outcome, result.record.StatusCode, http.Header(result.record.Header), entry.Attempt-1, maxRetries)
	if decision.Retry {
		entry.NextEligibleAt = c.clk.Now().Add(decision.Delay)
		c.collectors.RecordRetried()
		c.bus.Publish(events.Event{Kind: events.RetryScheduled, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})
		if err := c.queue.Enqueue(entry); err != nil {
			c.completeFailure(entry, result.record.Outcome, result.record.StatusCode, "requeue failed: "+err.Error())
		}
		return
	}

	c.completeFailure(entry, result.record.Outcome, result.record.StatusCode, result.message)
}

// sendCoalesced dedupes concurrent transport sends that share the same
// cache key so a thundering herd of identical requests only reaches the
// origin once.
func (c *Coordinator) sendCoalesced(ctx context.Context, key string, descriptor *model.RequestDescriptor, deadline time.Time) transport.Outcome {
	val, _ := c.sendGroup.Do(key, func() (interface{}, error) {
		return c.trans.Send(ctx, descriptor, deadline), nil
	})
	return val.(transport.Outcome)
}

func (c *Coordinator) perAttemptTimeout(entry *model.QueueEntry) time.Duration {
	if entry.Descriptor.Timeout > 0 {
		return entry.Descriptor.Timeout
	}
	return c.cfg.RequestTimeout
}

func (c *Coordinator) completeFailure(entry *model.QueueEntry, kind model.OutcomeKind, statusCode int, message string) {
	c.collectors.RecordFailed(string(kind))
	derr := &model.DispatchError{
		Type:         kind,
		Message:      message,
		DescriptorID: entry.Descriptor.ID,
		Endpoint:     entry.Descriptor.URL,
		Attempt:      entry.Attempt,
		StatusCode:   statusCode,
		Timestamp:    c.clk.Now(),
	}
	c.results.complete(entry.Descriptor.ID, model.ResponseRecord{Outcome: kind, StatusCode: statusCode, Attempts: entry.Attempt}, derr)
	c.bus.Publish(events.Event{Kind: events.Failed, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})
	c.deadLetterEntry(entry, kind, message)
}

func (c *Coordinator) deadLetterEntry(entry *model.QueueEntry, kind model.OutcomeKind, lastError string) {
	c.deadLetter.Add(c.toDLQRecord(entry, kind, lastError))
	c.bus.Publish(events.Event{Kind: events.DeadLettered, DescriptorID: entry.Descriptor.ID, Timestamp: c.clk.Now()})
}

// classify maps a transport.Outcome to the dispatcher's OutcomeKind
// vocabulary and, for HTTP responses, the status code driving further
// classification.
func classify(outcome transport.Outcome) (model.OutcomeKind, int) {
	if outcome.Failed() {
		if outcome.ErrorKind == transport.Timeout {
			return model.Timeout, 0
		}
		if outcome.ErrorKind == transport.Canceled {
			return model.Canceled, 0
		}
		return model.TransportError, 0
	}
	if outcome.StatusCode >= 200 && outcome.StatusCode < 400 {
		return model.Success, outcome.StatusCode
	}
	if outcome.StatusCode == http.StatusTooManyRequests {
		return model.RateLimited, outcome.StatusCode
	}
	return model.HTTPError, outcome.StatusCode
}

// isBreakerFailure reports whether an outcome counts against the origin's
// circuit breaker: transport errors, timeouts, and 5xx status codes.
// 4xx is a client-side defect, not a server fault, and does not trip the
// breaker.
func isBreakerFailure(kind model.OutcomeKind, statusCode int) bool {
	switch kind {
	case model.TransportError, model.Timeout:
		return true
	case model.HTTPError:
		return statusCode >= 500
	default:
		return false
	}
}
