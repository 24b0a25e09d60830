// Package monitor implements the dispatcher's observability layer:
// Prometheus collectors adapted from the teacher's MetricsCollector, plus
// threshold-driven alerting and a derived health scalar that the teacher's
// HTTP-client scope never needed.
package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors holds every Prometheus metric the dispatcher exports.
type Collectors struct {
	requestsSubmitted prometheus.Counter
	requestsSucceeded prometheus.Counter
	requestsFailed    *prometheus.CounterVec
	requestsRetried   prometheus.Counter
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	breakerOpens      *prometheus.CounterVec

	queueSize       *prometheus.GaugeVec
	inFlight        prometheus.Gauge
	breakerOpenCount prometheus.Gauge

	requestDuration prometheus.Histogram
	queueWait       prometheus.Histogram

	registry *prometheus.Registry
}

// NewCollectors registers every dispatcher metric on a fresh registry.
func NewCollectors() *Collectors {
	registry := prometheus.NewRegistry()
	return NewCollectorsWithRegistry(registry)
}

// NewCollectorsWithRegistry registers metrics on an existing registerer,
// mirroring the teacher's own NewMetricsCollectorWithRegistry entry point.
func NewCollectorsWithRegistry(registry *prometheus.Registry) *Collectors {
	c := &Collectors{
		requestsSubmitted: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_requests_submitted_total",
			Help: "Total number of descriptors submitted to the dispatcher.",
		}),
		requestsSucceeded: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_requests_succeeded_total",
			Help: "Total number of descriptors that reached a SUCCESS outcome.",
		}),
		requestsFailed: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_requests_failed_total",
			Help: "Total number of descriptors that reached a terminal failure outcome.",
		}, []string{"outcome"}),
		requestsRetried: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_requests_retried_total",
			Help: "Total number of retry attempts scheduled.",
		}),
		cacheHits: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_cache_hits_total",
			Help: "Total number of cache hits.",
		}),
		cacheMisses: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "dispatch_cache_misses_total",
			Help: "Total number of cache misses.",
		}),
		breakerOpens: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_breaker_opens_total",
			Help: "Total number of times a circuit breaker transitioned to open.",
		}, []string{"origin"}),
		queueSize: promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_queue_size",
			Help: "Current number of pending entries per priority band.",
		}, []string{"priority"}),
		inFlight: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_in_flight",
			Help: "Current number of attempts being dispatched.",
		}),
		breakerOpenCount: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_breaker_open_count",
			Help: "Current number of origins whose circuit breaker is open.",
		}),
		requestDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_request_duration_seconds",
			Help:    "Wall time of a completed dispatch attempt.",
			Buckets: prometheus.DefBuckets,
		}),
		queueWait: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_queue_wait_seconds",
			Help:    "Time an entry spent in the queue before being dequeued.",
			Buckets: prometheus.DefBuckets,
		}),
		registry: registry,
	}
	return c
}

// Registry exposes the underlying Prometheus registry for statusapi's
// /metrics handler.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

func (c *Collectors) RecordSubmitted()             { c.requestsSubmitted.Inc() }
func (c *Collectors) RecordSucceeded()             { c.requestsSucceeded.Inc() }
func (c *Collectors) RecordFailed(outcome string)  { c.requestsFailed.WithLabelValues(outcome).Inc() }
func (c *Collectors) RecordRetried()               { c.requestsRetried.Inc() }
func (c *Collectors) RecordCacheHit()              { c.cacheHits.Inc() }
func (c *Collectors) RecordCacheMiss()             { c.cacheMisses.Inc() }
func (c *Collectors) RecordBreakerOpen(origin string) {
	c.breakerOpens.WithLabelValues(origin).Inc()
}
func (c *Collectors) SetQueueSize(priority string, size float64) {
	c.queueSize.WithLabelValues(priority).Set(size)
}
func (c *Collectors) SetInFlight(n float64)         { c.inFlight.Set(n) }
func (c *Collectors) SetBreakerOpenCount(n float64) { c.breakerOpenCount.Set(n) }
func (c *Collectors) ObserveRequestDuration(d time.Duration) {
	c.requestDuration.Observe(d.Seconds())
}
func (c *Collectors) ObserveQueueWait(d time.Duration) {
	c.queueWait.Observe(d.Seconds())
}
