package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/kocayinsec/network-automation-sender/clock"
	"github.com/kocayinsec/network-automation-sender/dispatchlog"
	"github.com/kocayinsec/network-automation-sender/model"
)

// Sample is a callback the Monitor invokes every collect_interval to read
// the current value of a threshold's named metric. The Monitor has no
// built-in notion of how gauges/histogram summaries map to a scalar, since
// that mapping is a Prometheus registry concern owned by Collectors.
type Sample func(metric string) (float64, bool)

// Sink receives every Alert transition (FIRING and RESOLVED). A panicking
// sink is recovered so it cannot take down the sampling loop.
type Sink func(model.Alert)

// TickHook runs once per collect_interval alongside threshold evaluation,
// for callers that want to refresh external state (Prometheus gauges, most
// often) on the same cadence instead of polling separately.
type TickHook func()

// Monitor samples registered Thresholds on a clock-driven interval,
// firing and resolving Alerts and deriving an overall Health scalar,
// grounded in the vocabulary spec.md defines but absent from the
// teacher's own metrics-only scope.
type Monitor struct {
	clk      clock.Clock
	log      dispatchlog.Logger
	sample   Sample
	interval time.Duration

	mu         sync.Mutex
	thresholds []Threshold
	alerts     map[string]model.Alert
	sinks      []Sink
	tickHooks  []TickHook

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Monitor. sample resolves a threshold's metric name to its
// current value; interval is the collect_interval between samples.
func New(clk clock.Clock, log dispatchlog.Logger, sample Sample, interval time.Duration) *Monitor {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = dispatchlog.Nop{}
	}
	return &Monitor{
		clk:      clk,
		log:      log,
		sample:   sample,
		interval: interval,
		alerts:   make(map[string]model.Alert),
	}
}

// RegisterThreshold adds t to the set sampled on every tick.
func (m *Monitor) RegisterThreshold(t Threshold) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = append(m.thresholds, t)
}

// AddSink registers a callback invoked on every alert transition.
func (m *Monitor) AddSink(sink Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// OnTick registers a callback invoked once per collect_interval.
func (m *Monitor) OnTick(hook TickHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickHooks = append(m.tickHooks, hook)
}

// Start begins the sampling loop; it returns immediately, running the loop
// in a background goroutine until ctx is canceled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx)
}

// Stop halts the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.clk.After(m.interval):
			m.tick()
		}
	}
}

func (m *Monitor) tick() {
	m.mu.Lock()
	thresholds := make([]Threshold, len(m.thresholds))
	copy(thresholds, m.thresholds)
	sinks := make([]Sink, len(m.sinks))
	copy(sinks, m.sinks)
	hooks := make([]TickHook, len(m.tickHooks))
	copy(hooks, m.tickHooks)
	m.mu.Unlock()

	now := m.clk.Now()
	for _, t := range thresholds {
		observed, ok := m.sample(t.Metric)
		if !ok {
			continue
		}
		m.evaluate(t, observed, now, sinks)
	}

	for _, hook := range hooks {
		m.safeInvokeHook(hook)
	}
}

func (m *Monitor) safeInvokeHook(hook TickHook) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("monitor tick hook panicked", "recover", r)
		}
	}()
	hook()
}

func (m *Monitor) evaluate(t Threshold, observed float64, now time.Time, sinks []Sink) {
	id := t.id()
	crossed := t.crossed(observed)

	m.mu.Lock()
	existing, firing := m.alerts[id]
	var toDeliver *model.Alert
	switch {
	case crossed && !firing:
		alert := model.Alert{
			ID:        id,
			Severity:  t.Severity,
			Metric:    t.Metric,
			Observed:  observed,
			Threshold: t.Value,
			Timestamp: now,
			Status:    model.AlertFiring,
		}
		m.alerts[id] = alert
		toDeliver = &alert
	case !crossed && firing:
		existing.Status = model.AlertResolved
		existing.Observed = observed
		existing.Timestamp = now
		delete(m.alerts, id)
		toDeliver = &existing
	}
	m.mu.Unlock()

	if toDeliver != nil {
		m.deliver(*toDeliver, sinks)
	}
}

func (m *Monitor) deliver(alert model.Alert, sinks []Sink) {
	for _, sink := range sinks {
		m.safeInvoke(sink, alert)
	}
}

func (m *Monitor) safeInvoke(sink Sink, alert model.Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("monitor sink panicked", "recover", r, "alert_id", alert.ID)
		}
	}()
	sink(alert)
}

// Health derives the overall health scalar from the currently firing alert
// set: any CRITICAL firing yields UNHEALTHY, any HIGH yields DEGRADED,
// otherwise HEALTHY.
func (m *Monitor) Health() model.Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	return health(m.alerts)
}

func health(alerts map[string]model.Alert) model.Health {
	degraded := false
	for _, a := range alerts {
		switch a.Severity {
		case model.SeverityCritical:
			return model.HealthUnhealthy
		case model.SeverityHigh:
			degraded = true
		}
	}
	if degraded {
		return model.HealthDegraded
	}
	return model.HealthHealthy
}

// ActiveAlerts returns a snapshot of every currently firing alert.
func (m *Monitor) ActiveAlerts() []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, a)
	}
	return out
}
