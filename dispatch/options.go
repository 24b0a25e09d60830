package dispatch

import (
	"github.com/kocayinsec/network-automation-sender/cache"
	"github.com/kocayinsec/network-automation-sender/clock"
	"github.com/kocayinsec/network-automation-sender/dispatchlog"
	"github.com/kocayinsec/network-automation-sender/dlq"
	"github.com/kocayinsec/network-automation-sender/transport"
)

// Option customizes a Coordinator at construction, mirroring the teacher
// client's functional-options idiom.
type Option func(*settings)

type settings struct {
	config    Config
	clk       clock.Clock
	log       dispatchlog.Logger
	transport transport.Transport
	cacheImpl cache.Cache
	deadLtr   dlq.Sink
}

func newSettings(cfg Config) *settings {
	return &settings{
		config:    cfg,
		clk:       clock.New(),
		log:       dispatchlog.Nop{},
		transport: transport.NewHTTPTransport(nil),
		cacheImpl: cache.NewMemory(cfg.CacheMaxEntries),
		deadLtr:   dlq.NewMemory(cfg.DeadLetterCapacity),
	}
}

// WithClock overrides the Coordinator's clock, primarily for deterministic
// tests via clock.Fake.
func WithClock(clk clock.Clock) Option {
	return func(s *settings) { s.clk = clk }
}

// WithLogger overrides the structured logger every component uses.
func WithLogger(log dispatchlog.Logger) Option {
	return func(s *settings) { s.log = log }
}

// WithTransport overrides the wire-level Transport, e.g. for tests that
// substitute a scripted fake instead of a real *http.Client.
func WithTransport(t transport.Transport) Option {
	return func(s *settings) { s.transport = t }
}

// WithCache overrides the response cache backend, e.g. cache.NewRedis for
// a horizontally-shared cache.
func WithCache(c cache.Cache) Option {
	return func(s *settings) { s.cacheImpl = c }
}

// WithDeadLetterSink overrides the dead-letter sink, e.g. dlq.Postgres for
// durable storage.
func WithDeadLetterSink(sink dlq.Sink) Option {
	return func(s *settings) { s.deadLtr = sink }
}
