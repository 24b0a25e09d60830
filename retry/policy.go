// Package retry decides whether and after how long a failed dispatch
// attempt should be retried, adapted from the teacher's DefaultRetryPolicy
// and reusing its internal/backoff calculator strategies unchanged.
package retry

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kocayinsec/network-automation-sender/internal/backoff"
	"github.com/kocayinsec/network-automation-sender/model"
)

// Strategy names a backoff calculation strategy.
type Strategy int

const (
	ExponentialJitter Strategy = iota
	DecorrelatedJitter
)

// Config parameterizes a Policy.
type Config struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            float64
	Strategy          Strategy
}

func (c Config) withDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 200 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2.0
	}
	return c
}

// Policy decides retry eligibility and delay for a completed attempt.
type Policy struct {
	cfg        Config
	calculator *backoff.Calculator
}

// New builds a Policy from cfg.
func New(cfg Config) *Policy {
	cfg = cfg.withDefaults()
	var strategy backoff.Strategy = backoff.ExponentialJitterStrategy{}
	if cfg.Strategy == DecorrelatedJitter {
		strategy = backoff.DecorrelatedJitterStrategy{}
	}
	return &Policy{cfg: cfg, calculator: backoff.NewCalculator(strategy)}
}

// MaxRetries returns the policy's configured retry cap, used as the
// default when a descriptor does not override it.
func (p *Policy) MaxRetries() int {
	return p.cfg.MaxRetries
}

// Decision is the outcome of evaluating whether to retry an attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Evaluate decides whether the attempt that just completed should be
// retried given its outcome. attempt is zero-based (the number of retries
// already made before it), so a retry is allowed while attempt <
// maxRetries. maxRetries overrides the
// policy default when the originating descriptor set one explicitly.
func (p *Policy) Evaluate(outcome model.OutcomeKind, statusCode int, header http.Header, attempt int, maxRetries int) Decision {
	if attempt >= maxRetries {
		return Decision{Retry: false}
	}

	shouldRetry := false
	var delay time.Duration

	switch outcome {
	case model.TransportError, model.Timeout:
		shouldRetry = true
	case model.HTTPError:
		if statusCode == http.StatusBadGateway || statusCode == http.StatusServiceUnavailable || statusCode == http.StatusGatewayTimeout {
			shouldRetry = true
			if header != nil {
				delay = parseRetryAfter(header.Get("Retry-After"))
			}
		}
	case model.RateLimited:
		shouldRetry = true
		if header != nil {
			delay = parseRetryAfter(header.Get("Retry-After"))
		}
	case model.CircuitOpen:
		shouldRetry = true
	}

	if !shouldRetry {
		return Decision{Retry: false}
	}
	if delay == 0 {
		delay = p.calculator.Calculate(attempt, p.cfg.InitialBackoff, p.cfg.MaxBackoff, p.cfg.BackoffMultiplier, p.cfg.Jitter)
	}
	return Decision{Retry: true, Delay: delay}
}

// parseRetryAfter parses the Retry-After header, in either delay-seconds
// or HTTP-date form, capping the resulting delay at one hour.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
	}
	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > time.Hour {
			delay = time.Hour
		}
		if delay > 0 {
			return delay
		}
	}
	return 0
}
