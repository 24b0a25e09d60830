package retry

import (
	"net/http"
	"testing"
	"time"

	"github.com/kocayinsec/network-automation-sender/model"
)

func TestEvaluateStopsAtMaxRetries(t *testing.T) {
	p := New(Config{MaxRetries: 3})
	d := p.Evaluate(model.TransportError, 0, nil, 3, 3)
	if d.Retry {
		t.Fatal("expected no retry once attempt reaches maxRetries")
	}
}

func TestEvaluateRetriesTransportError(t *testing.T) {
	p := New(Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Second})
	d := p.Evaluate(model.TransportError, 0, nil, 0, 3)
	if !d.Retry {
		t.Fatal("expected transport error to be retryable")
	}
	if d.Delay <= 0 {
		t.Fatal("expected a positive backoff delay")
	}
}

func TestEvaluateDoesNotRetryClientError(t *testing.T) {
	p := New(Config{MaxRetries: 3})
	d := p.Evaluate(model.HTTPError, http.StatusNotFound, nil, 0, 3)
	if d.Retry {
		t.Fatal("expected 4xx (non-429) to not be retried")
	}
}

func TestEvaluateRetriesServerError(t *testing.T) {
	p := New(Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Second})
	d := p.Evaluate(model.HTTPError, http.StatusServiceUnavailable, nil, 0, 3)
	if !d.Retry {
		t.Fatal("expected 503 to be retried")
	}
}

func TestEvaluateDoesNotRetryInternalServerError(t *testing.T) {
	p := New(Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Second})
	d := p.Evaluate(model.HTTPError, http.StatusInternalServerError, nil, 0, 3)
	if d.Retry {
		t.Fatal("expected 500 to not be retried, only 502/503/504")
	}
}

func TestEvaluateHonorsRetryAfterHeader(t *testing.T) {
	p := New(Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond, MaxBackoff: time.Minute})
	h := http.Header{"Retry-After": []string{"5"}}
	d := p.Evaluate(model.RateLimited, http.StatusTooManyRequests, h, 0, 3)
	if !d.Retry {
		t.Fatal("expected 429 to be retried")
	}
	if d.Delay != 5*time.Second {
		t.Fatalf("expected Retry-After to drive delay, got %v", d.Delay)
	}
}

func TestEvaluateDecorrelatedJitterStaysWithinBounds(t *testing.T) {
	p := New(Config{
		MaxRetries:        5,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2,
		Strategy:          DecorrelatedJitter,
	})
	for attempt := 0; attempt < 5; attempt++ {
		d := p.Evaluate(model.TransportError, 0, nil, attempt, 5)
		if d.Delay > 2*time.Second {
			t.Fatalf("attempt %d: delay %v exceeds MaxBackoff", attempt, d.Delay)
		}
	}
}
