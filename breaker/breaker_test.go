package breaker

import (
	"testing"
	"time"

	"github.com/kocayinsec/network-automation-sender/clock"
)

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := New(Config{FailureThreshold: 3, RecoveryTimeout: time.Second}, fc)

	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("expected closed breaker to allow call %d", i)
		}
		b.RecordFailure()
	}

	if b.State() != Open {
		t.Fatalf("expected Open after %d failures, got %v", 3, b.State())
	}
	if b.Allow() {
		t.Fatal("expected open breaker to reject calls")
	}
}

func TestBreakerHalfOpenAfterRecoveryTimeout(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: 10 * time.Second, SuccessThreshold: 1}, fc)

	b.Allow()
	b.RecordFailure()
	if b.State() != Open {
		t.Fatal("expected Open after first failure")
	}

	fc.Advance(10 * time.Second)
	if !b.Allow() {
		t.Fatal("expected half-open trial call to be admitted after recovery timeout")
	}
	if b.State() != HalfOpen {
		t.Fatalf("expected HalfOpen, got %v", b.State())
	}
}

func TestBreakerHalfOpenCapsInFlightCalls(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: time.Second, HalfOpenMaxCalls: 2}, fc)

	b.Allow()
	b.RecordFailure()
	fc.Advance(time.Second)

	admitted := 0
	for i := 0; i < 5; i++ {
		if b.Allow() {
			admitted++
		}
	}
	if admitted != 2 {
		t.Fatalf("expected exactly HalfOpenMaxCalls=2 admitted, got %d", admitted)
	}
}

func TestBreakerClosesAfterSuccessThreshold(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: time.Second, SuccessThreshold: 2}, fc)

	b.Allow()
	b.RecordFailure()
	fc.Advance(time.Second)

	b.Allow()
	b.RecordSuccess()
	if b.State() != HalfOpen {
		t.Fatal("expected still half-open after one success below threshold")
	}

	b.Allow()
	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatalf("expected Closed after success threshold met, got %v", b.State())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := New(Config{FailureThreshold: 1, RecoveryTimeout: time.Second}, fc)

	b.Allow()
	b.RecordFailure()
	fc.Advance(time.Second)

	b.Allow()
	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("expected re-Open after half-open failure, got %v", b.State())
	}
}

func TestRegistryPerOriginIsolation(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	r := NewRegistry(Config{FailureThreshold: 1, RecoveryTimeout: time.Second}, fc)

	a := r.Get("https://a.example.com:443")
	b := r.Get("https://b.example.com:443")
	if a == b {
		t.Fatal("expected distinct breakers per origin")
	}

	a.Allow()
	a.RecordFailure()
	if a.State() != Open {
		t.Fatal("expected origin a to be open")
	}
	if b.State() != Closed {
		t.Fatal("expected origin b to remain unaffected")
	}
	if r.Get("https://a.example.com:443") != a {
		t.Fatal("expected repeated Get to return the same breaker instance")
	}
}
