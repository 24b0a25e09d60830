package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutcomeKind is the terminal (or intermediate, for HTTP_ERROR before a
// retry decision) classification of one dispatch attempt or one
// descriptor's overall lifecycle.
type OutcomeKind string

const (
	Success         OutcomeKind = "SUCCESS"
	HTTPError       OutcomeKind = "HTTP_ERROR"
	Timeout         OutcomeKind = "TIMEOUT"
	TransportError  OutcomeKind = "TRANSPORT_ERROR"
	CircuitOpen     OutcomeKind = "CIRCUIT_OPEN"
	RateLimited     OutcomeKind = "RATE_LIMITED"
	Expired         OutcomeKind = "EXPIRED"
	Canceled        OutcomeKind = "CANCELED"
	QueueFull       OutcomeKind = "QUEUE_FULL"
)

// ResponseRecord is the durable result of a successful (or cache-served)
// dispatch, returned to the caller and optionally cached.
type ResponseRecord struct {
	StatusCode int
	Header     map[string][]string
	Body       []byte
	Attempts   int
	WallTime   time.Duration
	CacheHit   bool
	Outcome    OutcomeKind
}

// DispatchError is returned to callers for any non-SUCCESS terminal
// outcome. It generalizes the teacher's ClientError from a single HTTP call
// to a queued descriptor's full lifecycle.
type DispatchError struct {
	Type         OutcomeKind
	Message      string
	Cause        error
	DescriptorID uuid.UUID
	Endpoint     string
	Attempt      int
	MaxRetries   int
	Timestamp    time.Time
	Duration     time.Duration
	StatusCode   int
}

func (e *DispatchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		base = fmt.Sprintf("%s (%v)", base, e.Cause)
	}
	if e.Attempt > 0 {
		base = fmt.Sprintf("%s [attempt %d/%d]", base, e.Attempt, e.MaxRetries)
	}
	return fmt.Sprintf("[%s] %s", e.DescriptorID, base)
}

func (e *DispatchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *DispatchError) Is(target error) bool {
	if e == nil {
		return false
	}
	var other *DispatchError
	if errors.As(target, &other) {
		return e.Type == other.Type
	}
	return false
}

// IsTransient reports whether err represents a failure that might succeed
// if the same descriptor were dispatched again later. QUEUE_FULL and
// EXPIRED are never transient; CIRCUIT_OPEN is transient only in the sense
// that a later attempt, after re-enqueue and breaker recovery, may succeed
// -- the dispatcher itself never retries a CIRCUIT_OPEN outcome directly.
func IsTransient(err error) bool {
	var de *DispatchError
	if !errors.As(err, &de) {
		return false
	}
	switch de.Type {
	case TransportError, Timeout, HTTPError, RateLimited, CircuitOpen:
		return true
	default:
		return false
	}
}
