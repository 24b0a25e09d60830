// Package transport defines the wire-level boundary the dispatcher calls
// against: an interface treating the actual network call as a black box,
// plus a default implementation adapting the teacher's own use of
// *http.Client as its wire-level workhorse.
package transport

import (
	"context"
	"time"

	"github.com/kocayinsec/network-automation-sender/model"
)

// ErrorKind classifies a transport-level failure that never produced an
// HTTP response.
type ErrorKind string

const (
	Connect  ErrorKind = "CONNECT"
	TLS      ErrorKind = "TLS"
	Timeout  ErrorKind = "TIMEOUT"
	DNS      ErrorKind = "DNS"
	Protocol ErrorKind = "PROTOCOL"
	Canceled ErrorKind = "CANCELED"
	Other    ErrorKind = "OTHER"
)

// Outcome is the result of one Transport.Send call: either a completed
// HTTP response or a classified transport-level error, never both.
type Outcome struct {
	StatusCode int
	Header     map[string][]string
	Body       []byte
	Elapsed    time.Duration

	ErrorKind ErrorKind
}

// Failed reports whether the outcome represents a transport-level error
// rather than a completed HTTP response.
func (o Outcome) Failed() bool {
	return o.ErrorKind != ""
}

// Transport is the dispatcher's wire-level boundary. Implementations are
// responsible for connection pooling, redirects, and TLS; the dispatcher
// treats it as a black box and never inspects a *http.Client directly.
// Send never returns a Go error for ordinary failures -- transport-level
// problems are reported through Outcome.ErrorKind so the dispatcher's
// retry classification has one uniform path to reason about.
type Transport interface {
	Send(ctx context.Context, descriptor *model.RequestDescriptor, deadline time.Time) Outcome
}
