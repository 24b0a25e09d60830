// Package model holds the data types shared across the dispatch engine:
// the request descriptor, priority enumeration, queue entry wrapper,
// response record and the outcome/error taxonomy. It has no dependency on
// any other dispatcher package so every component can depend on it without
// import cycles.
package model

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Priority is a totally ordered enumeration; lower ordinal is served first.
type Priority int

const (
	Critical Priority = iota
	High
	Normal
	Low
)

// String renders the priority the way configuration files and logs expect.
func (p Priority) String() string {
	switch p {
	case Critical:
		return "CRITICAL"
	case High:
		return "HIGH"
	case Normal:
		return "NORMAL"
	case Low:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// ParsePriority parses a priority name from a configuration boundary. It is
// the only place in the system priority strings are accepted; internally
// priority is always the Priority enumeration.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "CRITICAL":
		return Critical, true
	case "HIGH":
		return High, true
	case "NORMAL":
		return Normal, true
	case "LOW":
		return Low, true
	default:
		return 0, false
	}
}

// NumBands is the number of priority bands the queue maintains.
const NumBands = 4

// Method is the set of HTTP methods a descriptor may carry.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// ValidMethod reports whether m is one of the accepted methods.
func ValidMethod(m Method) bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodHead, MethodOptions:
		return true
	default:
		return false
	}
}

// RequestDescriptor is immutable once submitted. The core never mutates a
// descriptor after Coordinator.Submit assigns its ID and SubmittedAt.
type RequestDescriptor struct {
	ID              uuid.UUID
	Method          Method
	URL             string
	Header          http.Header
	Body            []byte
	Timeout         time.Duration
	CacheKeyOverride string
	MaxRetries      *int // nil means "use the retry policy default"
	Priority        Priority
	SubmittedAt     time.Time
	Tags            map[string]string
}

// NewID mints a fresh 128-bit opaque descriptor identifier.
func NewID() uuid.UUID {
	return uuid.New()
}

// Clone returns a deep copy safe to hand to a Transport implementation that
// might mutate headers in place.
func (d RequestDescriptor) Clone() RequestDescriptor {
	c := d
	c.Header = d.Header.Clone()
	if d.Body != nil {
		c.Body = append([]byte(nil), d.Body...)
	}
	if d.Tags != nil {
		c.Tags = make(map[string]string, len(d.Tags))
		for k, v := range d.Tags {
			c.Tags[k] = v
		}
	}
	if d.MaxRetries != nil {
		v := *d.MaxRetries
		c.MaxRetries = &v
	}
	return c
}
