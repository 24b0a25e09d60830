// Package cache implements the dispatcher's TTL-bounded response
// memoization layer: a sharded, LRU-bounded in-memory store adapted from
// the teacher client's InMemoryCache, plus an optional Redis-backed
// implementation for a horizontally-shared cache. Each backend also
// single-flights its own GetOrCompute, so a thundering herd of identical
// concurrent lookups against a cold key produces exactly one compute call.
package cache

import (
	"time"

	"github.com/kocayinsec/network-automation-sender/internal/singleflight"
	"github.com/kocayinsec/network-automation-sender/model"
)

// Entry is a stored cache value: a ResponseRecord plus the bookkeeping the
// store needs for TTL expiry.
type Entry struct {
	Value     model.ResponseRecord
	StoredAt  time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is stale as of now.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.StoredAt) >= e.TTL
}

// Cache is the response memoization contract every backend implements.
type Cache interface {
	// Get returns the entry for key iff it exists and has not expired as
	// of now. Reads are non-blocking.
	Get(key string, now time.Time) (Entry, bool)

	// Put inserts or overwrites key, enforcing the backend's own eviction
	// policy (LRU for the in-memory backend).
	Put(key string, value Entry, now time.Time)

	// Delete removes key if present.
	Delete(key string)

	// Len reports the number of live entries, used for the cache size
	// gauge.
	Len() int

	// GetOrCompute returns the live entry for key, calling computeFn to
	// produce it on a miss. Concurrent GetOrCompute calls for the same
	// key coalesce onto a single computeFn execution: every other
	// caller blocks on that call and receives its result rather than
	// invoking computeFn itself. A successful computeFn result is
	// stored before being returned to every waiter.
	GetOrCompute(key string, now time.Time, computeFn func() (Entry, error)) (Entry, error)
}

// getOrCompute implements the GetOrCompute coalescing behavior against a
// backend's own get/put pair and single-flight group, shared by Memory and
// Redis so both backends coalesce identically.
func getOrCompute(group *singleflight.Group, key string, get func() (Entry, bool), put func(Entry), computeFn func() (Entry, error)) (Entry, error) {
	if entry, ok := get(); ok {
		return entry, nil
	}
	val, err := group.Do(key, func() (interface{}, error) {
		if entry, ok := get(); ok {
			return entry, nil
		}
		entry, err := computeFn()
		if err != nil {
			return Entry{}, err
		}
		put(entry)
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return val.(Entry), nil
}

// Key derives the default cache key for a descriptor: method|url|body,
// unless the descriptor supplies an override.
func Key(d model.RequestDescriptor) string {
	if d.CacheKeyOverride != "" {
		return d.CacheKeyOverride
	}
	return string(d.Method) + "|" + d.URL + "|" + canonicalBody(d.Body)
}

func canonicalBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return string(body)
}

// ShouldCache reports whether a status code is eligible for caching under
// the default policy: 2xx only. Callers may override with a custom policy
// function of the same shape.
func ShouldCache(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
