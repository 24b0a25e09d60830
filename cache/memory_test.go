package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kocayinsec/network-automation-sender/model"
)

func TestMemoryGetMiss(t *testing.T) {
	m := NewMemory(0)
	if _, ok := m.Get("missing", time.Now()); ok {
		t.Error("expected miss for absent key")
	}
}

func TestMemoryPutGet(t *testing.T) {
	m := NewMemory(0)
	now := time.Now()
	entry := Entry{Value: model.ResponseRecord{StatusCode: 200}, StoredAt: now, TTL: time.Minute}
	m.Put("key", entry, now)

	got, ok := m.Get("key", now)
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Value.StatusCode != 200 {
		t.Errorf("got status %d, want 200", got.Value.StatusCode)
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(0)
	now := time.Now()
	m.Put("key", Entry{StoredAt: now, TTL: time.Second}, now)

	if _, ok := m.Get("key", now.Add(2*time.Second)); ok {
		t.Error("expected entry to have expired")
	}
	if m.Len() != 0 {
		t.Errorf("expected expired entry to be evicted on read, len=%d", m.Len())
	}
}

func TestMemoryLRUEviction(t *testing.T) {
	m := NewMemory(numShards) // 1 entry per shard
	now := time.Now()

	// Force every key into the same shard by reusing FNV collisions is
	// impractical here; instead exercise eviction through a single shard
	// directly via its public surface: fill well past capacity and check
	// total length never exceeds maxEntries*numShards.
	for i := 0; i < 500; i++ {
		key := string(rune('a' + i%26))
		m.Put(key, Entry{StoredAt: now, TTL: time.Hour}, now)
	}
	if m.Len() > numShards {
		t.Errorf("expected eviction to bound size near %d, got %d", numShards, m.Len())
	}
}

func TestMemoryGetOrComputeStoresOnMiss(t *testing.T) {
	m := NewMemory(0)
	now := time.Now()
	var calls int64

	got, err := m.GetOrCompute("key", now, func() (Entry, error) {
		atomic.AddInt64(&calls, 1)
		return Entry{Value: model.ResponseRecord{StatusCode: 200}, StoredAt: now, TTL: time.Minute}, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if got.Value.StatusCode != 200 {
		t.Errorf("got status %d, want 200", got.Value.StatusCode)
	}
	if calls != 1 {
		t.Fatalf("computeFn called %d times, want 1", calls)
	}

	got2, err := m.GetOrCompute("key", now, func() (Entry, error) {
		atomic.AddInt64(&calls, 1)
		return Entry{}, nil
	})
	if err != nil {
		t.Fatalf("second GetOrCompute: %v", err)
	}
	if got2.Value.StatusCode != 200 {
		t.Errorf("expected cached value on second call, got status %d", got2.Value.StatusCode)
	}
	if calls != 1 {
		t.Fatalf("computeFn called %d times after cache hit, want still 1", calls)
	}
}

func TestMemoryGetOrComputeCoalescesConcurrentMisses(t *testing.T) {
	m := NewMemory(0)
	now := time.Now()
	var calls int64
	start := make(chan struct{})

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := m.GetOrCompute("shared", now, func() (Entry, error) {
				atomic.AddInt64(&calls, 1)
				time.Sleep(20 * time.Millisecond)
				return Entry{Value: model.ResponseRecord{StatusCode: 200}, StoredAt: now, TTL: time.Minute}, nil
			})
			if err != nil {
				t.Errorf("GetOrCompute: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if calls != 1 {
		t.Errorf("computeFn called %d times for %d concurrent misses, want 1", calls, n)
	}
}

func TestMemoryGetOrComputePropagatesComputeError(t *testing.T) {
	m := NewMemory(0)
	now := time.Now()
	wantErr := errors.New("boom")

	_, err := m.GetOrCompute("key", now, func() (Entry, error) {
		return Entry{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrCompute error = %v, want %v", err, wantErr)
	}
	if m.Len() != 0 {
		t.Errorf("expected nothing stored after a failed compute, len=%d", m.Len())
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory(0)
	now := time.Now()
	m.Put("key", Entry{StoredAt: now, TTL: time.Hour}, now)
	m.Delete("key")
	if _, ok := m.Get("key", now); ok {
		t.Error("expected key to be gone after Delete")
	}
}
