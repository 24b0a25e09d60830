package cache

import (
	"container/list"
	"hash/fnv"
	"sync"
	"time"

	"github.com/kocayinsec/network-automation-sender/internal/singleflight"
)

const numShards = 16

// Memory is a sharded, LRU-bounded in-memory Cache, adapted from the
// teacher client's InMemoryCache: 16 FNV-hashed shards each guarded by
// their own mutex, extended here with a per-shard intrusive doubly linked
// list for max-entries eviction, which the teacher's cache does not need
// since it has no size cap.
type Memory struct {
	shards     []*memShard
	maxEntries int // per-shard cap; 0 means unbounded
	group      *singleflight.Group
}

type memShard struct {
	mu    sync.Mutex
	store map[string]*list.Element
	order *list.List // front = most recently used
}

type memRecord struct {
	key   string
	entry Entry
}

// NewMemory creates a Memory cache. maxEntries (0 means unbounded) is
// split evenly into a per-shard cap of maxEntries/numShards, but at least
// 1, so the total across shards is maxEntries rounded down to a multiple
// of numShards, or numShards when maxEntries is smaller than that.
func NewMemory(maxEntries int) *Memory {
	shards := make([]*memShard, numShards)
	for i := range shards {
		shards[i] = &memShard{
			store: make(map[string]*list.Element),
			order: list.New(),
		}
	}
	perShard := 0
	if maxEntries > 0 {
		perShard = maxEntries / numShards
		if perShard < 1 {
			perShard = 1
		}
	}
	return &Memory{shards: shards, maxEntries: perShard, group: singleflight.New()}
}

func (m *Memory) shardFor(key string) *memShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%uint32(numShards)]
}

// Get implements Cache.
func (m *Memory) Get(key string, now time.Time) (Entry, bool) {
	shard := m.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	el, ok := shard.store[key]
	if !ok {
		return Entry{}, false
	}
	rec := el.Value.(*memRecord)
	if rec.entry.Expired(now) {
		shard.order.Remove(el)
		delete(shard.store, key)
		return Entry{}, false
	}
	shard.order.MoveToFront(el)
	return rec.entry, true
}

// Put implements Cache.
func (m *Memory) Put(key string, value Entry, now time.Time) {
	shard := m.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if el, ok := shard.store[key]; ok {
		el.Value.(*memRecord).entry = value
		shard.order.MoveToFront(el)
		return
	}

	el := shard.order.PushFront(&memRecord{key: key, entry: value})
	shard.store[key] = el

	if m.maxEntries > 0 {
		for len(shard.store) > m.maxEntries {
			oldest := shard.order.Back()
			if oldest == nil {
				break
			}
			shard.order.Remove(oldest)
			delete(shard.store, oldest.Value.(*memRecord).key)
		}
	}
}

// Delete implements Cache.
func (m *Memory) Delete(key string) {
	shard := m.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if el, ok := shard.store[key]; ok {
		shard.order.Remove(el)
		delete(shard.store, key)
	}
}

// Len implements Cache.
func (m *Memory) Len() int {
	total := 0
	for _, shard := range m.shards {
		shard.mu.Lock()
		total += len(shard.store)
		shard.mu.Unlock()
	}
	return total
}

// GetOrCompute implements Cache.
func (m *Memory) GetOrCompute(key string, now time.Time, computeFn func() (Entry, error)) (Entry, error) {
	return getOrCompute(m.group, key,
		func() (Entry, bool) { return m.Get(key, now) },
		func(e Entry) { m.Put(key, e, now) },
		computeFn)
}

var _ Cache = (*Memory)(nil)
