package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kocayinsec/network-automation-sender/internal/singleflight"
	"github.com/kocayinsec/network-automation-sender/model"
)

// Redis is an alternate Cache backend for deployments that share a cache
// across multiple dispatcher processes, grounded on the redis client usage
// in the pack's redisrl limiter. Entries are msgpack-encoded and stored
// with a native Redis TTL, so expiry is enforced by Redis itself; Get
// ignores its now parameter.
type Redis struct {
	rdb    *redis.Client
	prefix string
	group  *singleflight.Group
}

// NewRedis wraps an existing *redis.Client. prefix namespaces every key
// this cache touches, so one Redis instance can be shared by unrelated
// callers.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, group: singleflight.New()}
}

type redisValue struct {
	Response model.ResponseRecord
	StoredAt int64
	TTLNanos int64
}

func (r *Redis) fullKey(key string) string {
	return r.prefix + key
}

// Get implements Cache. Errors talking to Redis are treated as a miss;
// callers fall back to fetching live, which is the safe default for a
// cache.
func (r *Redis) Get(key string, now time.Time) (Entry, bool) {
	ctx := context.Background()
	raw, err := r.rdb.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		return Entry{}, false
	}
	var v redisValue
	if err := msgpack.Unmarshal(raw, &v); err != nil {
		return Entry{}, false
	}
	return Entry{
		Value:    v.Response,
		StoredAt: time.Unix(0, v.StoredAt).UTC(),
		TTL:      time.Duration(v.TTLNanos),
	}, true
}

// Put implements Cache.
func (r *Redis) Put(key string, value Entry, now time.Time) {
	ctx := context.Background()
	v := redisValue{
		Response: value.Value,
		StoredAt: value.StoredAt.UnixNano(),
		TTLNanos: int64(value.TTL),
	}
	raw, err := msgpack.Marshal(&v)
	if err != nil {
		return
	}
	r.rdb.Set(ctx, r.fullKey(key), raw, value.TTL)
}

// Delete implements Cache.
func (r *Redis) Delete(key string) {
	r.rdb.Del(context.Background(), r.fullKey(key))
}

// Len implements Cache by counting keys under prefix via SCAN. This is an
// O(n) operation intended for status reporting, not the hot path.
func (r *Redis) Len() int {
	ctx := context.Background()
	var count int
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil && !errors.Is(err, redis.Nil) {
		return count
	}
	return count
}

// GetOrCompute implements Cache. Coalescing only applies within this
// process; two dispatcher processes sharing the same Redis instance can
// still each run computeFn once for the same key.
func (r *Redis) GetOrCompute(key string, now time.Time, computeFn func() (Entry, error)) (Entry, error) {
	return getOrCompute(r.group, key,
		func() (Entry, bool) { return r.Get(key, now) },
		func(e Entry) { r.Put(key, e, now) },
		computeFn)
}

var _ Cache = (*Redis)(nil)
