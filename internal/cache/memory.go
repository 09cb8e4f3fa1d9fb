package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter"

	"github.com/sigtrap/shaderstrip/internal/observability"
)

// MemoryCache holds live values (build sessions) in memory with a hard
// capacity and a TTL, on top of otter's S3-FIFO cache.
type MemoryCache[V any] struct {
	store otter.Cache[string, V]
}

// NewMemoryCache builds the cache.
//
// onEvict, if set, is called for every value the cache drops on its own: by
// capacity, by expiry, or because Set overwrote it under the same key. It is
// not called for explicit deletes, since the caller already holds the value
// and decides what happens to it. Only capacity and expiry count as evictions
// in the metrics.
func NewMemoryCache[V any](capacity int, ttl time.Duration, onEvict func(key string, value V)) (*MemoryCache[V], error) {
	builder, err := otter.NewBuilder[string, V](capacity)
	if err != nil {
		return nil, err
	}

	builder = builder.CollectStats().DeletionListener(func(key string, value V, cause otter.DeletionCause) {
		switch cause {
		case otter.Size, otter.Expired:
			observability.SessionCacheEvictions.Inc()
		case otter.Replaced:
		default:
			return
		}
		if onEvict != nil {
			onEvict(key, value)
		}
	})

	store, err := builder.WithTTL(ttl).Build()
	if err != nil {
		return nil, err
	}

	return &MemoryCache[V]{store: store}, nil
}

// Get looks a value up and counts the hit or miss.
func (c *MemoryCache[V]) Get(key string) (V, bool) {
	v, ok := c.store.Get(key)
	if ok {
		observability.SessionCacheHits.Inc()
	} else {
		observability.SessionCacheMisses.Inc()
	}
	return v, ok
}

// Set stores a value, overwriting any live value under key. It reports false
// if otter rejected the write.
func (c *MemoryCache[V]) Set(key string, value V) bool {
	return c.store.Set(key, value)
}

// SetIfAbsent stores a value only when key holds no live value. The check and
// the write are one atomic step, so of several concurrent callers claiming the
// same key exactly one gets true.
func (c *MemoryCache[V]) SetIfAbsent(key string, value V) bool {
	return c.store.SetIfAbsent(key, value)
}

// Del removes a value without triggering the eviction callback.
func (c *MemoryCache[V]) Del(key string) {
	c.store.Delete(key)
}

// Len returns the number of live entries.
func (c *MemoryCache[V]) Len() int {
	return c.store.Size()
}

// RunMetricsCollector samples the item count into Prometheus until ctx is cancelled.
func (c *MemoryCache[V]) RunMetricsCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observability.SessionCacheItems.Set(float64(c.store.Size()))
		}
	}
}

// Close stops otter's background goroutines.
func (c *MemoryCache[V]) Close() {
	c.store.Close()
}
