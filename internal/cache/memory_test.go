package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigtrap/shaderstrip/internal/cache"
	"github.com/sigtrap/shaderstrip/internal/testsupport"
)

type entry struct{ id string }

func TestMemoryCache(t *testing.T) {
	t.Run("Should count hits and misses", func(t *testing.T) {
		c, err := cache.NewMemoryCache[*entry](16, time.Minute, nil)
		require.NoError(t, err)
		defer c.Close()

		testsupport.AssertMetricDelta(t, "shaderstrip_session_cache_misses_total", nil, 1, func() {
			_, found := c.Get("missing")
			assert.False(t, found)
		})

		require.True(t, c.Set("s-1", &entry{id: "s-1"}))
		testsupport.AssertMetricDelta(t, "shaderstrip_session_cache_hits_total", nil, 1, func() {
			got, found := c.Get("s-1")
			require.True(t, found)
			assert.Equal(t, "s-1", got.id)
		})
	})

	t.Run("Should not report explicit deletes as evictions", func(t *testing.T) {
		var evicted atomic.Int32
		c, err := cache.NewMemoryCache(16, time.Minute, func(string, *entry) { evicted.Add(1) })
		require.NoError(t, err)
		defer c.Close()

		c.Set("s-1", &entry{id: "s-1"})
		c.Del("s-1")

		_, found := c.Get("s-1")
		assert.False(t, found)
		assert.Zero(t, evicted.Load())
	})

	t.Run("Should hand expired values to the eviction callback", func(t *testing.T) {
		evicted := make(chan string, 1)
		c, err := cache.NewMemoryCache(16, 50*time.Millisecond, func(key string, _ *entry) {
			select {
			case evicted <- key:
			default:
			}
		})
		require.NoError(t, err)
		defer c.Close()

		c.Set("short-lived", &entry{id: "short-lived"})

		select {
		case key := <-evicted:
			assert.Equal(t, "short-lived", key)
		case <-time.After(5 * time.Second):
			t.Fatal("expired session was never evicted")
		}
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Should keep the first value when a key is claimed twice", func(t *testing.T) {
		c, err := cache.NewMemoryCache[*entry](16, time.Minute, nil)
		require.NoError(t, err)
		defer c.Close()

		first, second := &entry{id: "first"}, &entry{id: "second"}
		require.True(t, c.SetIfAbsent("b1", first))
		assert.False(t, c.SetIfAbsent("b1", second))

		got, found := c.Get("b1")
		require.True(t, found)
		assert.Same(t, first, got)
	})

	t.Run("Should let exactly one concurrent claim win", func(t *testing.T) {
		c, err := cache.NewMemoryCache[*entry](16, time.Minute, nil)
		require.NoError(t, err)
		defer c.Close()

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if c.SetIfAbsent("b1", &entry{id: "b1"}) {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("Should hand overwritten values to the eviction callback", func(t *testing.T) {
		replaced := make(chan *entry, 1)
		c, err := cache.NewMemoryCache(16, time.Minute, func(_ string, v *entry) {
			select {
			case replaced <- v:
			default:
			}
		})
		require.NoError(t, err)
		defer c.Close()

		first := &entry{id: "first"}
		require.True(t, c.Set("b1", first))
		require.True(t, c.Set("b1", &entry{id: "second"}))

		select {
		case v := <-replaced:
			assert.Same(t, first, v)
		case <-time.After(5 * time.Second):
			t.Fatal("overwritten value was never handed back")
		}
	})

	t.Run("Should publish the item count", func(t *testing.T) {
		c, err := cache.NewMemoryCache[*entry](16, time.Minute, nil)
		require.NoError(t, err)
		defer c.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go c.RunMetricsCollector(ctx, 10*time.Millisecond)

		c.Set("a", &entry{})
		c.Set("b", &entry{})

		require.Eventually(t, func() bool {
			return testsupport.GetMetricValue(t, "shaderstrip_session_cache_items_count", nil) == 2
		}, 2*time.Second, 20*time.Millisecond)
	})
}
