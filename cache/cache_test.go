package cache_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arielsalem/cacheproxy/cache"
)

func bytesOf(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}

// TestEvictionOrder covers scenario 2 and P5: with a 3000-byte cache
// and three 1000-byte entries, inserting a fourth evicts the oldest.
func TestEvictionOrder(t *testing.T) {
	c := cache.New(3000, 1000)

	c.Put("U1", bytesOf(1000, 'a'))
	c.Put("U2", bytesOf(1000, 'b'))
	c.Put("U3", bytesOf(1000, 'c'))
	c.Put("U4", bytesOf(1000, 'd'))

	_, ok := c.Get("U1")
	assert.False(t, ok, "U1 should have been evicted")

	for _, uri := range []string{"U2", "U3", "U4"} {
		_, ok := c.Get(uri)
		assert.True(t, ok, uri+" should still hit")
	}
	assert.Equal(t, 3000, c.Size())
}

// TestRecencyPromotion covers scenario 3: a Get before the fourth
// insert keeps U1 alive and sends U2 to eviction instead.
func TestRecencyPromotion(t *testing.T) {
	c := cache.New(3000, 1000)

	c.Put("U1", bytesOf(1000, 'a'))
	c.Put("U2", bytesOf(1000, 'b'))
	c.Put("U3", bytesOf(1000, 'c'))

	_, ok := c.Get("U1")
	require.True(t, ok)

	c.Put("U4", bytesOf(1000, 'd'))

	_, ok = c.Get("U2")
	assert.False(t, ok, "U2 should have been evicted instead of U1")

	for _, uri := range []string{"U1", "U3", "U4"} {
		_, ok := c.Get(uri)
		assert.True(t, ok, uri+" should still hit")
	}
}

// TestOversizeBypass covers scenario 4 and P6: a Put beyond
// maxObjectSize leaves Size() unchanged and a subsequent Get misses.
func TestOversizeBypass(t *testing.T) {
	c := cache.New(10000, 1000)

	c.Put("U", bytesOf(1001, 'x'))

	assert.Equal(t, 0, c.Size())
	_, ok := c.Get("U")
	assert.False(t, ok)
}

// TestURIUniqueness covers P3: re-Put of the same URI replaces, never
// duplicates.
func TestURIUniqueness(t *testing.T) {
	c := cache.New(10000, 1000)

	c.Put("U", bytesOf(100, 'a'))
	c.Put("U", bytesOf(200, 'b'))

	assert.Equal(t, 200, c.Size())
	payload, ok := c.Get("U")
	require.True(t, ok)
	assert.Equal(t, bytesOf(200, 'b'), payload)
}

// TestByteTotalAccounting covers P1/P2: byte_total tracks live payload
// sizes and never exceeds capacity.
func TestByteTotalAccounting(t *testing.T) {
	c := cache.New(2500, 1000)

	c.Put("U1", bytesOf(1000, 'a'))
	c.Put("U2", bytesOf(1000, 'b'))
	assert.Equal(t, 2000, c.Size())

	c.Remove("U1")
	assert.Equal(t, 1000, c.Size())

	c.Put("U3", bytesOf(1000, 'c'))
	c.Put("U4", bytesOf(1000, 'd'))
	assert.LessOrEqual(t, c.Size(), 2500)
}

// TestPutLargerThanCapacityLeavesCacheConsistent covers the §4.C
// corner case: a payload that still doesn't fit after the eviction
// loop drains the cache is simply not inserted.
func TestPutLargerThanCapacityLeavesCacheConsistent(t *testing.T) {
	c := cache.New(1000, 2000)

	c.Put("U1", bytesOf(900, 'a'))
	c.Put("huge", bytesOf(1500, 'z'))

	_, ok := c.Get("huge")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

// TestConcurrentPutGet covers P8: concurrent put/get workers never
// corrupt byte_total or the index, and every read sees a whole
// payload, never a torn one.
func TestConcurrentPutGet(t *testing.T) {
	c := cache.New(50_000, 1000)

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("U%d", i%10)
				fill := byte('A' + worker%26)
				buf := bytesOf(500, fill)
				c.Put(key, buf)

				if payload, ok := c.Get(key); ok {
					for _, b := range payload {
						require.Equal(t, payload[0], b, "payload must not be torn")
					}
				}
				_ = c.Size()
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 50_000)
}

// TestCacheHitScenario covers scenario 1: a verbatim payload served
// on hit matches exactly what was stored.
func TestCacheHitScenario(t *testing.T) {
	c := cache.New(10000, 2000)
	body := bytesOf(1000, 'A')

	c.Put("http://example.com/a", body)

	got1, ok := c.Get("http://example.com/a")
	require.True(t, ok)
	got2, ok := c.Get("http://example.com/a")
	require.True(t, ok)

	assert.Equal(t, body, got1)
	assert.Equal(t, got1, got2)
}

func TestCloseEmptiesCache(t *testing.T) {
	c := cache.New(10000, 2000)
	c.Put("U", bytesOf(100, 'a'))
	c.Close()

	assert.Equal(t, 0, c.Size())
	_, ok := c.Get("U")
	assert.False(t, ok)
}
