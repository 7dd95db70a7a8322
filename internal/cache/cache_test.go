package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *clock) {
	clk := &clock{t: time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	require.True(t, c.Set(1, "month", 1, 0))
	require.True(t, c.Set(1, "week", 2, 0))
	v, ok := c.Get(1, "month")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	// "week" is least recently used after reading "month"
	c.Set(2, "month", 3, 0)
	_, ok = c.Get(1, "week")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Set(1, "month", 10, 0)
	v, _ = c.Get(1, "month")
	assert.Equal(t, 10, v)

	_, ok = c.Get(2, "week")
	assert.False(t, ok, "keys are scoped per owner")
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clk := newTestCache(10, time.Minute)
	c.Set(1, "k", 1, 0)
	c.Set(1, "j", 2, 0)
	clk.t = clk.t.Add(30 * time.Second)
	c.Set(2, "k", 3, 0)

	clk.t = clk.t.Add(45 * time.Second)
	_, ok := c.Get(1, "k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Len())

	v, ok := c.Get(2, "k")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLRUCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set(1, "month", 1, 0)
	c.Set(1, "week", 2, 0)
	c.Set(10, "week", 3, 0)

	assert.Equal(t, 2, c.Invalidate(1))
	_, ok := c.Get(1, "month")
	assert.False(t, ok)
	_, ok = c.Get(10, "week")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Invalidate(1))
}

func TestLRUCache_SetAfterInvalidateIsRejected(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	gen := c.Generation(1)
	c.Invalidate(1) // a write lands while the view is being built

	assert.False(t, c.Set(1, "month", 1, gen))
	_, ok := c.Get(1, "month")
	assert.False(t, ok)

	assert.True(t, c.Set(1, "month", 2, c.Generation(1)))
	assert.True(t, c.Set(2, "month", 3, gen), "other owners are unaffected")
}

func TestManager_CleansRegisteredCaches(t *testing.T) {
	c := NewLRUCache[int](10, 5*time.Millisecond)
	c.Set(1, "x", 1, 0)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(10 * time.Millisecond)
	defer m.Stop()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}
