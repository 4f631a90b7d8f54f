package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvukovic/liftlog/internal/cache"
)

func TestTTLCache_GetSet(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := cache.NewTTLCache(func() time.Time { return now })

	_, found := c.Get("analytics:user1:muscle-split:30")
	assert.False(t, found)

	c.Set("analytics:user1:muscle-split:30", []byte(`{"totalSets":5}`), 5*time.Minute)

	val, found := c.Get("analytics:user1:muscle-split:30")
	require.True(t, found)
	assert.Equal(t, []byte(`{"totalSets":5}`), val)
}

func TestTTLCache_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := cache.NewTTLCache(func() time.Time { return now })

	c.Set("key", []byte("value"), 5*time.Minute)

	now = now.Add(5 * time.Minute) // exactly at expiry, still valid
	_, found := c.Get("key")
	assert.True(t, found)

	now = now.Add(time.Second)
	_, found = c.Get("key")
	assert.False(t, found)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_InvalidatePattern(t *testing.T) {
	c := cache.NewTTLCache(nil)

	c.Set("analytics:user1:muscle-split:30", []byte("a"), time.Minute)
	c.Set("analytics:user1:consistency:90", []byte("b"), time.Minute)
	c.Set("analytics:user2:muscle-split:30", []byte("c"), time.Minute)

	c.InvalidatePattern("analytics:user1:")

	_, found := c.Get("analytics:user1:muscle-split:30")
	assert.False(t, found)
	_, found = c.Get("analytics:user1:consistency:90")
	assert.False(t, found)
	_, found = c.Get("analytics:user2:muscle-split:30")
	assert.True(t, found)
}

func TestTTLCache_Clear(t *testing.T) {
	c := cache.NewTTLCache(nil)
	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
