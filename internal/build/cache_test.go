package build

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCache_GetSet(t *testing.T) {
	cache := NewBuildCache(1024, time.Hour)

	_, found := cache.Get("missing")
	assert.False(t, found)

	cache.Set("key", []byte("generated source"))

	value, found := cache.Get("key")
	require.True(t, found)
	assert.Equal(t, []byte("generated source"), value)

	count, size, maxSize := cache.GetStats()
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(len("generated source")), size)
	assert.Equal(t, int64(1024), maxSize)
}

func TestBuildCache_UpdateExistingKey(t *testing.T) {
	cache := NewBuildCache(1024, time.Hour)

	cache.Set("key", []byte("short"))
	cache.Set("key", []byte("a much longer value"))

	value, found := cache.Get("key")
	require.True(t, found)
	assert.Equal(t, []byte("a much longer value"), value)

	count, size, _ := cache.GetStats()
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(len("a much longer value")), size)
}

func TestBuildCache_TTLExpiry(t *testing.T) {
	cache := NewBuildCache(1024, 10*time.Millisecond)

	cache.Set("key", []byte("value"))
	time.Sleep(20 * time.Millisecond)

	_, found := cache.Get("key")
	assert.False(t, found)

	count, size, _ := cache.GetStats()
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), size)
}

func TestBuildCache_LRUEviction(t *testing.T) {
	// Budget fits two 10-byte entries.
	cache := NewBuildCache(20, time.Hour)

	cache.Set("first", []byte("0123456789"))
	cache.Set("second", []byte("0123456789"))

	// Touch "first" so "second" becomes the LRU victim.
	_, found := cache.Get("first")
	require.True(t, found)

	cache.Set("third", []byte("0123456789"))

	_, found = cache.Get("first")
	assert.True(t, found)
	_, found = cache.Get("second")
	assert.False(t, found)
	_, found = cache.Get("third")
	assert.True(t, found)
}

func TestBuildCache_Clear(t *testing.T) {
	cache := NewBuildCache(1024, time.Hour)

	for i := 0; i < 5; i++ {
		cache.Set(fmt.Sprintf("key%d", i), []byte("value"))
	}
	cache.Clear()

	count, size, _ := cache.GetStats()
	assert.Equal(t, 0, count)
	assert.Equal(t, int64(0), size)

	_, found := cache.Get("key0")
	assert.False(t, found)
}
