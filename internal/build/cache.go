package build

import (
	"sync"
	"time"
)

// BuildCache caches generated output keyed by content hash, with TTL and LRU
// eviction.
type BuildCache struct {
	entries     map[string]*CacheEntry
	mutex       sync.RWMutex
	maxSize     int64
	currentSize int64
	ttl         time.Duration
	// LRU doubly-linked list
	head *CacheEntry
	tail *CacheEntry
}

// CacheEntry represents a cached build result.
type CacheEntry struct {
	Key        string
	Value      []byte
	Hash       string
	CreatedAt  time.Time
	AccessedAt time.Time
	Size       int64
	prev       *CacheEntry
	next       *CacheEntry
}

// NewBuildCache creates a cache with the given byte budget and entry TTL.
func NewBuildCache(maxSize int64, ttl time.Duration) *BuildCache {
	cache := &BuildCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}

	// Dummy head and tail simplify list manipulation.
	cache.head = &CacheEntry{}
	cache.tail = &CacheEntry{}
	cache.head.next = cache.tail
	cache.tail.prev = cache.head

	return cache
}

// Get returns the cached value for a key, refreshing its LRU position.
func (bc *BuildCache) Get(key string) ([]byte, bool) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	entry, exists := bc.entries[key]
	if !exists {
		return nil, false
	}

	if time.Since(entry.CreatedAt) > bc.ttl {
		bc.removeFromList(entry)
		delete(bc.entries, key)
		bc.currentSize -= entry.Size
		return nil, false
	}

	bc.moveToFront(entry)
	entry.AccessedAt = time.Now()
	return entry.Value, true
}

// Set stores a value, evicting least recently used entries as needed.
func (bc *BuildCache) Set(key string, value []byte) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if existing, exists := bc.entries[key]; exists {
		sizeDiff := int64(len(value)) - existing.Size
		existing.Value = value
		existing.AccessedAt = time.Now()
		existing.Size = int64(len(value))
		bc.currentSize += sizeDiff
		bc.moveToFront(existing)
		return
	}

	bc.evictIfNeeded(int64(len(value)))

	entry := &CacheEntry{
		Key:        key,
		Value:      value,
		Hash:       key,
		CreatedAt:  time.Now(),
		AccessedAt: time.Now(),
		Size:       int64(len(value)),
	}

	bc.entries[key] = entry
	bc.currentSize += entry.Size
	bc.addToFront(entry)
}

func (bc *BuildCache) evictIfNeeded(newSize int64) {
	if bc.currentSize+newSize <= bc.maxSize {
		return
	}

	for bc.currentSize+newSize > bc.maxSize && bc.tail.prev != bc.head {
		lru := bc.tail.prev
		bc.removeFromList(lru)
		delete(bc.entries, lru.Key)
		bc.currentSize -= lru.Size
	}
}

// Clear clears all cache entries.
func (bc *BuildCache) Clear() {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	bc.entries = make(map[string]*CacheEntry)
	bc.currentSize = 0
	bc.head.next = bc.tail
	bc.tail.prev = bc.head
}

// GetStats returns entry count, current size, and max size.
func (bc *BuildCache) GetStats() (int, int64, int64) {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	return len(bc.entries), bc.currentSize, bc.maxSize
}

func (bc *BuildCache) addToFront(entry *CacheEntry) {
	entry.prev = bc.head
	entry.next = bc.head.next
	bc.head.next.prev = entry
	bc.head.next = entry
}

func (bc *BuildCache) removeFromList(entry *CacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (bc *BuildCache) moveToFront(entry *CacheEntry) {
	bc.removeFromList(entry)
	bc.addToFront(entry)
}
