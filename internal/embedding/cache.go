package embedding

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Cache stores previously computed embeddings keyed by normalized text.
// The cache is advisory: absence only costs a provider call, and implementations
// backed by a network store must degrade unavailability to a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, value []float32)
	Close() error
}

// LRUCache is an in-process LRU cache for embeddings with optional TTL.
// Expired entries are dropped on read, never refreshed in place.
type LRUCache struct {
	capacity int
	ttl      time.Duration
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key       string
	value     []float32
	expiresAt time.Time
}

// NewLRUCache creates a cache with the given capacity. A ttl of 0 means entries
// never expire.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present and not expired.
func (c *LRUCache) Get(ctx context.Context, key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.lru.Remove(elem)
		delete(c.cache, key)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.value, true
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *LRUCache) Set(ctx context.Context, key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		return
	}

	entry := &cacheEntry{key: key, value: value, expiresAt: expiresAt}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of entries currently cached, including any not yet
// dropped expired entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close is a no-op for LRUCache.
func (c *LRUCache) Close() error {
	return nil
}
