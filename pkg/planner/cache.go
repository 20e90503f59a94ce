package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/a2aflow/engine/pkg/a2a"
)

// Cache stores planner output keyed by query text, adapted from
// pkg/routing/cache.go's SimpleCache (hashed keys, TTL expiry, periodic
// cleanup goroutine).
type Cache struct {
	mu      sync.RWMutex
	items   map[string]cacheItem
	maxSize int
	stop    chan struct{}
}

type cacheItem struct {
	plan      a2a.ExecutionPlan
	expiresAt time.Time
}

// NewCache builds a cache with the teacher's default size/cleanup cadence.
func NewCache(maxSize int, cleanupInterval time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	c := &Cache{
		items:   make(map[string]cacheItem),
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop(cleanupInterval)
	return c
}

func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached plan for query, if present and unexpired.
func (c *Cache) Get(query string) (a2a.ExecutionPlan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[hashQuery(query)]
	if !ok || time.Now().After(item.expiresAt) {
		return a2a.ExecutionPlan{}, false
	}
	return item.plan, true
}

// Set stores plan for query with the given TTL, evicting expired entries
// first if the cache is at capacity.
func (c *Cache) Set(query string, plan a2a.ExecutionPlan, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) >= c.maxSize {
		c.evictExpiredLocked()
	}
	if len(c.items) >= c.maxSize {
		return // still full; skip rather than unbounded growth
	}
	c.items[hashQuery(query)] = cacheItem{plan: plan, expiresAt: time.Now().Add(ttl)}
}

func (c *Cache) evictExpiredLocked() {
	now := time.Now()
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
		}
	}
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.evictExpiredLocked()
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() { close(c.stop) }
