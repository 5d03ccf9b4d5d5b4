// Reelgraph - Dual-Index Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelgraph

package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/reelgraph/internal/metrics"
)

// Entry represents a cached item with expiration
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Cache provides a thread-safe in-memory cache with per-entry TTL.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration

	statsMu sync.RWMutex
	stats   Stats

	loads       singleflight.Group
	loadTimeout time.Duration
	now         func() time.Time
}

// Stats tracks cache performance metrics
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// New creates a cache whose Set uses ttl. Expired entries are removed lazily
// on Get and in bulk by Cleanup; run a Janitor to call Cleanup periodically.
//
// Example:
//
//	c := cache.New(10 * time.Minute)
//	c.SetWithTTL("movie_recommendations:42:false:10", list, time.Hour)
//	if data, ok := c.Get("movie_recommendations:42:false:10"); ok {
//	    // Use cached data
//	}
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
		stats: Stats{
			LastCleanup: time.Now(),
		},
		loadTimeout: DefaultLoadTimeout,
	}
}

// Get retrieves a value, treating expired entries as misses and removing them.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		c.recordMiss(key)
		return nil, false
	}

	if c.now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// Another writer may have refreshed the key in between.
		if current, ok := c.entries[key]; ok && c.now().After(current.ExpiresAt) {
			delete(c.entries, key)
			c.recordEvictions(1)
		}
		c.mu.Unlock()
		c.recordMiss(key)
		return nil, false
	}

	c.recordHit(key)
	return entry.Data, true
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores a value in the cache with a custom TTL
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{
		Data:      value,
		ExpiresAt: c.now().Add(ttl),
	}
	size := len(c.entries)
	c.mu.Unlock()

	c.setSize(size)
}

// Delete removes one entry. Missing keys are a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	size := len(c.entries)
	c.mu.Unlock()

	if existed {
		c.recordEvictions(1)
	}
	c.setSize(size)
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	evictions := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.recordEvictions(evictions)
	c.setSize(0)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of current cache performance statistics.
func (c *Cache) GetStats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

// HitRate returns the cache hit rate as a percentage
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Cleanup removes all expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	now := c.now()
	c.mu.Lock()
	evictions := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			evictions++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	c.recordEvictions(int64(evictions))
	c.setSize(size)

	c.statsMu.Lock()
	c.stats.LastCleanup = now
	c.statsMu.Unlock()
	return evictions
}

func (c *Cache) recordHit(key string) {
	c.statsMu.Lock()
	c.stats.Hits++
	c.statsMu.Unlock()
	metrics.CacheHits.WithLabelValues(cacheType(key)).Inc()
}

func (c *Cache) recordMiss(key string) {
	c.statsMu.Lock()
	c.stats.Misses++
	c.statsMu.Unlock()
	metrics.CacheMisses.WithLabelValues(cacheType(key)).Inc()
}

func (c *Cache) recordEvictions(n int64) {
	if n == 0 {
		return
	}
	c.statsMu.Lock()
	c.stats.Evictions += n
	c.statsMu.Unlock()
	metrics.CacheEvictions.Add(float64(n))
}

func (c *Cache) setSize(n int) {
	c.statsMu.Lock()
	c.stats.TotalKeys = int64(n)
	c.statsMu.Unlock()
	metrics.CacheSize.Set(float64(n))
}

// cacheType is the key prefix before the first colon, used as a metrics label.
func cacheType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

// GenerateKey joins prefix and parts with colons. The same inputs always
// produce the same key.
//
//	GenerateKey("user_recommendations", "alice")     // user_recommendations:alice
//	GenerateKey("movie_recommendations", 42, true, 10) // movie_recommendations:42:true:10
func GenerateKey(prefix string, parts ...interface{}) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return b.String()
}
