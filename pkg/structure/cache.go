// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package structure

import (
	"sync"
	"time"
)

// Cache is a process-wide time-bounded map of rendered structure text.
// It is purely a latency optimization: a miss always falls through to full
// resolution, and entries are immutable until they expire or are overwritten
// by a later resolution of the same key (last writer wins).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	// now is replaceable in tests.
	now func() time.Time
}

type cacheEntry struct {
	text    string
	expires time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached text for key. Entries past their expiry are
// misses, not stale hits.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// refreshed the entry.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return e.text, true
}

// Set stores text under key with the given time-to-live.
func (c *Cache) Set(key, text string, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{text: text, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}
