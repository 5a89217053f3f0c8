// Package cache provides an in-memory content cache keyed by absolute file
// path. Entries expire by TTL and are invalidated when the file's on-disk
// modification time moves past the cached timestamp, so readers never see
// content staler than the filesystem.
package cache

import (
	"os"
	"sync"
	"time"
)

// Entry holds cached file content with its validation metadata.
type Entry struct {
	Content   []byte
	Hash      uint64
	Timestamp time.Time // When the content was captured
}

// Cache is a bounded, TTL-expiring content cache. It is safe for concurrent
// use and exclusively owned by one manager instance; it is never shared
// across processes.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	maxEntries int
	ttl        time.Duration
	clock      func() time.Time
}

// New creates a Cache bounded by maxEntries with the given TTL.
func New(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]*Entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      time.Now,
	}
}

// SetClock substitutes the time source. Used by tests.
func (c *Cache) SetClock(clock func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
}

// Get returns the cached content for path if the entry is within its TTL
// and the on-disk modification time is not newer than the capture time.
// A stale entry is evicted and (nil, false) is returned.
func (c *Cache) Get(path string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[path]
	now := c.clock()
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if now.Sub(entry.Timestamp) > c.ttl {
		c.Invalidate(path)
		return nil, false
	}

	// The file may have been modified by another process; the mtime check
	// keeps the cache honest without hashing the file on every read.
	info, err := os.Stat(path)
	if err != nil || info.ModTime().After(entry.Timestamp) {
		c.Invalidate(path)
		return nil, false
	}

	return entry.Content, true
}

// Hash returns the cached content hash for path without the staleness
// checks. Used by the watcher for cheap change comparison.
func (c *Cache) Hash(path string) (uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[path]
	if !ok {
		return 0, false
	}
	return entry.Hash, true
}

// Put inserts or overwrites the entry for path. When the bound is exceeded
// the oldest entry by capture time is evicted first. The entry stores a
// private copy of content, so callers may keep mutating their buffer.
func (c *Cache) Put(path string, content []byte, hash uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[path]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}

	stored := make([]byte, len(content))
	copy(stored, content)

	c.entries[path] = &Entry{
		Content:   stored,
		Hash:      hash,
		Timestamp: c.clock(),
	}
}

// evictOldestLocked removes the entry with the oldest capture timestamp.
// Must be called with the write lock held.
func (c *Cache) evictOldestLocked() {
	var oldestPath string
	var oldestTime time.Time

	for path, entry := range c.entries {
		if oldestPath == "" || entry.Timestamp.Before(oldestTime) {
			oldestPath = path
			oldestTime = entry.Timestamp
		}
	}
	if oldestPath != "" {
		delete(c.entries, oldestPath)
	}
}

// Invalidate removes the entry for path, if present.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Sweep removes all TTL-expired entries and returns how many were dropped.
// Called periodically by the manager's maintenance task.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	dropped := 0
	for path, entry := range c.entries {
		if now.Sub(entry.Timestamp) > c.ttl {
			delete(c.entries, path)
			dropped++
		}
	}
	return dropped
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
