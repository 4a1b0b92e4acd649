package cache

import (
	"context"
	"sync"
	"time"

	"insightforge/domain/stats"
	"insightforge/ports"
)

type memoryEntry struct {
	analysis  *stats.Analysis
	expiresAt time.Time
}

// MemoryCache is an in-process ResultCache used when Redis is not configured
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an empty cache; ttl <= 0 keeps entries forever
func NewMemory(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

var _ ports.ResultCache = (*MemoryCache)(nil)

// Get returns a live entry. Expired entries are dropped on access.
func (c *MemoryCache) Get(_ context.Context, key string) (*stats.Analysis, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return entry.analysis, true, nil
}

// Set stores the analysis under key
func (c *MemoryCache) Set(_ context.Context, key string, analysis *stats.Analysis) error {
	entry := memoryEntry{analysis: analysis}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops expired entries and reports how many were removed
func (c *MemoryCache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
