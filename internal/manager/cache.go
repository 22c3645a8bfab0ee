package manager

import (
	"sync"

	"sysdash/internal/models"
)

// Cache holds the most recent snapshot. It has one writer, the collector
// loop, and any number of readers. Snapshots are immutable, so handing out
// the pointer is safe.
type Cache struct {
	mu       sync.RWMutex
	snapshot *models.Snapshot
}

// Replace swaps in a new snapshot and marks the cache ready. A nil snapshot
// is ignored.
func (c *Cache) Replace(s *models.Snapshot) {
	if s == nil {
		return
	}
	c.mu.Lock()
	c.snapshot = s
	c.mu.Unlock()
}

// Read returns the current snapshot, or false before the first Replace.
func (c *Cache) Read() (*models.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot, c.snapshot != nil
}

// Ready reports whether a snapshot has been stored.
func (c *Cache) Ready() bool {
	_, ok := c.Read()
	return ok
}
