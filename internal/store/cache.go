package store

import (
	"sync"

	"ta-go/internal/ta"
)

// recencyCache is a bounded id -> record cache fronting single-record task
// lookups so repeated Gets avoid a database round trip. Oldest entries are
// evicted first when the cache is full. It is an optimization only: the
// store stays correct with the cache removed entirely.
type recencyCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]ta.Record
	order    []string // insertion order, oldest first
}

func newRecencyCache(capacity int) *recencyCache {
	return &recencyCache{
		capacity: capacity,
		entries:  make(map[string]ta.Record, capacity),
	}
}

func (c *recencyCache) get(id string) (ta.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[id]
	return rec, ok
}

func (c *recencyCache) put(rec ta.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[rec.ID]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, rec.ID)
	}
	c.entries[rec.ID] = rec
}

func (c *recencyCache) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; !exists {
		return
	}
	delete(c.entries, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *recencyCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ta.Record, c.capacity)
	c.order = nil
}

func (c *recencyCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
