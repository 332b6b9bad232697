package sentry

import "sync"

// eventCache is a fixed-capacity map with insertion-order eviction.
// A hit does not refresh an entry's position: queries for the same
// window return identical results regardless of how often they are
// asked, so recency carries no signal here and plain FIFO keeps
// eviction predictable.
type eventCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]Event
	order    []string
}

func newEventCache(capacity int) *eventCache {
	if capacity < 1 {
		capacity = 1
	}
	return &eventCache{
		capacity: capacity,
		entries:  make(map[string][]Event, capacity),
	}
}

func (c *eventCache) Get(key string) ([]Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	events, ok := c.entries[key]
	return events, ok
}

// Add stores the events under key. A new key at capacity evicts the
// oldest-inserted entry first; re-adding an existing key replaces its
// value without changing its age.
func (c *eventCache) Add(key string, events []Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = events
}

func (c *eventCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
