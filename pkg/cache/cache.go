package cache

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

// ErrTooLarge is returned by Set when a single entry's size exceeds the
// cache's whole byte budget. Evicting everything still would not fit, so
// the entry is rejected instead.
var ErrTooLarge = errors.New("cache: entry exceeds byte budget")

type entry struct {
	key        string
	value      []byte
	size       int64
	insertedAt time.Time
	expiresAt  time.Time // zero means no expiry
}

// Cache is a byte-budgeted key/value store for intermediate results.
// When a write would exceed the budget, entries are evicted in insertion
// order (oldest first) until the new entry fits, even if those entries
// have not expired. Expired entries are treated as absent on read and
// purged on the next write.
type Cache struct {
	mu     sync.Mutex
	budget int64
	used   int64
	order  *list.List // front = oldest insertion
	items  map[string]*list.Element
}

// New creates a cache with the given byte budget.
func New(budgetBytes int64) *Cache {
	if budgetBytes < 0 {
		budgetBytes = 0
	}
	return &Cache{
		budget: budgetBytes,
		order:  list.New(),
		items:  make(map[string]*list.Element),
	}
}

// Set stores value under key with the caller's size estimate. A zero ttl
// means the entry never expires. Replacing an existing key counts as a
// fresh insertion for eviction ordering.
func (c *Cache) Set(key string, value []byte, approxSize int64, ttl time.Duration) error {
	if approxSize < 0 {
		approxSize = int64(len(value))
	}
	if approxSize > c.budget {
		return ErrTooLarge
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.purgeExpiredLocked(now)

	if elem, ok := c.items[key]; ok {
		c.removeLocked(elem)
	}

	for c.used+approxSize > c.budget {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}

	e := &entry{
		key:        key,
		value:      value,
		size:       approxSize,
		insertedAt: now,
	}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	c.items[key] = c.order.PushBack(e)
	c.used += approxSize
	return nil
}

// Get returns the value stored under key. The second return value is
// false when the key is absent or expired, so a stored empty value is
// never confused with a miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry)
	if !e.expiresAt.IsZero() && !e.expiresAt.After(time.Now()) {
		return nil, false
	}
	return e.value, true
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeLocked(elem)
	}
}

// Len returns the number of entries currently held, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// UsedBytes returns the summed size estimates of all held entries.
func (c *Cache) UsedBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

func (c *Cache) purgeExpiredLocked(now time.Time) {
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		e := elem.Value.(*entry)
		if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
			c.removeLocked(elem)
		}
		elem = next
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.items, e.key)
	c.used -= e.size
}
