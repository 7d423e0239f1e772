// Package cache provides the bounded LRU+TTL cache used by the
// read-heavy search tools.
//
// The cache is purely an optimization: every cached value must be
// reproducible by recomputation, so eviction and expiry never affect
// correctness. Keys are generated deterministically from tool name and
// parameters so identical logical calls hit the same entry regardless
// of map iteration order.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// timeNow is swapped in tests to make TTL expiry deterministic.
var timeNow = time.Now

// entry is one cached value with its insertion time.
type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// Stats holds hit/miss counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache is a fixed-capacity LRU cache with a per-cache TTL.
// Safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recently used
	items    map[string]*list.Element
	hits     int64
	misses   int64
}

// New creates a cache with the given capacity and TTL. Capacity must be
// positive; a zero TTL disables expiry.
func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached value for key if present and unexpired.
// A hit promotes the entry to most-recently-used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}

	e := el.Value.(*entry[V])
	if c.ttl > 0 && timeNow().Sub(e.insertedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		c.misses++
		return zero, false
	}

	c.order.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Put stores a value, evicting the least-recently-used entry when the
// cache is at capacity. Storing an existing key refreshes its value and
// insertion time.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.insertedAt = timeNow()
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
		}
	}

	el := c.order.PushFront(&entry[V]{key: key, value: value, insertedAt: timeNow()})
	c.items[key] = el
}

// Len returns the number of live entries, expired ones included —
// expiry is lazy, applied on Get.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops all entries. Counters are kept.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Stats returns a snapshot of the hit/miss counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: c.order.Len()}
}

// Key builds a deterministic cache key for a tool call. Parameters are
// serialized with sorted keys so two maps with the same contents always
// produce the same key. Nil and empty parameter maps are equivalent.
func Key(tool string, params map[string]any) string {
	var sb strings.Builder
	sb.WriteString(tool)
	sb.WriteByte('\n')

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		// json.Marshal gives a stable scalar encoding; nested maps are
		// marshaled with sorted keys by encoding/json already.
		b, err := json.Marshal(params[k])
		if err != nil {
			sb.WriteString(fmt.Sprintf("%v", params[k]))
		} else {
			sb.Write(b)
		}
		sb.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}
