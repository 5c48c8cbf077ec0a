// Package cache implements a process-local, namespaced cache with
// per-namespace TTL and max-entry (LRU-on-overflow) policies, hit/miss/
// eviction statistics, and an invalidation contract that writers use to
// keep a mutation and its cache invalidation inside the same critical
// section.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Policy is a namespace's eviction policy.
type Policy struct {
	TTL       time.Duration
	MaxSize   int
}

// Stats reports hit/miss/eviction counters and current size for one namespace.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

type entry struct {
	namespace string
	key       string
	value     any
	createdAt time.Time
}

// Cache is a namespaced, TTL+LRU store. Zero value is not usable; use New.
type Cache struct {
	mu         sync.Mutex
	policies   map[string]Policy
	defaultTTL time.Duration
	defaultMax int

	// lru is an ordering list per namespace, most-recently-used at the front.
	lru   map[string]*list.List
	items map[string]map[string]*list.Element

	stats map[string]Stats
	now   func() time.Time
}

// New constructs a Cache whose namespaces fall back to defaultTTL/defaultMax
// when RegisterPolicy has not been called for them, grounded on the
// original CacheManager's own defaulting behaviour.
func New(defaultTTL time.Duration, defaultMax int) *Cache {
	return &Cache{
		policies:   make(map[string]Policy),
		defaultTTL: defaultTTL,
		defaultMax: defaultMax,
		lru:        make(map[string]*list.List),
		items:      make(map[string]map[string]*list.Element),
		stats:      make(map[string]Stats),
		now:        time.Now,
	}
}

// RegisterPolicy sets a namespace-specific TTL/MaxSize, overriding the
// defaults for every key in that namespace.
func (c *Cache) RegisterPolicy(namespace string, p Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policies[namespace] = p
}

func (c *Cache) policyFor(namespace string) Policy {
	if p, ok := c.policies[namespace]; ok {
		return p
	}
	return Policy{TTL: c.defaultTTL, MaxSize: c.defaultMax}
}

func (c *Cache) ensureNamespace(namespace string) {
	if c.lru[namespace] == nil {
		c.lru[namespace] = list.New()
		c.items[namespace] = make(map[string]*list.Element)
	}
}

// Get returns the cached value for (namespace, key), or ok=false on a miss
// (absent, or present but expired per the namespace's TTL — lazy expiry,
// no background sweep).
func (c *Cache) Get(namespace, key string) (value any, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureNamespace(namespace)
	el, found := c.items[namespace][key]
	if !found {
		c.bumpMiss(namespace)
		return nil, false
	}
	e := el.Value.(*entry)
	policy := c.policyFor(namespace)
	if policy.TTL > 0 && c.now().Sub(e.createdAt) >= policy.TTL {
		c.removeElement(namespace, el)
		c.bumpMiss(namespace)
		return nil, false
	}
	c.lru[namespace].MoveToFront(el)
	c.bumpHit(namespace)
	return e.value, true
}

// Put inserts or replaces (namespace, key) = value, evicting the
// least-recently-used entry in that namespace first if it is at capacity.
func (c *Cache) Put(namespace, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureNamespace(namespace)
	if el, found := c.items[namespace][key]; found {
		el.Value.(*entry).value = value
		el.Value.(*entry).createdAt = c.now()
		c.lru[namespace].MoveToFront(el)
		return
	}

	policy := c.policyFor(namespace)
	if policy.MaxSize > 0 && c.lru[namespace].Len() >= policy.MaxSize {
		c.evictOldest(namespace)
	}

	e := &entry{namespace: namespace, key: key, value: value, createdAt: c.now()}
	el := c.lru[namespace].PushFront(e)
	c.items[namespace][key] = el
	s := c.stats[namespace]
	s.Entries = c.lru[namespace].Len()
	c.stats[namespace] = s
}

func (c *Cache) evictOldest(namespace string) {
	back := c.lru[namespace].Back()
	if back == nil {
		return
	}
	c.removeElement(namespace, back)
	s := c.stats[namespace]
	s.Evictions++
	c.stats[namespace] = s
}

func (c *Cache) removeElement(namespace string, el *list.Element) {
	e := el.Value.(*entry)
	c.lru[namespace].Remove(el)
	delete(c.items[namespace], e.key)
	s := c.stats[namespace]
	s.Entries = c.lru[namespace].Len()
	c.stats[namespace] = s
}

// Invalidate drops every entry in namespace, or a single key when key != "".
// Callers that mutate an underlying store MUST call this inside the same
// critical section as the mutation (same lock, same transaction) so a
// reader never observes a fresh value behind a stale cache entry.
func (c *Cache) Invalidate(namespace string, key ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureNamespace(namespace)
	if len(key) == 0 || key[0] == "" {
		c.lru[namespace] = list.New()
		c.items[namespace] = make(map[string]*list.Element)
		s := c.stats[namespace]
		s.Entries = 0
		c.stats[namespace] = s
		return
	}
	if el, found := c.items[namespace][key[0]]; found {
		c.removeElement(namespace, el)
	}
}

// ClearAll drops every namespace's entries (statistics are preserved).
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ns := range c.lru {
		c.lru[ns] = list.New()
		c.items[ns] = make(map[string]*list.Element)
		s := c.stats[ns]
		s.Entries = 0
		c.stats[ns] = s
	}
}

// StatsFor returns the current Stats for namespace.
func (c *Cache) StatsFor(namespace string) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats[namespace]
}

func (c *Cache) bumpHit(namespace string) {
	s := c.stats[namespace]
	s.Hits++
	c.stats[namespace] = s
}

func (c *Cache) bumpMiss(namespace string) {
	s := c.stats[namespace]
	s.Misses++
	c.stats[namespace] = s
}
