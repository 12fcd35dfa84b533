package flarecast

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
	"github.com/couchcryptid/flare-region-etl/internal/observability"
)

// CachedFetcher wraps a PropertyFetcher with an in-memory LRU cache keyed by
// the full range query.
type CachedFetcher struct {
	inner   domain.PropertyFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher.
func NewCachedFetcher(inner domain.PropertyFetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) FetchRange(ctx context.Context, q domain.RangeQuery) domain.FetchResult {
	key := cacheKey(q)
	if result, ok := c.cache.get(key); ok {
		c.metrics.FetchCache.WithLabelValues("hit").Inc()
		return result
	}
	c.metrics.FetchCache.WithLabelValues("miss").Inc()

	result := c.inner.FetchRange(ctx, q)
	// Only cache complete results so skipped slices are retried.
	if result.Complete() {
		c.cache.put(key, result)
	}
	return result
}

func cacheKey(q domain.RangeQuery) string {
	keys := make([]string, 0, len(q.Params))
	for k := range q.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|%d", q.Start.Unix(), q.End.Unix(), q.SliceSize)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%s", k, q.Params[k])
	}
	return b.String()
}

// lruCache is a simple thread-safe LRU cache for FetchResults.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.FetchResult
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.FetchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.FetchResult{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.FetchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries <= 0 {
		return
	}
	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
