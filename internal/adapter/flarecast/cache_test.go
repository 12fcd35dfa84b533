package flarecast

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
	"github.com/couchcryptid/flare-region-etl/internal/observability"
)

// --- mock for cache tests ---

type countingFetcher struct {
	calls  int
	result domain.FetchResult
}

func (m *countingFetcher) FetchRange(_ context.Context, _ domain.RangeQuery) domain.FetchResult {
	m.calls++
	return m.result
}

func testQuery(params map[string]string) domain.RangeQuery {
	return domain.RangeQuery{
		Start:     sliceStart,
		End:       sliceStart.Add(65 * time.Minute),
		SliceSize: 30 * 24 * time.Hour,
		Params:    params,
	}
}

// --- CachedFetcher tests ---

func TestCachedFetcher_CacheHit(t *testing.T) {
	inner := &countingFetcher{result: domain.FetchResult{
		Records: []domain.PropertyRecord{{HARP: 2748}},
		Slices:  1,
	}}
	m := observability.NewMetricsForTesting()
	cached := NewCachedFetcher(inner, 10, m)

	r1 := cached.FetchRange(context.Background(), testQuery(map[string]string{"a": "1", "b": "2"}))
	r2 := cached.FetchRange(context.Background(), testQuery(map[string]string{"b": "2", "a": "1"}))

	assert.Equal(t, 2748, r1.Records[0].HARP)
	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchCache.WithLabelValues("miss")), 0)
}

func TestCachedFetcher_DifferentParamsMiss(t *testing.T) {
	inner := &countingFetcher{result: domain.FetchResult{Slices: 1}}
	cached := NewCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	cached.FetchRange(context.Background(), testQuery(map[string]string{"property_type": ""}))
	cached.FetchRange(context.Background(), testQuery(map[string]string{"property_type": "*"}))

	assert.Equal(t, 2, inner.calls)
}

func TestCachedFetcher_IncompleteResultNotCached(t *testing.T) {
	inner := &countingFetcher{result: domain.FetchResult{Slices: 2, Failed: 1}}
	cached := NewCachedFetcher(inner, 10, observability.NewMetricsForTesting())

	cached.FetchRange(context.Background(), testQuery(nil))
	cached.FetchRange(context.Background(), testQuery(nil))

	assert.Equal(t, 2, inner.calls, "a result with skipped slices is fetched again")
}

func TestCachedFetcher_ZeroSizeDisablesCache(t *testing.T) {
	inner := &countingFetcher{result: domain.FetchResult{Slices: 1}}
	cached := NewCachedFetcher(inner, 0, observability.NewMetricsForTesting())

	cached.FetchRange(context.Background(), testQuery(nil))
	cached.FetchRange(context.Background(), testQuery(nil))

	assert.Equal(t, 2, inner.calls)
	assert.Zero(t, cached.cache.len())
}

// --- LRU cache unit tests ---

func harpResult(harp int) domain.FetchResult {
	return domain.FetchResult{Records: []domain.PropertyRecord{{HARP: harp}}, Slices: 1}
}

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", harpResult(1))
	c.put("b", harpResult(2))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, result.Records[0].HARP)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", harpResult(1))
	c.put("b", harpResult(2))
	c.put("c", harpResult(3)) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	result, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, result.Records[0].HARP)

	result, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, result.Records[0].HARP)
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", harpResult(1))
	c.put("b", harpResult(2))

	c.get("a")

	// "b" is now least recently used.
	c.put("c", harpResult(3))

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", harpResult(1))
	c.put("a", harpResult(9))

	result, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, 9, result.Records[0].HARP)
	assert.Equal(t, 1, c.len())
}
