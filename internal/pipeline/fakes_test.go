package pipeline_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
)

// --- mocks ---

type mockExtractor struct {
	events []domain.Event
	err    error
}

func (m *mockExtractor) Extract(_ context.Context) ([]domain.Event, error) {
	return m.events, m.err
}

type mockLoader struct {
	mu     sync.Mutex
	loaded [][]domain.Event
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events)
	return nil
}

// fakeFetcher serves records whose time falls in the queried range and keeps
// every query it was asked.
type fakeFetcher struct {
	mu      sync.Mutex
	records []domain.PropertyRecord
	failed  int
	queries []domain.RangeQuery
}

func (f *fakeFetcher) FetchRange(_ context.Context, q domain.RangeQuery) domain.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)

	var out []domain.PropertyRecord
	for _, r := range f.records {
		if !r.Time.Before(q.Start) && r.Time.Before(q.End) {
			out = append(out, r)
		}
	}
	return domain.FetchResult{Records: out, Slices: 1 + f.failed, Failed: f.failed}
}

func (f *fakeFetcher) queryLog() []domain.RangeQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RangeQuery(nil), f.queries...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fixtures ---

var (
	flareStart = time.Date(2013, 5, 13, 1, 53, 0, 0, time.UTC)
	sampleTime = time.Date(2013, 5, 13, 1, 0, 0, 0, time.UTC)
	dataStart  = time.Date(2012, 9, 1, 0, 0, 0, 0, time.UTC)
)

func region(at time.Time, harp int, nars []int, lat, lon float64, data map[string]any) domain.PropertyRecord {
	if data == nil {
		data = map[string]any{}
	}
	return domain.PropertyRecord{Time: at, RegionNumbers: nars, HARP: harp, Lat: lat, Lon: lon, Data: data}
}

func catalogEvent(id, sourceType string, start time.Time, nar int, loc domain.LocationCode) domain.Event {
	return domain.Event{
		ID:           id,
		SourceType:   sourceType,
		StartTime:    start,
		RegionNumber: domain.NewRegionNumber(nar),
		Location:     loc,
	}
}
