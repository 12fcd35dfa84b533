package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
	"github.com/couchcryptid/flare-region-etl/internal/observability"
)

// Extractor reads every catalog event from the source.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.Event, error)
}

// Enricher attaches FLARECAST data to one event and reports what happened.
type Enricher interface {
	Enrich(ctx context.Context, ev domain.Event) (domain.Event, Outcome)
}

// BatchLoader writes the enriched catalog to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.Event) error
}

// Run states reported by Status.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateFinished = "finished"
	StateFailed   = "failed"
)

// Options tunes a Pipeline.
type Options struct {
	// EventTypes selects catalog rows by FL_TYPE, case-insensitively. Empty
	// selects every row.
	EventTypes []string
	Workers    int
}

// Pipeline runs extract, per-event enrichment, and load over a whole catalog.
type Pipeline struct {
	extractor Extractor
	enricher  Enricher
	loaders   []BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	types     map[string]bool
	workers   int

	ready     atomic.Bool
	processed atomic.Int64
	selected  atomic.Int64

	mu     sync.Mutex
	state  string
	report *Report
	err    error
}

// New creates a Pipeline with the given stages and observability.
func New(e Extractor, en Enricher, loaders []BatchLoader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	var types map[string]bool
	if len(opts.EventTypes) > 0 {
		types = make(map[string]bool, len(opts.EventTypes))
		for _, t := range opts.EventTypes {
			types[strings.ToLower(strings.TrimSpace(t))] = true
		}
	}
	return &Pipeline{
		extractor: e,
		enricher:  en,
		loaders:   loaders,
		logger:    logger,
		metrics:   metrics,
		types:     types,
		workers:   workers,
		state:     StateIdle,
	}
}

// CheckReadiness returns nil once a catalog run has finished and been loaded,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("catalog run has not finished")
	}
	return nil
}

// Status is a point-in-time view of the run for the /status endpoint.
type Status struct {
	State     string  `json:"state"`
	Selected  int64   `json:"selected"`
	Processed int64   `json:"processed"`
	Report    *Report `json:"report,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Status returns the current run status.
func (p *Pipeline) Status() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Status{
		State:     p.state,
		Selected:  p.selected.Load(),
		Processed: p.processed.Load(),
		Report:    p.report,
	}
	if p.err != nil {
		s.Error = p.err.Error()
	}
	return s
}

// Run processes the catalog once. Events are enriched concurrently but the
// loaders receive them in catalog order. A canceled context stops the run
// before anything is loaded.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	p.setState(StateRunning, nil, nil)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report, err := p.run(ctx)
	if err != nil {
		p.setState(StateFailed, &report, err)
		return report, err
	}
	p.setState(StateFinished, &report, nil)
	p.ready.Store(true)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context) (Report, error) {
	began := time.Now()

	all, err := p.extractor.Extract(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("extract catalog: %w", err)
	}
	events := p.selectEvents(all)
	p.selected.Store(int64(len(events)))
	p.logger.Info("pipeline started",
		"catalog_events", len(all),
		"selected", len(events),
		"workers", p.workers,
	)

	enriched := make([]domain.Event, len(events))
	outcomes := make([]Outcome, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, ev := range events {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			start := time.Now()
			enriched[i], outcomes[i] = p.enricher.Enrich(gctx, ev)
			p.metrics.EventProcessingDuration.Observe(time.Since(start).Seconds())
			p.record(outcomes[i])
			p.processed.Add(1)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	report := Report{CatalogEvents: len(all), Selected: len(events)}
	report.tally(outcomes)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("catalog run interrupted: %w", err)
	}

	for _, l := range p.loaders {
		if err := l.LoadBatch(ctx, enriched); err != nil {
			return report, fmt.Errorf("load catalog: %w", err)
		}
	}

	report.Duration = time.Since(began)
	p.logger.Info("pipeline finished",
		"selected", report.Selected,
		"matched_number", report.MatchedByNumber,
		"matched_position", report.MatchedByPosition,
		"unmatched", report.Unmatched,
		"skipped_before_data_start", report.SkippedBeforeDataStart,
		"skipped_no_region", report.SkippedNoRegion,
		"duration", report.Duration,
	)
	return report, nil
}

func (p *Pipeline) selectEvents(all []domain.Event) []domain.Event {
	if p.types == nil {
		return all
	}
	out := make([]domain.Event, 0, len(all))
	for _, ev := range all {
		if p.types[strings.ToLower(ev.SourceType)] {
			out = append(out, ev)
		}
	}
	return out
}

func (p *Pipeline) record(o Outcome) {
	p.metrics.EventsProcessed.Inc()
	switch o {
	case OutcomeMatchedNumber:
		p.metrics.Matches.WithLabelValues(string(domain.MatchByNumber)).Inc()
	case OutcomeMatchedPosition:
		p.metrics.Matches.WithLabelValues(string(domain.MatchByPosition)).Inc()
	case OutcomeUnmatched:
		p.metrics.Matches.WithLabelValues("none").Inc()
	case OutcomeBeforeDataStart:
		p.metrics.EventsSkipped.WithLabelValues("before_data_start").Inc()
	case OutcomeNoRegion:
		p.metrics.EventsSkipped.WithLabelValues("no_region").Inc()
	}
}

func (p *Pipeline) setState(state string, report *Report, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	p.report = report
	p.err = err
}
