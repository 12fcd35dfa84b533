package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
	"github.com/couchcryptid/flare-region-etl/internal/observability"
)

// Enrichment modes.
const (
	ModeMatch      = "match"
	ModeTimeSeries = "timeseries"
)

// seriesSlice is the slice size of history fetches; one request per hourly
// sample keeps each response small.
const seriesSlice = time.Hour

// EnricherConfig holds the matching parameters of a RegionEnricher.
type EnricherConfig struct {
	Mode               string
	DataStart          time.Time
	WindowBefore       time.Duration
	WindowAfter        time.Duration
	SliceSize          time.Duration
	PropertyType       string
	RegionNumberOffset int
}

// RegionEnricher matches each catalog event to a FLARECAST region and, in
// time-series mode, attaches the region's hourly property history.
// It implements Enricher.
type RegionEnricher struct {
	fetcher   domain.PropertyFetcher
	matcher   *domain.Matcher
	assembler *domain.Assembler
	cfg       EnricherConfig
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewRegionEnricher creates a RegionEnricher. The assembler is only used in
// time-series mode and may be nil otherwise.
func NewRegionEnricher(
	fetcher domain.PropertyFetcher,
	matcher *domain.Matcher,
	assembler *domain.Assembler,
	cfg EnricherConfig,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *RegionEnricher {
	if assembler == nil {
		assembler = domain.NewAssembler(0, nil)
	}
	return &RegionEnricher{
		fetcher:   fetcher,
		matcher:   matcher,
		assembler: assembler,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
	}
}

func (e *RegionEnricher) Enrich(ctx context.Context, ev domain.Event) (domain.Event, Outcome) {
	ev.ProcessedAt = domain.Now()
	log := e.logger.With("event_id", ev.ID, "start", ev.StartTime)

	from, to := domain.Window(ev.StartTime, e.cfg.WindowBefore, e.cfg.WindowAfter)
	if !from.After(e.cfg.DataStart) {
		log.Debug("event skipped", "reason", OutcomeBeforeDataStart)
		return ev, OutcomeBeforeDataStart
	}

	loc, err := domain.ResolveLocation(ev)
	if err != nil {
		log.Debug("no usable location", "error", err)
		loc = ""
	}
	target := domain.Target{
		RegionNumber: ev.RegionNumber.Offset(e.cfg.RegionNumberOffset),
		Location:     loc,
	}
	if !target.Searchable() {
		log.Debug("event skipped", "reason", OutcomeNoRegion)
		return ev, OutcomeNoRegion
	}

	propertyType := e.cfg.PropertyType
	if e.cfg.Mode == ModeTimeSeries {
		// Metadata is enough to pick the region.
		propertyType = ""
	}
	candidates := e.fetcher.FetchRange(ctx, domain.RangeQuery{
		Start:     from,
		End:       to,
		SliceSize: e.cfg.SliceSize,
		Params:    queryParams(propertyType),
	})

	m, ok := e.matcher.Match(target, candidates.Records)
	if !ok {
		log.Info("no FLARECAST region matched",
			"nar", target.RegionNumber.Value,
			"location", string(target.Location),
			"candidates", len(candidates.Records),
			"failed_slices", candidates.Failed,
		)
		return ev, OutcomeUnmatched
	}
	ev.Match = &m
	log.Info("FLARECAST region matched", "method", m.Method, "harp", m.HARP, "quality", m.Quality)

	if e.cfg.Mode == ModeTimeSeries {
		series := e.fetchSeries(ctx, m)
		ev.Series = &series
	}

	if m.Method == domain.MatchByNumber {
		return ev, OutcomeMatchedNumber
	}
	return ev, OutcomeMatchedPosition
}

// fetchSeries downloads the hourly history ending at the matched sample and
// assembles it.
func (e *RegionEnricher) fetchSeries(ctx context.Context, m domain.MatchedProperties) domain.TimeSeries {
	span := time.Duration(e.assembler.Length()-1) * time.Hour
	from, to := domain.Window(m.Time, span, e.cfg.WindowAfter)

	history := e.fetcher.FetchRange(ctx, domain.RangeQuery{
		Start:     from,
		End:       to,
		SliceSize: seriesSlice,
		Params:    queryParams(e.cfg.PropertyType),
	})

	series := e.assembler.Assemble(m.HARP, m.Time, history.Records)
	filled, missing := series.Cells()
	e.metrics.SeriesCells.WithLabelValues("filled").Add(float64(filled))
	e.metrics.SeriesCells.WithLabelValues("missing").Add(float64(missing))
	if !history.Complete() {
		e.logger.Warn("time series incomplete",
			"harp", m.HARP,
			"failed_slices", history.Failed,
			"slices", history.Slices,
		)
	}
	return series
}

func queryParams(propertyType string) map[string]string {
	return map[string]string{
		"property_type": propertyType,
		"region_fields": "*",
	}
}
