package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flare_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// matching pipeline.
type Metrics struct {
	EventsProcessed prometheus.Counter
	EventsSkipped   *prometheus.CounterVec // labels: reason={before_data_start,no_region}
	Matches         *prometheus.CounterVec // labels: method={number,position,none}
	PipelineRunning prometheus.Gauge

	EventProcessingDuration prometheus.Histogram

	// Property service metrics.
	FetchSlices          *prometheus.CounterVec // labels: outcome={success,transport_error,bad_status,decode_error}
	FetchRequestDuration prometheus.Histogram
	FetchCache           *prometheus.CounterVec // labels: result={hit,miss}

	// Time-series metrics.
	SeriesCells *prometheus.CounterVec // labels: outcome={filled,missing}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.EventsProcessed,
		m.EventsSkipped,
		m.Matches,
		m.PipelineRunning,
		m.EventProcessingDuration,
		m.FetchSlices,
		m.FetchRequestDuration,
		m.FetchCache,
		m.SeriesCells,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total catalog events run through the matcher.",
		}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Events not sent to the property service, by reason.",
		}, []string{"reason"}),
		Matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Match outcomes by method.",
		}, []string{"method"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while the pipeline is processing the catalog, 0 otherwise.",
		}),
		EventProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_processing_duration_seconds",
			Help:      "Duration of fetch, match, and series assembly for one event.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FetchSlices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_slices_total",
			Help:      "Property service slice requests by outcome.",
		}, []string{"outcome"}),
		FetchRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_request_duration_seconds",
			Help:      "Property service request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Fetch cache lookups by result.",
		}, []string{"result"}),
		SeriesCells: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_cells_total",
			Help:      "Time-series property cells by outcome.",
		}, []string{"outcome"}),
	}
}
