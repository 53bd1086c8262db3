// Package metrics defines the Prometheus collectors used by the index build
// pipeline and the query engine, and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	RecordsReadTotal    prometheus.Counter
	RecordsSkippedTotal prometheus.Counter
	BlocksFlushedTotal  prometheus.Counter
	BlockFlushDuration  prometheus.Histogram
	MergeDuration       prometheus.Histogram
	BuildsTotal         *prometheus.CounterVec
	BuildDuration       prometheus.Histogram
	IndexTermCount      prometheus.Gauge
	IndexDocCount       prometheus.Gauge

	QueriesTotal      *prometheus.CounterVec
	QueryLatency      *prometheus.HistogramVec
	QueryTermsPruned  prometheus.Counter
	QueryResultsCount prometheus.Histogram
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
}

// New creates and registers all Prometheus collectors.
func New() *Metrics {
	m := &Metrics{
		RecordsReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_records_read_total",
				Help: "Total records consumed from the record source.",
			},
		),
		RecordsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_records_skipped_total",
				Help: "Total records skipped for data-quality reasons.",
			},
		),
		BlocksFlushedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "index_blocks_flushed_total",
				Help: "Total temporary blocks flushed to disk.",
			},
		),
		BlockFlushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_block_flush_duration_seconds",
				Help:    "Block sort-and-flush latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_merge_duration_seconds",
				Help:    "K-way block merge duration in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
		),
		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Total index generation builds by outcome.",
			},
			[]string{"status"},
		),
		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_build_duration_seconds",
				Help:    "End-to-end generation build duration in seconds.",
				Buckets: []float64{0.1, 0.5, 1, 5, 30, 120, 600},
			},
		),
		IndexTermCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_term_count",
				Help: "Vocabulary size of the published generation.",
			},
		),
		IndexDocCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_document_count",
				Help: "Document count of the published generation.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_query_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		QueryTermsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_query_terms_pruned_total",
				Help: "Query terms pruned for being absent from the lexicon.",
			},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_cache_hits_total",
				Help: "Total query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "search_cache_misses_total",
				Help: "Total query cache misses.",
			},
		),
	}

	prometheus.MustRegister(
		m.RecordsReadTotal,
		m.RecordsSkippedTotal,
		m.BlocksFlushedTotal,
		m.BlockFlushDuration,
		m.MergeDuration,
		m.BuildsTotal,
		m.BuildDuration,
		m.IndexTermCount,
		m.IndexDocCount,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryTermsPruned,
		m.QueryResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
