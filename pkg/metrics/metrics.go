// Package metrics defines the Prometheus collectors of the searcher and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the searcher.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	PostingLookupsTotal  *prometheus.CounterVec
	PostingBytesRead     *prometheus.CounterVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	IndexedTerms         *prometheus.GaugeVec
	CircuitBreakerState  *prometheus.GaugeVec
	AnalyticsDropped     prometheus.Counter
}

// New creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by endpoint and result type (ok, zero_result, empty_query).",
			},
			[]string{"endpoint", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search latency in seconds by endpoint and cache status.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint", "cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 1000, 10000, 100000},
			},
			[]string{"endpoint"},
		),
		PostingLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posting_lookups_total",
				Help: "Posting list lookups by field and outcome (found, not_found, corrupt).",
			},
			[]string{"field", "outcome"},
		),
		PostingBytesRead: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posting_bytes_read_total",
				Help: "Bytes read from posting shards by field.",
			},
			[]string{"field"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses.",
			},
		),
		IndexedTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of terms in each loaded field dictionary.",
			},
			[]string{"field"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		AnalyticsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Search events dropped because the analytics buffer was full.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.PostingLookupsTotal,
		m.PostingBytesRead,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexedTerms,
		m.CircuitBreakerState,
		m.AnalyticsDropped,
	)

	return m
}

// ObservePostingLookup records one posting list read.
func (m *Metrics) ObservePostingLookup(field string, outcome string, bytesRead int) {
	m.PostingLookupsTotal.WithLabelValues(field, outcome).Inc()
	if bytesRead > 0 {
		m.PostingBytesRead.WithLabelValues(field).Add(float64(bytesRead))
	}
}

// ObserveSearch records one answered query. resultType is "ok",
// "zero_result" or "empty_query".
func (m *Metrics) ObserveSearch(endpoint, resultType string, cacheHit bool, returned int, elapsed time.Duration) {
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		m.CacheHitsTotal.Inc()
	} else {
		m.CacheMissesTotal.Inc()
	}
	m.SearchQueriesTotal.WithLabelValues(endpoint, resultType).Inc()
	m.SearchLatency.WithLabelValues(endpoint, cacheStatus).Observe(elapsed.Seconds())
	m.SearchResultsCount.WithLabelValues(endpoint).Observe(float64(returned))
}

// SetBreakerState exports a circuit breaker state as its numeric value.
func (m *Metrics) SetBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
