// Package metrics defines the Prometheus collectors used by the quote
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         *prometheus.HistogramVec
	QueryResultsCount    prometheus.Histogram
	DanglingRefsTotal    prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	DocsLoaded           prometheus.Gauge
	RecordsRejectedTotal *prometheus.CounterVec
	LoadsTotal           *prometheus.CounterVec
	LoadDuration         prometheus.Histogram
	LifecycleState       *prometheus.GaugeVec
	CircuitBreakerState  *prometheus.GaugeVec
	WebsocketClients     prometheus.Gauge
}

// New creates all metrics and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
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
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_queries_total",
				Help: "Total quote queries by mode (recent, search) and outcome (hit, zero_result, error, not_ready).",
			},
			[]string{"mode", "outcome"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quote_query_latency_seconds",
				Help:    "Quote query latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		QueryResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quote_query_results_count",
				Help:    "Number of quotes returned per query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		DanglingRefsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "quote_dangling_refs_total",
				Help: "Index hits that did not resolve to a stored quote.",
			},
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
		DocsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "quote_documents_loaded",
				Help: "Number of quotes in the installed snapshot.",
			},
		),
		RecordsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_records_rejected_total",
				Help: "Raw records rejected at the load boundary by reason.",
			},
			[]string{"reason"},
		),
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quote_loads_total",
				Help: "Load attempts by status (installed, stale, failed).",
			},
			[]string{"status"},
		),
		LoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quote_load_duration_seconds",
				Help:    "Time to fetch, validate and index a quote collection.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		),
		LifecycleState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quote_lifecycle_state",
				Help: "1 for the current lifecycle state, 0 for the others.",
			},
			[]string{"state"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		WebsocketClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "websocket_clients",
				Help: "Number of connected result-view websocket clients.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.DanglingRefsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsLoaded,
		m.RecordsRejectedTotal,
		m.LoadsTotal,
		m.LoadDuration,
		m.LifecycleState,
		m.CircuitBreakerState,
		m.WebsocketClients,
	)

	return m
}

// SetLifecycleState flips the state gauge so exactly one label reads 1.
func (m *Metrics) SetLifecycleState(current string, all []string) {
	for _, s := range all {
		if s == current {
			m.LifecycleState.WithLabelValues(s).Set(1)
		} else {
			m.LifecycleState.WithLabelValues(s).Set(0)
		}
	}
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
