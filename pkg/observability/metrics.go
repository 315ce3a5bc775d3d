package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes used as metric labels.
const (
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomeSuperseded = "superseded"
	OutcomeSkipped    = "skipped"
	OutcomeEmpty      = "empty"
)

// Recorder is the metrics sink shared by the explorer components.
type Recorder interface {
	HTTPRequest(method, route string, status int, duration time.Duration)
	GraphQuery(operation string, duration time.Duration, err error)
	Lookup(field, outcome string, duration time.Duration)
	Render(outcome string, recordCount int, duration time.Duration)
	CacheAccess(name string, hit bool)
	ViewsOpen(n int)
}

// Outcome maps an error to a metric label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Graph database metrics
	GraphQueries  *prometheus.CounterVec
	GraphDuration *prometheus.HistogramVec

	// Interaction metrics
	Lookups        *prometheus.CounterVec
	LookupDuration *prometheus.HistogramVec
	Renders        *prometheus.CounterVec
	RenderDuration prometheus.Histogram
	RenderRecords  prometheus.Histogram
	ViewsOpenGauge prometheus.Gauge

	// Cache metrics
	CacheAccesses *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		GraphQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_queries_total",
				Help:      "Total number of graph database queries",
			},
			[]string{"operation", "status"},
		),
		GraphDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_query_duration_seconds",
				Help:      "Graph database query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "autocomplete_lookups_total",
				Help:      "Autocomplete lookups by field and outcome",
			},
			[]string{"field", "outcome"},
		),
		LookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "autocomplete_lookup_duration_seconds",
				Help:      "Autocomplete lookup duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"field"},
		),
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Renders by outcome",
			},
			[]string{"outcome"},
		),
		RenderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Render duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		RenderRecords: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_records",
				Help:      "Records returned per successful render",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		ViewsOpenGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "views_open",
				Help:      "Number of open views",
			},
		),
		CacheAccesses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_accesses_total",
				Help:      "Cache accesses by cache and result",
			},
			[]string{"cache", "result"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.GraphQueries,
		c.GraphDuration,
		c.Lookups,
		c.LookupDuration,
		c.Renders,
		c.RenderDuration,
		c.RenderRecords,
		c.ViewsOpenGauge,
		c.CacheAccesses,
	)

	return c
}

// HTTPRequest records a served request.
func (c *Collector) HTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// GraphQuery records a graph database call.
func (c *Collector) GraphQuery(operation string, duration time.Duration, err error) {
	c.GraphQueries.WithLabelValues(operation, Outcome(err)).Inc()
	c.GraphDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Lookup records an autocomplete lookup.
func (c *Collector) Lookup(field, outcome string, duration time.Duration) {
	c.Lookups.WithLabelValues(field, outcome).Inc()
	if outcome != OutcomeSkipped {
		c.LookupDuration.WithLabelValues(field).Observe(duration.Seconds())
	}
}

// Render records a finished render.
func (c *Collector) Render(outcome string, recordCount int, duration time.Duration) {
	c.Renders.WithLabelValues(outcome).Inc()
	c.RenderDuration.Observe(duration.Seconds())
	if outcome == OutcomeSuccess || outcome == OutcomeEmpty {
		c.RenderRecords.Observe(float64(recordCount))
	}
}

// CacheAccess records a cache hit or miss.
func (c *Collector) CacheAccess(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheAccesses.WithLabelValues(name, result).Inc()
}

// ViewsOpen sets the open view gauge.
func (c *Collector) ViewsOpen(n int) {
	c.ViewsOpenGauge.Set(float64(n))
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// NopRecorder discards every measurement.
type NopRecorder struct{}

func (NopRecorder) HTTPRequest(string, string, int, time.Duration) {}
func (NopRecorder) GraphQuery(string, time.Duration, error)        {}
func (NopRecorder) Lookup(string, string, time.Duration)           {}
func (NopRecorder) Render(string, int, time.Duration)              {}
func (NopRecorder) CacheAccess(string, bool)                       {}
func (NopRecorder) ViewsOpen(int)                                  {}
