package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nadlan"

// Fetch outcomes
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so components can be built without instrumentation in tests.
type Metrics struct {
	registry *prometheus.Registry

	sourceFetches  *prometheus.CounterVec
	sourceRecords  *prometheus.CounterVec
	sourceDuration *prometheus.HistogramVec
	droppedRecords *prometheus.CounterVec
	fallbacks      prometheus.Counter
	searchDuration *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		sourceFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "fetches_total",
				Help:      "Source fetches by outcome.",
			},
			[]string{"source", "outcome"},
		),
		sourceRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "records_total",
				Help:      "Normalized records returned by each source.",
			},
			[]string{"source"},
		),
		sourceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of source fetches.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{"source"},
		),
		droppedRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "source",
				Name:      "dropped_records_total",
				Help:      "Raw records rejected during normalization.",
			},
			[]string{"source"},
		),
		fallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "fallbacks_total",
				Help:      "Searches answered with synthesized data.",
			},
		),
		searchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "search",
				Name:      "duration_seconds",
				Help:      "Duration of aggregated searches.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"synthetic"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Search cache lookups by result.",
			},
			[]string{"result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.sourceFetches,
		m.sourceRecords,
		m.sourceDuration,
		m.droppedRecords,
		m.fallbacks,
		m.searchDuration,
		m.cacheLookups,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records the outcome of one source fetch
func (m *Metrics) ObserveFetch(source, outcome string, records int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.sourceFetches.WithLabelValues(source, outcome).Inc()
	m.sourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if records > 0 {
		m.sourceRecords.WithLabelValues(source).Add(float64(records))
	}
}

// ObserveDropped counts raw records rejected by a source normalizer
func (m *Metrics) ObserveDropped(source string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.droppedRecords.WithLabelValues(source).Add(float64(count))
}

// ObserveSearch records a finished search
func (m *Metrics) ObserveSearch(synthetic bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	if synthetic {
		m.fallbacks.Inc()
	}
	m.searchDuration.WithLabelValues(strconv.FormatBool(synthetic)).Observe(elapsed.Seconds())
}

// ObserveCache records a cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// GinMiddleware collects request counts and latencies per route
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
