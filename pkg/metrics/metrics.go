package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Business metrics
	LeadsFetched      *prometheus.CounterVec
	FetchFailures     prometheus.Counter
	MutationsApplied  *prometheus.CounterVec
	MutationsOrphaned *prometheus.CounterVec
	ExportsCreated    *prometheus.CounterVec

	// Store metrics
	StoreReadDuration *prometheus.HistogramVec
	SessionLeads      prometheus.Gauge

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets, // 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Business metrics
		LeadsFetched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leads_fetched_total",
				Help: "Total number of leads fetched from the store",
			},
			[]string{"collection"},
		),
		FetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lead_fetch_failures_total",
			Help: "Total number of fetches that exhausted every candidate collection",
		}),
		MutationsApplied: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_mutations_applied_total",
				Help: "Total number of lead mutations persisted remotely",
			},
			[]string{"kind"}, // status, delete
		),
		MutationsOrphaned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lead_mutations_orphaned_total",
				Help: "Total number of lead mutations that could not be persisted anywhere",
			},
			[]string{"kind"},
		),
		ExportsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "exports_created_total",
				Help: "Total number of exports generated",
			},
			[]string{"view", "format"}, // dashboard/pipeline/companion, csv/excel
		),

		// Store metrics
		StoreReadDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_read_duration_seconds",
				Help:    "Candidate collection read duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"collection", "ordered"},
		),
		SessionLeads: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "session_leads",
			Help: "Number of leads in the current session list",
		}),

		// Cache metrics
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"}, // redis, memory
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
	}

	return m
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // Use route pattern, not actual path (e.g., /api/v1/leads/:id)

			// Measure request size
			if req.ContentLength > 0 {
				m.HTTPRequestSize.WithLabelValues(req.Method, path).Observe(float64(req.ContentLength))
			}

			// Call next handler
			err := next(c)

			// Record metrics
			status := c.Response().Status
			duration := time.Since(start).Seconds()

			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, strconv.Itoa(status)).Observe(duration)
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// RecordLeadsFetched increments the fetched counter and updates the
// session gauge after a successful fetch.
func (m *Metrics) RecordLeadsFetched(collection string, count int) {
	m.LeadsFetched.WithLabelValues(collection).Add(float64(count))
	m.SessionLeads.Set(float64(count))
}

// RecordFetchFailure increments the exhausted-fetch counter
func (m *Metrics) RecordFetchFailure() {
	m.FetchFailures.Inc()
}

// RecordMutation records the outcome of a background persistence attempt
func (m *Metrics) RecordMutation(kind string, persisted bool) {
	if persisted {
		m.MutationsApplied.WithLabelValues(kind).Inc()
		return
	}
	m.MutationsOrphaned.WithLabelValues(kind).Inc()
}

// RecordExportCreated increments exports created counter
func (m *Metrics) RecordExportCreated(view, format string) {
	m.ExportsCreated.WithLabelValues(view, format).Inc()
}

// RecordStoreRead records a candidate collection read duration
func (m *Metrics) RecordStoreRead(collection string, ordered bool, duration time.Duration) {
	m.StoreReadDuration.WithLabelValues(collection, strconv.FormatBool(ordered)).Observe(duration.Seconds())
}

// RecordCacheHit increments cache hits counter
func (m *Metrics) RecordCacheHit(cacheType string) {
	m.CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss increments cache misses counter
func (m *Metrics) RecordCacheMiss(cacheType string) {
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}
