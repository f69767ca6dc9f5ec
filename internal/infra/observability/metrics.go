package observability

import (
	"time"

	"github.com/flowsight/flowsight-bfa/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Load outcomes recorded by IncrLoad.
const (
	LoadApplied    = "applied"
	LoadSuperseded = "superseded"
	LoadFailed     = "failed"
)

// Export outcomes recorded by IncrExport.
const (
	ExportOK      = "ok"
	ExportRefused = "refused"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	loads           *prometheus.CounterVec
	exports         *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flowsight_request_duration_seconds",
				Help:    "Duration of operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_external_errors_total",
				Help: "Total errors from the backend API.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		loads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_projection_loads_total",
				Help: "Projection loads by outcome.",
			},
			[]string{"status"},
		),
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowsight_csv_exports_total",
				Help: "CSV exports by outcome.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrLoad counts a projection load by outcome.
func (m *Metrics) IncrLoad(status string) {
	m.loads.WithLabelValues(status).Inc()
}

// IncrExport counts a CSV export by outcome.
func (m *Metrics) IncrExport(status string) {
	m.exports.WithLabelValues(status).Inc()
}

// Snapshot summarizes the cashflow counters for GET /v1/metrics/cashflow.
// Counters are cumulative since process start.
func (m *Metrics) Snapshot() *domain.CashflowMetrics {
	applied := getCounterValue(m.loads, LoadApplied)
	superseded := getCounterValue(m.loads, LoadSuperseded)
	failed := getCounterValue(m.loads, LoadFailed)
	hits := getCounterValue(m.cacheHits, "projection")
	misses := getCounterValue(m.cacheMisses, "projection")

	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.CashflowMetrics{
		Loads:          int64(applied + superseded + failed),
		FetchFailures:  int64(failed),
		SupersededLoad: int64(superseded),
		Exports:        int64(getCounterValue(m.exports, ExportOK)),
		RefusedExports: int64(getCounterValue(m.exports, ExportRefused)),
		CacheHitRate:   hitRate,
		Period:         "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
