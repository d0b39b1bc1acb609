// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Batch metrics
	InstrumentsEvaluated prometheus.Counter
	InstrumentsSkipped   prometheus.Counter
	InstrumentsTimedOut  prometheus.Counter
	InstrumentErrors     *prometheus.CounterVec
	BatchDuration        prometheus.Histogram
	InstrumentDuration   prometheus.Histogram

	// Curve / metrics metrics
	CurvesBuilt      *prometheus.CounterVec
	MetricsComputed  *prometheus.CounterVec
	RegressionsRun   *prometheus.CounterVec
	ReportsGenerated prometheus.Counter

	// Optimizer metrics
	OptimizerTrials   *prometheus.CounterVec
	OptimizerBestGain prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "portfolio_lab"
	}

	return &Metrics{
		// Batch metrics
		InstrumentsEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "instruments_evaluated_total",
			Help:      "Total number of instruments fully evaluated",
		}),
		InstrumentsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "instruments_skipped_total",
			Help:      "Total number of instruments skipped via checkpoint resume",
		}),
		InstrumentsTimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "instruments_timed_out_total",
			Help:      "Total number of instruments dropped by the per-instrument deadline",
		}),
		InstrumentErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "instrument_errors_total",
			Help:      "Total number of instrument evaluation errors by type",
		}, []string{"error_type"}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Batch run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		InstrumentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "instrument_duration_seconds",
			Help:      "Per-instrument evaluation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Curve / metrics metrics
		CurvesBuilt: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "curves_built_total",
			Help:      "Total number of portfolio curves built by window",
		}, []string{"window"}),
		MetricsComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "metrics_computed_total",
			Help:      "Total number of metric records computed by window",
		}, []string{"window"}),
		RegressionsRun: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "regressions_run_total",
			Help:      "Total number of benchmark regressions by status",
		}, []string{"status"}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of report file sets generated",
		}),

		// Optimizer metrics
		OptimizerTrials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "trials_total",
			Help:      "Total number of optimizer trials by status",
		}, []string{"status"}),
		OptimizerBestGain: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "best_score",
			Help:      "Best score found by the most recent optimizer run",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
