package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the heatwatch
// real-time and batch paths.
type Metrics struct {
	// Real-time fetch metrics.
	WeatherRequests *prometheus.CounterVec // labels: outcome={success,error}
	CacheLookups    *prometheus.CounterVec // labels: result={hit,miss,expired}
	FetchDuration   prometheus.Histogram

	// Batch pipeline metrics.
	ReportRuns        *prometheus.CounterVec // labels: outcome={success,error,degenerate}
	PipelineDuration  prometheus.Histogram
	AssessmentsServed prometheus.Counter
}

// NewMetrics creates and registers all heatwatch metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.WeatherRequests,
		m.CacheLookups,
		m.FetchDuration,
		m.ReportRuns,
		m.PipelineDuration,
		m.AssessmentsServed,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		WeatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatwatch",
			Name:      "weather_requests_total",
			Help:      "Upstream weather source calls by outcome.",
		}, []string{"outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatwatch",
			Name:      "temperature_cache_lookups_total",
			Help:      "Temperature cache lookups by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heatwatch",
			Name:      "fetch_cycle_duration_seconds",
			Help:      "Duration of a complete deduplicated fetch cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ReportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "heatwatch",
			Name:      "report_runs_total",
			Help:      "Batch report pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heatwatch",
			Name:      "report_pipeline_duration_seconds",
			Help:      "Duration of a complete batch report pipeline run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AssessmentsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heatwatch",
			Name:      "assessments_served_total",
			Help:      "Per-unit risk assessments computed on the real-time path.",
		}),
	}
}
