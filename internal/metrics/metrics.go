package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/scimma/lsst-quality-filter/internal/engine"
)

type FilterMetrics struct {
	Runs            *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
	HTTPRequestTime *prometheus.HistogramVec
}

// NewFilterMetrics creates the filter collectors and registers them with reg.
func NewFilterMetrics(reg prometheus.Registerer) *FilterMetrics {
	m := &FilterMetrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quality_filter_runs_total",
			Help: "Filter runs by outcome (passed, rejected, error).",
		}, []string{"outcome"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quality_filter_rejections_total",
			Help: "Rejected loci by the check that rejected them.",
		}, []string{"check"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quality_filter_run_seconds",
			Help:    "Time spent evaluating a single locus.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(m.Runs, m.Rejections, m.RunDuration, m.HTTPRequests, m.HTTPRequestTime)
	return m
}

// ObserveRun implements engine.MetricsRecorder.
func (m *FilterMetrics) ObserveRun(report *engine.Report) {
	switch {
	case report.Error != "":
		m.Runs.WithLabelValues("error").Inc()
	case report.Passed:
		m.Runs.WithLabelValues("passed").Inc()
	default:
		m.Runs.WithLabelValues("rejected").Inc()
		m.Rejections.WithLabelValues(string(report.Check)).Inc()
	}
	m.RunDuration.Observe(report.Duration.Seconds())
}
