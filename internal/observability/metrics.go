package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkedin_optimizer"

// Metrics holds the Prometheus collectors for pipeline runs.
// Each Metrics owns its registry so tests and servers do not share state.
type Metrics struct {
	registry      *prometheus.Registry
	stageTotal    *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	runTotal      *prometheus.CounterVec
	runDuration   prometheus.Histogram
	httpRequests  *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_total",
			Help:      "Completed stage executions by outcome.",
		}, []string{"stage", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Stage latency including the completion call.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 120},
		}, []string{"stage"}),
		runTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end pipeline latency.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.stageTotal,
		m.stageDuration,
		m.runTotal,
		m.runDuration,
		m.httpRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveStage records one stage outcome.
func (m *Metrics) ObserveStage(stage, outcome string, duration time.Duration) {
	m.stageTotal.WithLabelValues(stage, outcome).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRun records one pipeline outcome.
func (m *Metrics) ObserveRun(outcome string, duration time.Duration) {
	m.runTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
