package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles prometheus collectors for the service.
type Metrics struct {
	registry     *prometheus.Registry
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	issueOps     *prometheus.CounterVec
	domainErrors *prometheus.CounterVec
}

// NewMetrics initializes and registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
			[]string{"path", "method", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Latency of HTTP requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		issueOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "issue_operations_total", Help: "Count of issue lifecycle operations"},
			[]string{"op", "outcome"},
		),
		domainErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "domain_errors_total", Help: "Count of domain errors by code"},
			[]string{"code"},
		),
	}
	m.registry.MustRegister(
		m.httpRequests,
		m.httpLatency,
		m.issueOps,
		m.domainErrors,
		collectors.NewGoCollector(),
	)
	return m
}

// RecordRequest increments request counters and observes latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordIssueOp counts a lifecycle operation attempt by outcome.
func (m *Metrics) RecordIssueOp(op, outcome string) {
	if m == nil {
		return
	}
	m.issueOps.WithLabelValues(op, outcome).Inc()
}

// RecordError counts a domain error by stable code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.domainErrors.WithLabelValues(code).Inc()
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
