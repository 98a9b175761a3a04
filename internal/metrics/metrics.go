// Package metrics exposes authentication counters and latencies in the
// Prometheus format on a registry owned by the process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	RateLimitedTotal  prometheus.Counter
}

// New creates a registry with the Go and process collectors plus the
// authentication metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authsvc_operations_total",
				Help: "Total number of authentication operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "authsvc_operation_duration_seconds",
				Help:    "Duration of authentication operations; dominated by password hashing for register and login",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "authsvc_login_rate_limited_total",
				Help: "Total number of login attempts rejected by the rate limiter",
			},
		),
	}

	registry.MustRegister(m.OperationsTotal, m.OperationDuration, m.RateLimitedTotal)
	return m
}

// ObserveOperation records one completed operation.
func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordRateLimited counts a login rejected before reaching the service.
func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
