// Package observability exposes Prometheus collectors for the workflow
// service. One Metrics value is shared by the admission gate, the
// notification fan-out, and the HTTP layer so that everything lands in a
// single registry behind /metrics.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/artpromedia/aivo-v5-sub002/internal/domain/tenant"
)

// Metrics bundles all collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	reservationsDenied *prometheus.CounterVec
	nearLimit          *prometheus.CounterVec
	fanoutFailures     *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	m := &Metrics{
		registry: registry,

		reservationsDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutoring",
			Subsystem: "admission",
			Name:      "reservations_denied_total",
			Help:      "Usage reservations denied because a tenant limit was reached.",
		}, []string{"tenant_id", "metric"}),

		nearLimit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutoring",
			Subsystem: "admission",
			Name:      "near_limit_total",
			Help:      "Reservations that landed at or above the near-limit threshold.",
		}, []string{"tenant_id", "metric"}),

		fanoutFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutoring",
			Subsystem: "fanout",
			Name:      "failures_total",
			Help:      "Caregiver notification fan-outs that failed and were degraded.",
		}, []string{"tenant_id"}),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutoring",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "method", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tutoring",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tutoring",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}

	registry.MustRegister(
		m.reservationsDenied,
		m.nearLimit,
		m.fanoutFailures,
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
	)

	return m
}

// ReservationDenied implements admission.Metrics.
func (m *Metrics) ReservationDenied(tenantID string, metric tenant.Metric) {
	m.reservationsDenied.WithLabelValues(tenantID, string(metric)).Inc()
}

// NearLimit implements admission.Metrics.
func (m *Metrics) NearLimit(tenantID string, metric tenant.Metric) {
	m.nearLimit.WithLabelValues(tenantID, string(metric)).Inc()
}

// FanoutFailed implements fanout.Metrics.
func (m *Metrics) FanoutFailed(tenantID string) {
	m.fanoutFailures.WithLabelValues(tenantID).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// RequestStarted marks a request in flight and returns the completion func.
func (m *Metrics) RequestStarted() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// Handler returns the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
