// Package metrics owns the Prometheus registry and the process wide metrics.
// Domain packages register their own collectors against Registerer().
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vctodwn/pkg/platform/circuit"
)

// Metrics holds the registry and the HTTP, reconciliation and remote metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPLatency        *prometheus.HistogramVec
	ProtocolReconciles *prometheus.CounterVec
	RemoteCircuitOpen  *prometheus.GaugeVec
}

// New creates a fresh registry so tests never collide on global registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vctodwn_http_requests_total",
			Help: "Total HTTP requests, labeled by method, route and status code",
		}, []string{"method", "route", "status"}),
		HTTPLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vctodwn_http_request_duration_seconds",
			Help:    "Latency of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ProtocolReconciles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vctodwn_protocol_reconciles_total",
			Help: "Startup protocol reconciliations, labeled by outcome",
		}, []string{"outcome"}),
		RemoteCircuitOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vctodwn_remote_circuit_open",
			Help: "1 while the circuit to a remote DWN endpoint is open",
		}, []string{"endpoint"}),
	}
}

// Registerer is where domain packages register their collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.registry
}

// Gatherer exposes the registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveReconcile records a protocol reconciliation outcome.
func (m *Metrics) ObserveReconcile(outcome string) {
	m.ProtocolReconciles.WithLabelValues(outcome).Inc()
}

// BreakerStateChanged tracks remote endpoint circuits.
func (m *Metrics) BreakerStateChanged(endpoint string, state circuit.State) {
	value := 0.0
	if state == circuit.StateOpen {
		value = 1
	}
	m.RemoteCircuitOpen.WithLabelValues(endpoint).Set(value)
}
