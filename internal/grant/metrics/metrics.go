package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for grant operations.
type Metrics struct {
	GrantsIssued      prometheus.Counter
	GrantsExisting    prometheus.Counter
	GrantsFailed      *prometheus.CounterVec
	AuthorizeDuration prometheus.Histogram
}

// New registers grant collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GrantsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "vctodwn_grants_issued_total",
			Help: "Role grants created for new issuers",
		}),
		GrantsExisting: factory.NewCounter(prometheus.CounterOpts{
			Name: "vctodwn_grants_existing_total",
			Help: "Authorization requests answered by an existing grant",
		}),
		GrantsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vctodwn_grants_failed_total",
			Help: "Failed authorization requests, labeled by the failing stage",
		}, []string{"stage"}),
		AuthorizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vctodwn_authorize_duration_seconds",
			Help:    "Time to authorize an issuer, including lock wait",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	m.GrantsIssued.Inc()
}

func (m *Metrics) IncrementExisting() {
	m.GrantsExisting.Inc()
}

func (m *Metrics) IncrementFailed(stage string) {
	m.GrantsFailed.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveAuthorize(d time.Duration) {
	m.AuthorizeDuration.Observe(d.Seconds())
}
