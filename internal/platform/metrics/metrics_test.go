package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vctodwn/pkg/platform/circuit"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveHTTPRequest(http.MethodGet, "/authorize", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/authorize", http.StatusOK, 10*time.Millisecond)
	m.ObserveReconcile("installed")
	m.BreakerStateChanged("https://dwn.example", circuit.StateOpen)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/authorize", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProtocolReconciles.WithLabelValues("installed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteCircuitOpen.WithLabelValues("https://dwn.example")))

	m.BreakerStateChanged("https://dwn.example", circuit.StateClosed)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RemoteCircuitOpen.WithLabelValues("https://dwn.example")))
}

func TestMetrics_InstancesDoNotCollide(t *testing.T) {
	require.NotPanics(t, func() {
		New()
		New()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveReconcile("already_installed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vctodwn_protocol_reconciles_total{outcome="already_installed"} 1`)
}
