package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/chefconnect/internal/session"
)

func newMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func TestStoreOps(t *testing.T) {
	m, _ := newMetrics(t)
	m.ObserveOp("set", true)
	m.ObserveOp("set", true)
	m.ObserveOp("set", false)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.storeOps.WithLabelValues("set", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.storeOps.WithLabelValues("set", "error")))
}

func TestQuotaRecovery(t *testing.T) {
	m, _ := newMetrics(t)
	m.ObserveQuotaRecovery(3, true)
	m.ObserveQuotaRecovery(0, false)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.quotaRecoveries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.quotaRecoveries.WithLabelValues("error")))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.quotaPurged))
}

func TestStale(t *testing.T) {
	m, _ := newMetrics(t)
	m.ObserveStale("search")
	assert.Equal(t, 1.0, promtest.ToFloat64(m.staleResponses.WithLabelValues("search")))
}

func TestTransitions(t *testing.T) {
	m, _ := newMetrics(t)
	m.ObserveTransition(session.Anonymous, session.Authenticating)
	m.ObserveTransition(session.Authenticating, session.Authenticated)
	assert.Equal(t, 1.0, promtest.ToFloat64(m.authenticated))

	m.ObserveTransition(session.Authenticated, session.Anonymous)
	assert.Equal(t, 0.0, promtest.ToFloat64(m.authenticated))
	assert.Equal(t, 1.0, promtest.ToFloat64(
		m.transitions.WithLabelValues(session.Authenticated.String(), session.Anonymous.String())))
}

func TestRequests(t *testing.T) {
	m, reg := newMetrics(t)
	m.ObserveRequest(http.MethodGet, "/api/recipes/{id}", 200, 20*time.Millisecond)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.requests.WithLabelValues("GET", "/api/recipes/{id}", "200")))
	n, err := promtest.GatherAndCount(reg, "chefconnect_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
