// Package metrics exports Prometheus collectors for the store, the async
// coordinator, the session state machine and the REST server.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/chefconnect/internal/debounce"
	"github.com/roach88/chefconnect/internal/kv"
	"github.com/roach88/chefconnect/internal/server"
	"github.com/roach88/chefconnect/internal/session"
)

const namespace = "chefconnect"

// Metrics holds every collector. It satisfies the observer interface of
// each instrumented component.
type Metrics struct {
	storeOps        *prometheus.CounterVec
	quotaRecoveries *prometheus.CounterVec
	quotaPurged     prometheus.Counter
	staleResponses  *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	authenticated   prometheus.Gauge
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

var (
	_ kv.Observer                = (*Metrics)(nil)
	_ debounce.Observer          = (*Metrics)(nil)
	_ session.TransitionObserver = (*Metrics)(nil)
	_ server.RequestObserver     = (*Metrics)(nil)
)

// New registers the collectors with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		storeOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Key-value store operations by kind and outcome.",
		}, []string{"op", "result"}),
		quotaRecoveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "quota_recoveries_total",
			Help:      "Quota-exceeded writes retried after purging expired entries.",
		}, []string{"result"}),
		quotaPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "quota_purged_entries_total",
			Help:      "Expired entries removed while recovering from a full store.",
		}),
		staleResponses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "async",
			Name:      "stale_responses_total",
			Help:      "Async results discarded because a newer request superseded them.",
		}, []string{"stream"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions.",
		}, []string{"from", "to"}),
		authenticated: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "authenticated",
			Help:      "1 while a user is signed in.",
		}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Served REST requests.",
		}, []string{"method", "route", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "REST request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// ObserveOp counts one store operation.
func (m *Metrics) ObserveOp(op string, ok bool) {
	m.storeOps.WithLabelValues(op, result(ok)).Inc()
}

// ObserveQuotaRecovery counts one quota recovery attempt.
func (m *Metrics) ObserveQuotaRecovery(purged int, ok bool) {
	m.quotaRecoveries.WithLabelValues(result(ok)).Inc()
	m.quotaPurged.Add(float64(purged))
}

// ObserveStale counts a discarded async result.
func (m *Metrics) ObserveStale(stream string) {
	m.staleResponses.WithLabelValues(stream).Inc()
}

// ObserveTransition counts a session transition.
func (m *Metrics) ObserveTransition(from, to session.State) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	if to == session.Authenticated {
		m.authenticated.Set(1)
	} else if from == session.Authenticated {
		m.authenticated.Set(0)
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
