package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "notify_client"

// Metrics groups the collectors updated by the push, gateway and store
// packages. A nil *Metrics is valid and records nothing.
type Metrics struct {
	pushMessages      *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	connectionState   prometheus.Gauge
	mutationFailures  *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	alertsDispatched  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		pushMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_messages_total",
			Help:      "Messages received on the push channel by result",
		}, []string{"result"}),
		reconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Reconnection attempts scheduled after a channel closure",
		}),
		connectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Push channel state: 0 disconnected, 1 connecting, 2 connected",
		}),
		mutationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutation_failures_total",
			Help:      "Failed mutation confirmations by operation",
		}, []string{"operation"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "REST gateway request latency by operation and outcome",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"}),
		alertsDispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_dispatched_total",
			Help:      "Toast alerts dispatched for unread pushes",
		}),
	}
}

// Default registers on the process-wide prometheus registry.
func Default() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

func (m *Metrics) PushApplied() {
	if m == nil {
		return
	}
	m.pushMessages.WithLabelValues("applied").Inc()
}

func (m *Metrics) PushMalformed() {
	if m == nil {
		return
	}
	m.pushMessages.WithLabelValues("malformed").Inc()
}

func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}

func (m *Metrics) ConnectionState(state int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

func (m *Metrics) MutationFailed(operation string) {
	if m == nil {
		return
	}
	m.mutationFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveRequest(operation string, err error, seconds float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requestDuration.WithLabelValues(operation, outcome).Observe(seconds)
}

func (m *Metrics) AlertDispatched() {
	if m == nil {
		return
	}
	m.alertsDispatched.Inc()
}
