package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks payment flows end to end.
type Metrics struct {
	Requested     *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	GatewayErrors *prometheus.CounterVec
	Activations   *prometheus.CounterVec
	PollsPending  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requested: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docufind_payments_requested_total",
			Help: "Request-to-pay calls accepted by the gateway",
		}, []string{"purpose"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docufind_payment_transitions_total",
			Help: "Payments reaching a terminal status",
		}, []string{"purpose", "status"}),
		GatewayErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docufind_payment_gateway_errors_total",
			Help: "Gateway failures by operation and category",
		}, []string{"op", "category"}),
		Activations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docufind_payment_activations_total",
			Help: "Grants and premium windows opened by successful payments",
		}, []string{"purpose"}),
		PollsPending: f.NewCounter(prometheus.CounterOpts{
			Name: "docufind_payment_polls_pending_total",
			Help: "Status checks that found the payment still pending",
		}),
	}
}

func (m *Metrics) IncRequested(purpose string) {
	if m == nil {
		return
	}
	m.Requested.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncTransition(purpose, status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(purpose, status).Inc()
}

func (m *Metrics) IncGatewayError(op, category string) {
	if m == nil {
		return
	}
	m.GatewayErrors.WithLabelValues(op, category).Inc()
}

func (m *Metrics) IncActivation(purpose string) {
	if m == nil {
		return
	}
	m.Activations.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncPending() {
	if m == nil {
		return
	}
	m.PollsPending.Inc()
}
