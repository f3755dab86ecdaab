package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redemption outcomes used as the "outcome" label.
const (
	OutcomeOK        = "ok"
	OutcomeNotFound  = "not_found"
	OutcomeExpired   = "expired"
	OutcomeUsed      = "already_used"
	OutcomeForbidden = "forbidden"
	OutcomeError     = "error"
)

// Metrics counts token lifecycle events by purpose.
type Metrics struct {
	Issued   *prometheus.CounterVec
	Redeemed *prometheus.CounterVec
	Purged   prometheus.Counter
}

// New creates and registers token metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docufind_tokens_issued_total",
			Help: "Verification tokens issued by purpose",
		}, []string{"purpose"}),
		Redeemed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docufind_tokens_redeemed_total",
			Help: "Token redemption attempts by purpose and outcome",
		}, []string{"purpose", "outcome"}),
		Purged: f.NewCounter(prometheus.CounterOpts{
			Name: "docufind_tokens_purged_total",
			Help: "Expired tokens deleted by the sweeper",
		}),
	}
}

func (m *Metrics) IncIssued(purpose string) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncRedeemed(purpose, outcome string) {
	if m == nil {
		return
	}
	m.Redeemed.WithLabelValues(purpose, outcome).Inc()
}

func (m *Metrics) AddPurged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Purged.Add(float64(n))
}
