package matching

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts matching runs and the notifications they produce.
type Metrics struct {
	Candidates    prometheus.Counter
	Notifications *prometheus.CounterVec
	RunDuration   prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Candidates: f.NewCounter(prometheus.CounterOpts{
			Name: "docufind_match_candidates_total",
			Help: "Records paired with a newly created record",
		}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docufind_match_notifications_total",
			Help: "Match notifications by outcome",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "docufind_match_run_duration_seconds",
			Help:    "Time spent matching one record",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) candidates(n int) {
	if m == nil {
		return
	}
	m.Candidates.Add(float64(n))
}

func (m *Metrics) notification(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeRun(seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(seconds)
}
