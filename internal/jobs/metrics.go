package jobs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks job throughput per kind.
type Metrics struct {
	Processed *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Processed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "docufind_jobs_processed_total",
			Help: "Background jobs processed by kind and outcome",
		}, []string{"kind", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docufind_job_duration_seconds",
			Help:    "Background job handling time",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(kind Kind, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Processed.WithLabelValues(string(kind), outcome).Inc()
	m.Duration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}
