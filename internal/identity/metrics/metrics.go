package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts credential outcomes and times revocation lookups.
type Metrics struct {
	AuthFailures            *prometheus.CounterVec
	RevocationCheckDuration prometheus.Histogram
	TokensRevoked           prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_auth_failures_total",
			Help: "Rejected bearer credentials by error code",
		}, []string{"code"}),
		RevocationCheckDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskflow_token_revocation_check_duration_ms",
			Help:    "Latency of token revocation checks in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}),
		TokensRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_tokens_revoked_total",
			Help: "Tokens revoked by logout",
		}),
	}
}

func (m *Metrics) IncrementAuthFailure(code string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) ObserveRevocationCheck(start time.Time) {
	if m == nil {
		return
	}
	m.RevocationCheckDuration.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}

func (m *Metrics) IncrementTokensRevoked() {
	if m == nil {
		return
	}
	m.TokensRevoked.Inc()
}
