package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Registrations prometheus.Counter
	Logins        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_user_registrations_total",
			Help: "Accounts registered",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_user_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementRegistrations() {
	if m == nil {
		return
	}
	m.Registrations.Inc()
}

func (m *Metrics) IncrementLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}
