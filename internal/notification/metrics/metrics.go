package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification module.
type Metrics struct {
	Created        prometheus.Counter
	MarkedRead     prometheus.Counter
	Deleted        *prometheus.CounterVec
	PublishFailure prometheus.Counter
}

// New registers the notification module metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Created: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_notifications_created_total",
			Help: "Total number of notifications created",
		}),
		MarkedRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_notifications_marked_read_total",
			Help: "Notifications moved from unread to read",
		}),
		Deleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_notifications_deleted_total",
			Help: "Notifications deleted, by reason",
		}, []string{"reason"}),
		PublishFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_notification_publish_failures_total",
			Help: "Notification events that could not be delivered to the broker",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.Created.Inc()
}

func (m *Metrics) AddMarkedRead(n int) {
	if m == nil {
		return
	}
	m.MarkedRead.Add(float64(n))
}

// AddDeleted records n deletions. reason is one of "recipient", "clear_read", "task_cascade".
func (m *Metrics) AddDeleted(reason string, n int) {
	if m == nil {
		return
	}
	m.Deleted.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) IncrementPublishFailure() {
	if m == nil {
		return
	}
	m.PublishFailure.Inc()
}
