package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the task module.
// Tracks operation durations, best-effort notification failures, and the
// delete cascade's repair path.
type Metrics struct {
	OperationDuration    *prometheus.HistogramVec
	TasksCreated         prometheus.Counter
	NotificationFailures *prometheus.CounterVec
	CascadePending       prometheus.Counter
	CascadeRepaired      prometheus.Counter
}

// New registers the task module metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskflow_task_operation_duration_seconds",
			Help:    "Duration of task domain operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "outcome"}),
		TasksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_tasks_created_total",
			Help: "Total number of tasks created",
		}),
		NotificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_notification_failures_total",
			Help: "Assignment notifications that could not be created after the task write succeeded",
		}, []string{"operation"}),
		CascadePending: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_cascade_pending_total",
			Help: "Task deletes whose notification cleanup exhausted its retries and was recorded for repair",
		}),
		CascadeRepaired: factory.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_cascade_repaired_total",
			Help: "Pending notification cleanups completed by the reconciler",
		}),
	}
}

// ObserveOperation records the duration of a task operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.OperationDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementTasksCreated() {
	if m == nil {
		return
	}
	m.TasksCreated.Inc()
}

func (m *Metrics) IncrementNotificationFailure(operation string) {
	if m == nil {
		return
	}
	m.NotificationFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementCascadePending() {
	if m == nil {
		return
	}
	m.CascadePending.Inc()
}

func (m *Metrics) IncrementCascadeRepaired() {
	if m == nil {
		return
	}
	m.CascadeRepaired.Inc()
}
