// Package cascade owns the second phase of a task delete: removing the
// notifications that reference the deleted task.
//
// The task delete is the commit point. Notification cleanup is retried with
// exponential backoff; if every attempt fails the task id is recorded in a
// PendingLog so a later Drain or Sweep can finish the job. A task id stays in the log
// until its cleanup succeeds.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"taskflow/internal/task/metrics"
	id "taskflow/pkg/domain"
)

// ErrCleanupPending reports that the task is gone but its notifications are
// still present and recorded for repair.
var ErrCleanupPending = errors.New("notification cleanup pending")

// NotificationPurger deletes every notification referencing a task.
type NotificationPurger interface {
	DeleteForTask(ctx context.Context, taskID id.TaskID) (int, error)
}

// PendingLog durably records task ids whose cleanup has not completed.
type PendingLog interface {
	Record(ctx context.Context, taskID id.TaskID) error
	Remove(ctx context.Context, taskID id.TaskID) error
	List(ctx context.Context) ([]id.TaskID, error)
}

const (
	defaultMaxAttempts     = 4
	defaultInitialInterval = 50 * time.Millisecond
)

// Reconciler runs notification cleanup for deleted tasks.
type Reconciler struct {
	purger          NotificationPurger
	pending         PendingLog
	maxAttempts     int
	initialInterval time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithRetry sets the attempt budget and first backoff interval for each purge.
func WithRetry(maxAttempts int, initialInterval time.Duration) Option {
	return func(r *Reconciler) {
		if maxAttempts > 0 {
			r.maxAttempts = maxAttempts
		}
		if initialInterval > 0 {
			r.initialInterval = initialInterval
		}
	}
}

// New constructs a Reconciler.
func New(purger NotificationPurger, pending PendingLog, opts ...Option) *Reconciler {
	r := &Reconciler{
		purger:          purger,
		pending:         pending,
		maxAttempts:     defaultMaxAttempts,
		initialInterval: defaultInitialInterval,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) policy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initialInterval
	eb.MaxInterval = 2 * time.Second
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.maxAttempts-1)), ctx)
}

func (r *Reconciler) purge(ctx context.Context, taskID id.TaskID) (int, error) {
	var removed int
	operation := func() error {
		n, err := r.purger.DeleteForTask(ctx, taskID)
		if err != nil {
			return err
		}
		removed = n
		return nil
	}
	notify := func(err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "notification cleanup attempt failed",
			"task_id", taskID.String(),
			"retry_in", wait,
			"error", err,
		)
	}
	err := backoff.RetryNotify(operation, r.policy(ctx), notify)
	return removed, err
}

// Purge removes the notifications for a deleted task. When retries are
// exhausted the task id is recorded and ErrCleanupPending is returned.
func (r *Reconciler) Purge(ctx context.Context, taskID id.TaskID) (int, error) {
	removed, err := r.purge(ctx, taskID)
	if err == nil {
		return removed, nil
	}

	r.metrics.IncrementCascadePending()
	// The caller's context may already be done; the record must still land.
	recordCtx := context.WithoutCancel(ctx)
	if recErr := r.pending.Record(recordCtx, taskID); recErr != nil {
		r.logger.ErrorContext(ctx, "failed to record pending notification cleanup",
			"task_id", taskID.String(),
			"error", recErr,
		)
		return 0, fmt.Errorf("%w: %w", ErrCleanupPending, errors.Join(err, recErr))
	}
	r.logger.ErrorContext(ctx, "notification cleanup deferred",
		"task_id", taskID.String(),
		"error", err,
	)
	return 0, fmt.Errorf("%w: %w", ErrCleanupPending, err)
}

// Drain retries every pending cleanup (with backoff) and removes the ones that
// succeed. It returns how many were repaired; failures stay pending.
func (r *Reconciler) Drain(ctx context.Context) (int, error) {
	pending, err := r.pending.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending cleanups: %w", err)
	}
	return r.repair(ctx, pending, r.purge)
}

// Sweep makes a single attempt, without backoff, at no more than limit
// pending cleanups. It bounds the repair work a request may take on.
func (r *Reconciler) Sweep(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	pending, err := r.pending.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending cleanups: %w", err)
	}
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return r.repair(ctx, pending, r.purger.DeleteForTask)
}

func (r *Reconciler) repair(ctx context.Context, pending []id.TaskID, attempt func(context.Context, id.TaskID) (int, error)) (int, error) {
	repaired := 0
	var errs []error
	for _, taskID := range pending {
		if _, err := attempt(ctx, taskID); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", taskID, err))
			continue
		}
		if err := r.pending.Remove(ctx, taskID); err != nil {
			errs = append(errs, fmt.Errorf("remove pending %s: %w", taskID, err))
			continue
		}
		repaired++
		r.metrics.IncrementCascadeRepaired()
		r.logger.InfoContext(ctx, "pending notification cleanup completed", "task_id", taskID.String())
	}
	return repaired, errors.Join(errs...)
}
