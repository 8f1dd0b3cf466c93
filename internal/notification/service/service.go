package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskflow/internal/notification/metrics"
	"taskflow/internal/notification/models"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/platform/sentinel"
	"taskflow/pkg/requestcontext"
)

// Store persists notifications. It applies no authorization.
type Store interface {
	Insert(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error)
	ListByRecipient(ctx context.Context, recipient id.UserID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipient id.UserID) (int, error)
	Delete(ctx context.Context, notificationID id.NotificationID) error
	DeleteRead(ctx context.Context, recipient id.UserID) (int, error)
	DeleteByTask(ctx context.Context, taskID id.TaskID) (int, error)
	CountUnread(ctx context.Context, recipient id.UserID) (int, error)
}

// EventPublisher announces created notifications.
type EventPublisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

var tracer = otel.Tracer("taskflow/internal/notification/service")

// Service enforces the notification lifecycle: only the recipient may read,
// mark, or delete a notification, and read never reverts to unread.
type Service struct {
	store     Store
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher sets where created notifications are announced.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// NotifyAssignment always creates a new unread notification; repeated
// assignments are never deduplicated.
func (s *Service) NotifyAssignment(ctx context.Context, recipient, sender id.UserID, taskID id.TaskID, message string) (n *models.Notification, err error) {
	ctx, span := startSpan(ctx, "notification.NotifyAssignment",
		attribute.String("recipient.id", recipient.String()),
		attribute.String("task.id", taskID.String()),
	)
	defer func() { endSpan(span, err) }()

	n = models.NewAssignment(id.NewNotificationID(), recipient, sender, taskID, message, requestcontext.Now(ctx))
	if err := s.store.Insert(ctx, n); err != nil {
		return nil, translateStoreError(err, "failed to create notification")
	}
	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "notification created",
		"request_id", requestcontext.RequestID(ctx),
		"notification_id", n.ID.String(),
		"recipient", recipient.String(),
		"task_id", taskID.String(),
	)
	s.publish(ctx, n)
	return n, nil
}

func (s *Service) publish(ctx context.Context, n *models.Notification) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.metrics.IncrementPublishFailure()
		s.logger.WarnContext(ctx, "failed to publish notification event",
			"request_id", requestcontext.RequestID(ctx),
			"notification_id", n.ID.String(),
			"error", err,
		)
	}
}

// ListNotifications returns the caller's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, caller id.UserID) (list []*models.Notification, err error) {
	ctx, span := startSpan(ctx, "notification.List", attribute.String("caller.id", caller.String()))
	defer func() { endSpan(span, err) }()

	list, err = s.store.ListByRecipient(ctx, caller)
	if err != nil {
		return nil, translateStoreError(err, "failed to list notifications")
	}
	return list, nil
}

// UnreadCount returns how many of the caller's notifications are unread.
func (s *Service) UnreadCount(ctx context.Context, caller id.UserID) (int, error) {
	count, err := s.store.CountUnread(ctx, caller)
	if err != nil {
		return 0, translateStoreError(err, "failed to count notifications")
	}
	return count, nil
}

// MarkRead is idempotent: an already-read notification is returned unchanged.
func (s *Service) MarkRead(ctx context.Context, caller id.UserID, notificationID id.NotificationID) (n *models.Notification, err error) {
	ctx, span := startSpan(ctx, "notification.MarkRead", attribute.String("notification.id", notificationID.String()))
	defer func() { endSpan(span, err) }()

	current, err := s.loadOwned(ctx, caller, notificationID)
	if err != nil {
		return nil, err
	}
	if current.Read {
		return current, nil
	}
	n, err = s.store.MarkRead(ctx, notificationID)
	if err != nil {
		return nil, translateStoreError(err, "failed to mark notification read")
	}
	s.metrics.AddMarkedRead(1)
	return n, nil
}

// MarkAllRead marks every unread notification of the caller read and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, caller id.UserID) (count int, err error) {
	ctx, span := startSpan(ctx, "notification.MarkAllRead", attribute.String("caller.id", caller.String()))
	defer func() { endSpan(span, err) }()

	count, err = s.store.MarkAllRead(ctx, caller)
	if err != nil {
		return 0, translateStoreError(err, "failed to mark notifications read")
	}
	s.metrics.AddMarkedRead(count)
	return count, nil
}

// DeleteNotification removes one notification owned by the caller.
func (s *Service) DeleteNotification(ctx context.Context, caller id.UserID, notificationID id.NotificationID) (err error) {
	ctx, span := startSpan(ctx, "notification.Delete", attribute.String("notification.id", notificationID.String()))
	defer func() { endSpan(span, err) }()

	if _, err := s.loadOwned(ctx, caller, notificationID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, notificationID); err != nil {
		return translateStoreError(err, "failed to delete notification")
	}
	s.metrics.AddDeleted("recipient", 1)
	return nil
}

// ClearRead deletes the caller's read notifications; unread ones are kept.
func (s *Service) ClearRead(ctx context.Context, caller id.UserID) (count int, err error) {
	ctx, span := startSpan(ctx, "notification.ClearRead", attribute.String("caller.id", caller.String()))
	defer func() { endSpan(span, err) }()

	count, err = s.store.DeleteRead(ctx, caller)
	if err != nil {
		return 0, translateStoreError(err, "failed to clear notifications")
	}
	s.metrics.AddDeleted("clear_read", count)
	s.logger.InfoContext(ctx, "read notifications cleared",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", caller.String(),
		"count", count,
	)
	return count, nil
}

// DeleteForTask removes every notification referencing taskID, whoever the
// recipient. It is reserved for the task delete cascade.
func (s *Service) DeleteForTask(ctx context.Context, taskID id.TaskID) (count int, err error) {
	ctx, span := startSpan(ctx, "notification.DeleteForTask", attribute.String("task.id", taskID.String()))
	defer func() { endSpan(span, err) }()

	start := time.Now()
	count, err = s.store.DeleteByTask(ctx, taskID)
	if err != nil {
		return 0, translateStoreError(err, "failed to delete task notifications")
	}
	s.metrics.AddDeleted("task_cascade", count)
	s.logger.DebugContext(ctx, "task notifications deleted",
		"task_id", taskID.String(),
		"count", count,
		"duration", time.Since(start),
	)
	return count, nil
}

func (s *Service) loadOwned(ctx context.Context, caller id.UserID, notificationID id.NotificationID) (*models.Notification, error) {
	n, err := s.store.FindByID(ctx, notificationID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load notification")
	}
	if !n.IsRecipient(caller) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to access this notification")
	}
	return n, nil
}

func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
