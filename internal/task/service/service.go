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

	notificationmodels "taskflow/internal/notification/models"
	"taskflow/internal/task/metrics"
	"taskflow/internal/task/models"
	"taskflow/internal/task/query"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/platform/sentinel"
	"taskflow/pkg/requestcontext"
)

// TaskStore persists tasks. It applies no authorization.
type TaskStore interface {
	Insert(ctx context.Context, task *models.Task) error
	FindByID(ctx context.Context, taskID id.TaskID) (*models.Task, error)
	Find(ctx context.Context, p query.Predicate) ([]*models.Task, error)
	Update(ctx context.Context, taskID id.TaskID, patch models.TaskPatch, now time.Time) (*models.Task, error)
	Delete(ctx context.Context, taskID id.TaskID) error
}

// Notifier creates assignment notifications.
type Notifier interface {
	NotifyAssignment(ctx context.Context, recipient, sender id.UserID, taskID id.TaskID, message string) (*notificationmodels.Notification, error)
}

// Directory resolves whether a user id belongs to a registered user.
type Directory interface {
	Exists(ctx context.Context, userID id.UserID) (bool, error)
}

// Cascader removes the notifications of deleted tasks and repairs cleanups
// that previously failed.
type Cascader interface {
	Purge(ctx context.Context, taskID id.TaskID) (int, error)
	Sweep(ctx context.Context, limit int) (int, error)
}

// sweepLimit caps the pending cleanups a single delete request retries.
const sweepLimit = 10

const (
	createdMessagePrefix  = "You have been assigned a new task: "
	assignedMessagePrefix = "You have been assigned a task: "
)

var tracer = otel.Tracer("taskflow/internal/task/service")

// Service is the task authorization and mutation-side-effect engine.
//
// Every operation takes the caller explicitly. Read and update require the
// caller to be the creator or the current assignee; delete requires the
// creator. NotFound is reported before Forbidden.
type Service struct {
	tasks     TaskStore
	notifier  Notifier
	directory Directory
	cascader  Cascader
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

// WithDirectory enables assignee validation against registered users.
func WithDirectory(directory Directory) Option {
	return func(s *Service) {
		s.directory = directory
	}
}

// New constructs a Service.
func New(tasks TaskStore, notifier Notifier, cascader Cascader, opts ...Option) *Service {
	s := &Service{
		tasks:    tasks,
		notifier: notifier,
		cascader: cascader,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, name string, caller id.UserID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("caller.id", caller.String()))
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (s *Service) finish(span trace.Span, operation string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	s.metrics.ObserveOperation(operation, start, err)
}

// CreateTask stores a new task owned by caller and notifies the assignee
// when the task is assigned to someone else.
func (s *Service) CreateTask(ctx context.Context, caller id.UserID, fields models.CreateFields) (task *models.Task, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "task.Create", caller)
	defer func() { s.finish(span, "create", start, err) }()

	task, err = models.NewTask(id.NewTaskID(), caller, fields, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if task.AssignedTo != nil {
		if err := s.ensureUserExists(ctx, *task.AssignedTo); err != nil {
			return nil, err
		}
	}

	if err := s.tasks.Insert(ctx, task); err != nil {
		return nil, translateStoreError(err, "failed to create task")
	}
	s.metrics.IncrementTasksCreated()
	s.logger.InfoContext(ctx, "task created",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", caller.String(),
		"task_id", task.ID.String(),
	)

	if task.AssignedTo != nil && *task.AssignedTo != caller {
		s.notify(ctx, "create", *task.AssignedTo, caller, task.ID, createdMessagePrefix+task.Title)
	}
	return task, nil
}

// GetTask returns a task the caller may access.
func (s *Service) GetTask(ctx context.Context, caller id.UserID, taskID id.TaskID) (task *models.Task, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "task.Get", caller, attribute.String("task.id", taskID.String()))
	defer func() { s.finish(span, "get", start, err) }()

	return s.loadAccessible(ctx, caller, taskID)
}

// ListTasks returns the tasks matching p, newest first. The ownership
// constraint is always the caller's, whatever p carries.
func (s *Service) ListTasks(ctx context.Context, caller id.UserID, p query.Predicate) (tasks []*models.Task, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "task.List", caller)
	defer func() { s.finish(span, "list", start, err) }()

	p.Caller = caller
	tasks, err = s.tasks.Find(ctx, p)
	if err != nil {
		return nil, translateStoreError(err, "failed to list tasks")
	}
	return tasks, nil
}

// SearchTasks builds a predicate from raw params and lists the matches.
func (s *Service) SearchTasks(ctx context.Context, caller id.UserID, params query.Params) ([]*models.Task, error) {
	p, err := query.BuildFilter(caller, params)
	if err != nil {
		return nil, err
	}
	return s.ListTasks(ctx, caller, p)
}

// UpdateTask applies patch to a task the caller may access. A change of
// assignee to someone other than the caller notifies the new assignee;
// unassigning never notifies.
func (s *Service) UpdateTask(ctx context.Context, caller id.UserID, taskID id.TaskID, patch models.TaskPatch) (task *models.Task, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "task.Update", caller, attribute.String("task.id", taskID.String()))
	defer func() { s.finish(span, "update", start, err) }()

	current, err := s.loadAccessible(ctx, caller, taskID)
	if err != nil {
		return nil, err
	}

	patch.Normalize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	next, assigned := patch.NewAssignee(current)
	if assigned {
		if err := s.ensureUserExists(ctx, next); err != nil {
			return nil, err
		}
	}
	shouldNotify := assigned && next != caller
	title := patch.TitleAfter(current)

	task, err = s.tasks.Update(ctx, taskID, patch, requestcontext.Now(ctx))
	if err != nil {
		return nil, translateStoreError(err, "failed to update task")
	}
	s.logger.InfoContext(ctx, "task updated",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", caller.String(),
		"task_id", taskID.String(),
	)

	if shouldNotify {
		s.notify(ctx, "update", next, caller, taskID, assignedMessagePrefix+title)
	}
	return task, nil
}

// DeleteTask removes a task the caller created, then its notifications.
// The task delete is the commit point: if notification cleanup cannot finish,
// the task stays deleted and the cleanup is recorded for repair.
func (s *Service) DeleteTask(ctx context.Context, caller id.UserID, taskID id.TaskID) (err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "task.Delete", caller, attribute.String("task.id", taskID.String()))
	defer func() { s.finish(span, "delete", start, err) }()

	current, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return translateStoreError(err, "failed to load task")
	}
	if !current.CanDelete(caller) {
		return dErrors.New(dErrors.CodeForbidden, "only the task creator can delete it")
	}

	s.sweepPending(ctx)

	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return translateStoreError(err, "failed to delete task")
	}
	s.logger.InfoContext(ctx, "task deleted",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", caller.String(),
		"task_id", taskID.String(),
	)

	removed, err := s.cascader.Purge(ctx, taskID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "task deleted; notification cleanup pending")
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "task notifications removed",
			"request_id", requestcontext.RequestID(ctx),
			"task_id", taskID.String(),
			"count", removed,
		)
	}
	return nil
}

func (s *Service) loadAccessible(ctx context.Context, caller id.UserID, taskID id.TaskID) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load task")
	}
	if !task.CanAccess(caller) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to access this task")
	}
	return task, nil
}

func (s *Service) ensureUserExists(ctx context.Context, userID id.UserID) error {
	if s.directory == nil {
		return nil
	}
	ok, err := s.directory.Exists(ctx, userID)
	if err != nil {
		return translateStoreError(err, "failed to resolve assignee")
	}
	if !ok {
		return dErrors.Validation("assignedTo", "assignee does not exist")
	}
	return nil
}

// notify is best-effort: the task write has already committed.
func (s *Service) notify(ctx context.Context, operation string, recipient, sender id.UserID, taskID id.TaskID, message string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.NotifyAssignment(ctx, recipient, sender, taskID, message); err != nil {
		s.metrics.IncrementNotificationFailure(operation)
		s.logger.ErrorContext(ctx, "failed to create assignment notification",
			"request_id", requestcontext.RequestID(ctx),
			"task_id", taskID.String(),
			"recipient", recipient.String(),
			"error", err,
		)
	}
}

func (s *Service) sweepPending(ctx context.Context) {
	repaired, err := s.cascader.Sweep(ctx, sweepLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "pending notification cleanup still failing",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	if repaired > 0 {
		s.logger.InfoContext(ctx, "pending notification cleanups repaired",
			"request_id", requestcontext.RequestID(ctx),
			"count", repaired,
		)
	}
}

func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "task not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, msg)
	default:
		if _, ok := dErrors.From(err); ok {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
