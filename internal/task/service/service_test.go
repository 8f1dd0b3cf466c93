package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks TaskStore,Notifier,Directory,Cascader

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	notificationmodels "taskflow/internal/notification/models"
	"taskflow/internal/task/cascade"
	"taskflow/internal/task/metrics"
	"taskflow/internal/task/models"
	"taskflow/internal/task/query"
	"taskflow/internal/task/service/mocks"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/platform/sentinel"
	"taskflow/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	tasks     *mocks.MockTaskStore
	notifier  *mocks.MockNotifier
	directory *mocks.MockDirectory
	cascader  *mocks.MockCascader
	metrics   *metrics.Metrics
	service   *Service
	ctx       context.Context
	now       time.Time

	owner    id.UserID
	assignee id.UserID
	stranger id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.tasks = mocks.NewMockTaskStore(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.cascader = mocks.NewMockCascader(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.tasks, s.notifier, s.cascader,
		WithDirectory(s.directory),
		WithMetrics(s.metrics),
	)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.owner = id.NewUserID()
	s.assignee = id.NewUserID()
	s.stranger = id.NewUserID()
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) existingTask(assignee *id.UserID) *models.Task {
	return &models.Task{
		ID:         id.NewTaskID(),
		Title:      "Draft roadmap",
		Status:     models.StatusPending,
		Priority:   models.PriorityMedium,
		CreatedBy:  s.owner,
		AssignedTo: assignee,
		CreatedAt:  s.now.Add(-time.Hour),
		UpdatedAt:  s.now.Add(-time.Hour),
	}
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.Require().True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *ServiceSuite) TestCreateTask() {
	s.Run("applies defaults and records the caller as creator", func() {
		s.tasks.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

		task, err := s.service.CreateTask(s.ctx, s.owner, models.CreateFields{Title: "Ship release"})
		s.Require().NoError(err)
		s.Equal(s.owner, task.CreatedBy)
		s.Equal(models.StatusPending, task.Status)
		s.Equal(models.PriorityMedium, task.Priority)
		s.Equal(s.now, task.CreatedAt)
	})

	s.Run("notifies a different assignee with the new-task message", func() {
		assignee := s.assignee
		s.directory.EXPECT().Exists(gomock.Any(), assignee).Return(true, nil)
		s.tasks.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
		s.notifier.EXPECT().
			NotifyAssignment(gomock.Any(), assignee, s.owner, gomock.Any(), "You have been assigned a new task: Ship release").
			Return(&notificationmodels.Notification{}, nil)

		task, err := s.service.CreateTask(s.ctx, s.owner, models.CreateFields{Title: "Ship release", AssignedTo: &assignee})
		s.Require().NoError(err)
		s.Require().NotNil(task.AssignedTo)
		s.Equal(assignee, *task.AssignedTo)
	})

	s.Run("self-assignment does not notify", func() {
		owner := s.owner
		s.directory.EXPECT().Exists(gomock.Any(), owner).Return(true, nil)
		s.tasks.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.CreateTask(s.ctx, s.owner, models.CreateFields{Title: "Mine", AssignedTo: &owner})
		s.Require().NoError(err)
	})

	s.Run("notification failure does not fail the create", func() {
		assignee := s.assignee
		before := testutil.ToFloat64(s.metrics.NotificationFailures.WithLabelValues("create"))
		s.directory.EXPECT().Exists(gomock.Any(), assignee).Return(true, nil)
		s.tasks.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
		s.notifier.EXPECT().
			NotifyAssignment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("notifications unavailable"))

		task, err := s.service.CreateTask(s.ctx, s.owner, models.CreateFields{Title: "Still saved", AssignedTo: &assignee})
		s.Require().NoError(err)
		s.NotNil(task)
		s.Equal(before+1, testutil.ToFloat64(s.metrics.NotificationFailures.WithLabelValues("create")))
	})

	s.Run("blank title is a validation error and nothing is stored", func() {
		_, err := s.service.CreateTask(s.ctx, s.owner, models.CreateFields{Title: "   "})
		s.requireCode(err, dErrors.CodeValidation)
		de, _ := dErrors.From(err)
		s.Equal("title", de.Field)
	})

	s.Run("unknown assignee is a validation error", func() {
		ghost := id.NewUserID()
		s.directory.EXPECT().Exists(gomock.Any(), ghost).Return(false, nil)

		_, err := s.service.CreateTask(s.ctx, s.owner, models.CreateFields{Title: "x", AssignedTo: &ghost})
		s.requireCode(err, dErrors.CodeValidation)
		de, _ := dErrors.From(err)
		s.Equal("assignedTo", de.Field)
	})

	s.Run("store outage maps to store_unavailable", func() {
		s.tasks.EXPECT().Insert(gomock.Any(), gomock.Any()).
			Return(fmt.Errorf("insert task: %w", sentinel.ErrUnavailable))

		_, err := s.service.CreateTask(s.ctx, s.owner, models.CreateFields{Title: "x"})
		s.requireCode(err, dErrors.CodeStoreUnavailable)
	})
}

func (s *ServiceSuite) TestGetTask() {
	assignee := s.assignee
	task := s.existingTask(&assignee)

	s.Run("creator and assignee can read", func() {
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil).Times(2)

		got, err := s.service.GetTask(s.ctx, s.owner, task.ID)
		s.Require().NoError(err)
		s.Equal(task.ID, got.ID)

		got, err = s.service.GetTask(s.ctx, s.assignee, task.ID)
		s.Require().NoError(err)
		s.Equal(task.ID, got.ID)
	})

	s.Run("anyone else is forbidden", func() {
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)

		_, err := s.service.GetTask(s.ctx, s.stranger, task.ID)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("missing task is not found", func() {
		missing := id.NewTaskID()
		s.tasks.EXPECT().FindByID(gomock.Any(), missing).
			Return(nil, fmt.Errorf("task not found: %w", sentinel.ErrNotFound))

		_, err := s.service.GetTask(s.ctx, s.owner, missing)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestListTasks() {
	s.Run("ownership constraint is always the caller", func() {
		foreign := query.Owned(s.stranger)
		s.tasks.EXPECT().Find(gomock.Any(), query.Predicate{Caller: s.owner}).Return([]*models.Task{}, nil)

		tasks, err := s.service.ListTasks(s.ctx, s.owner, foreign)
		s.Require().NoError(err)
		s.Empty(tasks)
	})

	s.Run("search params compose onto the caller predicate", func() {
		s.tasks.EXPECT().Find(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p query.Predicate) ([]*models.Task, error) {
				s.Equal(s.owner, p.Caller)
				s.Require().NotNil(p.Status)
				s.Equal(models.StatusPending, *p.Status)
				s.Equal("ship", p.Search)
				return []*models.Task{}, nil
			})

		_, err := s.service.SearchTasks(s.ctx, s.owner, query.Params{Status: "pending", Search: "ship"})
		s.Require().NoError(err)
	})

	s.Run("invalid params never reach the store", func() {
		_, err := s.service.SearchTasks(s.ctx, s.owner, query.Params{Priority: "urgent"})
		s.requireCode(err, dErrors.CodeValidation)
	})
}

func (s *ServiceSuite) TestUpdateTask() {
	s.Run("reassignment notifies the new assignee with the patched title", func() {
		task := s.existingTask(nil)
		title := "Final roadmap"
		patch := models.TaskPatch{Title: &title, AssignedTo: models.Some(s.assignee)}

		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
		s.directory.EXPECT().Exists(gomock.Any(), s.assignee).Return(true, nil)
		s.tasks.EXPECT().Update(gomock.Any(), task.ID, gomock.Any(), s.now).Return(task, nil)
		s.notifier.EXPECT().
			NotifyAssignment(gomock.Any(), s.assignee, s.owner, task.ID, "You have been assigned a task: Final roadmap").
			Return(&notificationmodels.Notification{}, nil)

		_, err := s.service.UpdateTask(s.ctx, s.owner, task.ID, patch)
		s.Require().NoError(err)
	})

	s.Run("message falls back to the current title", func() {
		task := s.existingTask(nil)
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
		s.directory.EXPECT().Exists(gomock.Any(), s.assignee).Return(true, nil)
		s.tasks.EXPECT().Update(gomock.Any(), task.ID, gomock.Any(), s.now).Return(task, nil)
		s.notifier.EXPECT().
			NotifyAssignment(gomock.Any(), s.assignee, s.owner, task.ID, "You have been assigned a task: Draft roadmap").
			Return(&notificationmodels.Notification{}, nil)

		_, err := s.service.UpdateTask(s.ctx, s.owner, task.ID, models.TaskPatch{AssignedTo: models.Some(s.assignee)})
		s.Require().NoError(err)
	})

	s.Run("pre-update assignee may reassign to a third user", func() {
		assignee := s.assignee
		task := s.existingTask(&assignee)
		third := id.NewUserID()

		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
		s.directory.EXPECT().Exists(gomock.Any(), third).Return(true, nil)
		s.tasks.EXPECT().Update(gomock.Any(), task.ID, gomock.Any(), s.now).Return(task, nil)
		s.notifier.EXPECT().
			NotifyAssignment(gomock.Any(), third, s.assignee, task.ID, gomock.Any()).
			Return(&notificationmodels.Notification{}, nil)

		_, err := s.service.UpdateTask(s.ctx, s.assignee, task.ID, models.TaskPatch{AssignedTo: models.Some(third)})
		s.Require().NoError(err)
	})

	s.Run("unassigning, same assignee, and self-assignment never notify", func() {
		assignee := s.assignee
		patches := map[string]models.TaskPatch{
			"unassign":      {AssignedTo: models.Clear[id.UserID]()},
			"same assignee": {AssignedTo: models.Some(s.assignee)},
			"no assignee":   {Status: ptr(models.StatusCompleted)},
		}
		for name, patch := range patches {
			s.Run(name, func() {
				task := s.existingTask(&assignee)
				s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
				s.tasks.EXPECT().Update(gomock.Any(), task.ID, gomock.Any(), s.now).Return(task, nil)

				_, err := s.service.UpdateTask(s.ctx, s.owner, task.ID, patch)
				s.Require().NoError(err)
			})
		}

		s.Run("assigning to the caller", func() {
			task := s.existingTask(&assignee)
			s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
			s.directory.EXPECT().Exists(gomock.Any(), s.owner).Return(true, nil)
			s.tasks.EXPECT().Update(gomock.Any(), task.ID, gomock.Any(), s.now).Return(task, nil)

			_, err := s.service.UpdateTask(s.ctx, s.owner, task.ID, models.TaskPatch{AssignedTo: models.Some(s.owner)})
			s.Require().NoError(err)
		})
	})

	s.Run("notification failure does not fail the update", func() {
		task := s.existingTask(nil)
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
		s.directory.EXPECT().Exists(gomock.Any(), s.assignee).Return(true, nil)
		s.tasks.EXPECT().Update(gomock.Any(), task.ID, gomock.Any(), s.now).Return(task, nil)
		s.notifier.EXPECT().
			NotifyAssignment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("boom"))

		_, err := s.service.UpdateTask(s.ctx, s.owner, task.ID, models.TaskPatch{AssignedTo: models.Some(s.assignee)})
		s.Require().NoError(err)
	})

	s.Run("stranger is forbidden and nothing is written", func() {
		task := s.existingTask(nil)
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)

		title := "hijack"
		_, err := s.service.UpdateTask(s.ctx, s.stranger, task.ID, models.TaskPatch{Title: &title})
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("missing task is not found", func() {
		missing := id.NewTaskID()
		s.tasks.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.UpdateTask(s.ctx, s.owner, missing, models.TaskPatch{})
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("blank title is rejected", func() {
		task := s.existingTask(nil)
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)

		blank := " "
		_, err := s.service.UpdateTask(s.ctx, s.owner, task.ID, models.TaskPatch{Title: &blank})
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("task deleted between read and write is not found", func() {
		task := s.existingTask(nil)
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
		s.tasks.EXPECT().Update(gomock.Any(), task.ID, gomock.Any(), s.now).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.UpdateTask(s.ctx, s.owner, task.ID, models.TaskPatch{Status: ptr(models.StatusArchived)})
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestDeleteTask() {
	s.Run("creator deletes the task then its notifications", func() {
		task := s.existingTask(nil)
		gomock.InOrder(
			s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil),
			s.cascader.EXPECT().Sweep(gomock.Any(), sweepLimit).Return(0, nil),
			s.tasks.EXPECT().Delete(gomock.Any(), task.ID).Return(nil),
			s.cascader.EXPECT().Purge(gomock.Any(), task.ID).Return(3, nil),
		)

		s.Require().NoError(s.service.DeleteTask(s.ctx, s.owner, task.ID))
	})

	s.Run("assignee is forbidden and repairs nothing", func() {
		assignee := s.assignee
		task := s.existingTask(&assignee)
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)

		err := s.service.DeleteTask(s.ctx, s.assignee, task.ID)
		s.requireCode(err, dErrors.CodeForbidden)
	})

	s.Run("missing task is not found and repairs nothing", func() {
		missing := id.NewTaskID()
		s.tasks.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)

		err := s.service.DeleteTask(s.ctx, s.owner, missing)
		s.requireCode(err, dErrors.CodeNotFound)
	})

	s.Run("failed cleanup reports store_unavailable after the task is gone", func() {
		task := s.existingTask(nil)
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
		s.cascader.EXPECT().Sweep(gomock.Any(), sweepLimit).Return(0, nil)
		s.tasks.EXPECT().Delete(gomock.Any(), task.ID).Return(nil)
		s.cascader.EXPECT().Purge(gomock.Any(), task.ID).Return(0, cascade.ErrCleanupPending)

		err := s.service.DeleteTask(s.ctx, s.owner, task.ID)
		s.requireCode(err, dErrors.CodeStoreUnavailable)
		s.ErrorIs(err, cascade.ErrCleanupPending)
	})

	s.Run("a failing sweep does not block the delete", func() {
		task := s.existingTask(nil)
		s.tasks.EXPECT().FindByID(gomock.Any(), task.ID).Return(task, nil)
		s.cascader.EXPECT().Sweep(gomock.Any(), sweepLimit).Return(0, errors.New("still down"))
		s.tasks.EXPECT().Delete(gomock.Any(), task.ID).Return(nil)
		s.cascader.EXPECT().Purge(gomock.Any(), task.ID).Return(0, nil)

		s.Require().NoError(s.service.DeleteTask(s.ctx, s.owner, task.ID))
	})
}

func ptr[T any](v T) *T { return &v }
