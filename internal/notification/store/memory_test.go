package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskflow/internal/notification/models"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

type InMemoryNotificationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemoryNotificationStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryNotificationStoreSuite))
}

func (s *InMemoryNotificationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemoryNotificationStoreSuite) insert(recipient id.UserID, taskID id.TaskID, read bool, at time.Time) *models.Notification {
	n := models.NewAssignment(id.NewNotificationID(), recipient, id.NewUserID(), taskID, "You have been assigned a task: x", at)
	n.Read = read
	s.Require().NoError(s.store.Insert(s.ctx, n))
	return n
}

func (s *InMemoryNotificationStoreSuite) TestListByRecipient() {
	recipient := id.NewUserID()
	older := s.insert(recipient, id.NewTaskID(), false, s.now)
	newer := s.insert(recipient, id.NewTaskID(), true, s.now.Add(time.Minute))
	s.insert(id.NewUserID(), id.NewTaskID(), false, s.now)

	list, err := s.store.ListByRecipient(s.ctx, recipient)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(newer.ID, list[0].ID)
	s.Equal(older.ID, list[1].ID)
}

func (s *InMemoryNotificationStoreSuite) TestMarkRead() {
	s.Run("marks and returns the notification", func() {
		n := s.insert(id.NewUserID(), id.NewTaskID(), false, s.now)
		got, err := s.store.MarkRead(s.ctx, n.ID)
		s.Require().NoError(err)
		s.True(got.Read)

		again, err := s.store.MarkRead(s.ctx, n.ID)
		s.Require().NoError(err)
		s.Equal(got, again)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.MarkRead(s.ctx, id.NewNotificationID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryNotificationStoreSuite) TestBulkOperations() {
	recipient, other := id.NewUserID(), id.NewUserID()
	s.insert(recipient, id.NewTaskID(), false, s.now)
	s.insert(recipient, id.NewTaskID(), false, s.now)
	s.insert(recipient, id.NewTaskID(), true, s.now)
	foreign := s.insert(other, id.NewTaskID(), false, s.now)

	unread, err := s.store.CountUnread(s.ctx, recipient)
	s.Require().NoError(err)
	s.Equal(2, unread)

	marked, err := s.store.MarkAllRead(s.ctx, recipient)
	s.Require().NoError(err)
	s.Equal(2, marked)

	marked, err = s.store.MarkAllRead(s.ctx, recipient)
	s.Require().NoError(err)
	s.Zero(marked)

	cleared, err := s.store.DeleteRead(s.ctx, recipient)
	s.Require().NoError(err)
	s.Equal(3, cleared)

	found, err := s.store.FindByID(s.ctx, foreign.ID)
	s.Require().NoError(err)
	s.False(found.Read, "other recipients are untouched")
}

func (s *InMemoryNotificationStoreSuite) TestDeleteByTask() {
	taskID := id.NewTaskID()
	s.insert(id.NewUserID(), taskID, false, s.now)
	s.insert(id.NewUserID(), taskID, true, s.now)
	keep := s.insert(id.NewUserID(), id.NewTaskID(), false, s.now)

	removed, err := s.store.DeleteByTask(s.ctx, taskID)
	s.Require().NoError(err)
	s.Equal(2, removed)

	_, err = s.store.FindByID(s.ctx, keep.ID)
	s.Require().NoError(err)
}

func (s *InMemoryNotificationStoreSuite) TestDelete() {
	n := s.insert(id.NewUserID(), id.NewTaskID(), false, s.now)
	s.Require().NoError(s.store.Delete(s.ctx, n.ID))
	s.Require().ErrorIs(s.store.Delete(s.ctx, n.ID), sentinel.ErrNotFound)
}
