//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskflow/internal/notification/models"
	"taskflow/internal/notification/store"
	platformmongo "taskflow/internal/platform/mongo"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
	"taskflow/pkg/testutil/containers"
)

type MongoStoreSuite struct {
	suite.Suite
	mongo *containers.MongoContainer
	store *store.MongoStore
	now   time.Time
}

func TestMongoStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoStoreSuite))
}

func (s *MongoStoreSuite) SetupSuite() {
	s.mongo = containers.GetManager().GetMongo(s.T())
	s.store = store.NewMongo(s.mongo.DB)
	s.now = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
}

func (s *MongoStoreSuite) SetupTest() {
	s.Require().NoError(s.mongo.ClearCollections(context.Background(), platformmongo.CollectionNotifications))
}

func (s *MongoStoreSuite) insert(recipient id.UserID, taskID id.TaskID, at time.Time) *models.Notification {
	n := models.NewAssignment(id.NewNotificationID(), recipient, id.NewUserID(), taskID, "You have been assigned a task: x", at)
	s.Require().NoError(s.store.Insert(context.Background(), n))
	return n
}

func (s *MongoStoreSuite) TestLifecycle() {
	ctx := context.Background()
	recipient := id.NewUserID()
	taskID := id.NewTaskID()
	first := s.insert(recipient, taskID, s.now)
	second := s.insert(recipient, id.NewTaskID(), s.now.Add(time.Minute))
	s.insert(id.NewUserID(), taskID, s.now)

	list, err := s.store.ListByRecipient(ctx, recipient)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)
	s.Require().NotNil(list[1].Task)
	s.Equal(taskID, *list[1].Task)
	s.Require().NotNil(list[1].Sender)
	s.Equal(*first.Sender, *list[1].Sender)

	read, err := s.store.MarkRead(ctx, first.ID)
	s.Require().NoError(err)
	s.True(read.Read)

	unread, err := s.store.CountUnread(ctx, recipient)
	s.Require().NoError(err)
	s.Equal(1, unread)

	marked, err := s.store.MarkAllRead(ctx, recipient)
	s.Require().NoError(err)
	s.Equal(1, marked)

	cleared, err := s.store.DeleteRead(ctx, recipient)
	s.Require().NoError(err)
	s.Equal(2, cleared)

	_, err = s.store.FindByID(ctx, first.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.MarkRead(ctx, first.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, first.ID), sentinel.ErrNotFound)
}

func (s *MongoStoreSuite) TestDeleteByTask() {
	ctx := context.Background()
	taskID := id.NewTaskID()
	s.insert(id.NewUserID(), taskID, s.now)
	s.insert(id.NewUserID(), taskID, s.now)
	keep := s.insert(id.NewUserID(), id.NewTaskID(), s.now)

	removed, err := s.store.DeleteByTask(ctx, taskID)
	s.Require().NoError(err)
	s.Equal(2, removed)

	_, err = s.store.FindByID(ctx, keep.ID)
	s.Require().NoError(err)
}
