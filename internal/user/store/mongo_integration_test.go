//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformmongo "taskflow/internal/platform/mongo"
	"taskflow/internal/user/models"
	"taskflow/internal/user/store"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
	"taskflow/pkg/testutil/containers"
)

type MongoStoreSuite struct {
	suite.Suite
	mongo *containers.MongoContainer
	store *store.MongoStore
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
}

func (s *MongoStoreSuite) SetupTest() {
	s.Require().NoError(s.mongo.ClearCollections(context.Background(), platformmongo.CollectionUsers))
}

func (s *MongoStoreSuite) user(name, email string) *models.User {
	u := &models.User{
		ID:           id.NewUserID(),
		Name:         name,
		Email:        email,
		PasswordHash: "hash",
		CreatedAt:    time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.store.Insert(context.Background(), u))
	return u
}

func (s *MongoStoreSuite) TestDuplicateEmailConflicts() {
	s.user("Ada", "ada@example.com")

	err := s.store.Insert(context.Background(), &models.User{ID: id.NewUserID(), Name: "Other", Email: "ada@example.com"})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *MongoStoreSuite) TestLookups() {
	ctx := context.Background()
	ada := s.user("Ada", "ada@example.com")

	byEmail, err := s.store.FindByEmail(ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Equal(ada.ID, byEmail.ID)
	s.Equal("hash", byEmail.PasswordHash)

	_, err = s.store.FindByID(ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindByIDs(ctx, []id.UserID{ada.ID, id.NewUserID()})
	s.Require().NoError(err)
	s.Len(found, 1)
}

func (s *MongoStoreSuite) TestListIgnoresNameCase() {
	s.user("grace", "grace@example.com")
	s.user("Ada", "ada@example.com")
	s.user("bob", "bob@example.com")

	users, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal([]string{"Ada", "bob", "grace"}, []string{users[0].Name, users[1].Name, users[2].Name})
}

func (s *MongoStoreSuite) TestUpdateName() {
	ctx := context.Background()
	ada := s.user("Ada", "ada@example.com")

	updated, err := s.store.UpdateName(ctx, ada.ID, "Ada Lovelace")
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", updated.Name)

	_, err = s.store.UpdateName(ctx, id.NewUserID(), "Nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
