//go:build integration

package cascade_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	platformmongo "taskflow/internal/platform/mongo"
	"taskflow/internal/task/cascade"
	id "taskflow/pkg/domain"
	"taskflow/pkg/testutil/containers"
)

type MongoPendingLogSuite struct {
	suite.Suite
	mongo *containers.MongoContainer
	log   *cascade.MongoPendingLog
}

func TestMongoPendingLogSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(MongoPendingLogSuite))
}

func (s *MongoPendingLogSuite) SetupSuite() {
	s.mongo = containers.GetManager().GetMongo(s.T())
	s.log = cascade.NewMongoPendingLog(s.mongo.DB)
}

func (s *MongoPendingLogSuite) SetupTest() {
	s.Require().NoError(s.mongo.ClearCollections(context.Background(), platformmongo.CollectionPendingCascades))
}

func (s *MongoPendingLogSuite) TestRecordListRemove() {
	ctx := context.Background()
	taskID := id.NewTaskID()

	s.Require().NoError(s.log.Record(ctx, taskID))
	s.Require().NoError(s.log.Record(ctx, taskID))

	pending, err := s.log.List(ctx)
	s.Require().NoError(err)
	s.Equal([]id.TaskID{taskID}, pending)

	s.Require().NoError(s.log.Remove(ctx, taskID))
	pending, err = s.log.List(ctx)
	s.Require().NoError(err)
	s.Empty(pending)
}
