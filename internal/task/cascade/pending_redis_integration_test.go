//go:build integration

package cascade_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"taskflow/internal/task/cascade"
	id "taskflow/pkg/domain"
	"taskflow/pkg/testutil/containers"
)

type RedisPendingLogSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	log   *cascade.RedisPendingLog
}

func TestRedisPendingLogSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisPendingLogSuite))
}

func (s *RedisPendingLogSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.log = cascade.NewRedisPendingLog(s.redis.Client)
}

func (s *RedisPendingLogSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisPendingLogSuite) TestRecordListRemove() {
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
