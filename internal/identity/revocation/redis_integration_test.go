//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskflow/internal/identity/revocation"
	"taskflow/pkg/testutil/containers"
)

type RedisRevocationSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	list  *revocation.Redis
}

func TestRedisRevocationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisRevocationSuite))
}

func (s *RedisRevocationSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.list = revocation.NewRedis(s.redis.Client)
}

func (s *RedisRevocationSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisRevocationSuite) TestRevokeAndExpire() {
	ctx := context.Background()
	s.Require().NoError(s.list.Revoke(ctx, "jti-1", time.Second))

	revoked, err := s.list.IsRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)

	s.Eventually(func() bool {
		revoked, err := s.list.IsRevoked(ctx, "jti-1")
		return err == nil && !revoked
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *RedisRevocationSuite) TestUnknownIsNotRevoked() {
	revoked, err := s.list.IsRevoked(context.Background(), "never-seen")
	s.Require().NoError(err)
	s.False(revoked)
}
