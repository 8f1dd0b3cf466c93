//go:build integration

package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"taskflow/internal/ratelimit"
	"taskflow/pkg/testutil/containers"
)

type RedisLockoutStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *ratelimit.Redis
}

func TestRedisLockoutStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockoutStoreSuite))
}

func (s *RedisLockoutStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = ratelimit.NewRedis(s.redis.Client)
}

func (s *RedisLockoutStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockoutStoreSuite) TestSaveGetClear() {
	ctx := context.Background()
	lockedUntil := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	record := &ratelimit.Lockout{
		Key:         "ada@example.com",
		Failures:    5,
		WindowStart: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		LockedUntil: &lockedUntil,
	}
	s.Require().NoError(s.store.Save(ctx, record, time.Minute))

	got, err := s.store.Get(ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(5, got.Failures)
	s.True(got.LockedUntil.Equal(lockedUntil))

	s.Require().NoError(s.store.Clear(ctx, "ada@example.com"))
	got, err = s.store.Get(ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *RedisLockoutStoreSuite) TestRecordExpires() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, &ratelimit.Lockout{Key: "k", Failures: 1}, time.Second))

	s.Eventually(func() bool {
		got, err := s.store.Get(ctx, "k")
		return err == nil && got == nil
	}, 5*time.Second, 100*time.Millisecond)
}
