package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/requestcontext"
)

type LockoutSuite struct {
	suite.Suite
	now     time.Time
	store   *InMemory
	service *Service
}

func TestLockoutSuite(t *testing.T) {
	suite.Run(t, new(LockoutSuite))
}

func (s *LockoutSuite) SetupTest() {
	s.now = time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	s.store = NewInMemory()
	s.store.clock = func() time.Time { return s.now }
	s.service = New(s.store, WithConfig(Config{MaxAttempts: 3, Window: time.Minute, LockDuration: 5 * time.Minute}))
}

func (s *LockoutSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *LockoutSuite) fail(times int) {
	for range times {
		s.Require().NoError(s.service.RecordFailure(s.ctx(), "ada@example.com"))
	}
}

func (s *LockoutSuite) TestLocksAfterMaxAttempts() {
	s.fail(2)
	s.NoError(s.service.Check(s.ctx(), "ada@example.com"))

	s.fail(1)
	err := s.service.Check(s.ctx(), "ada@example.com")
	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	s.NoError(s.service.Check(s.ctx(), "grace@example.com"), "keys are independent")
}

func (s *LockoutSuite) TestLockExpires() {
	s.fail(3)
	s.now = s.now.Add(5*time.Minute + time.Second)

	s.NoError(s.service.Check(s.ctx(), "ada@example.com"))
}

func (s *LockoutSuite) TestFailuresOutsideWindowStartOver() {
	s.fail(2)
	s.now = s.now.Add(2 * time.Minute)
	s.fail(2)

	s.NoError(s.service.Check(s.ctx(), "ada@example.com"))
}

func (s *LockoutSuite) TestClearForgetsFailures() {
	s.fail(2)
	s.Require().NoError(s.service.Clear(s.ctx(), "ada@example.com"))
	s.fail(2)

	s.NoError(s.service.Check(s.ctx(), "ada@example.com"))
}

type brokenStore struct{ InMemory }

func (*brokenStore) Get(context.Context, string) (*Lockout, error) {
	return nil, errors.New("connection refused")
}

func (s *LockoutSuite) TestStoreFailureIsUnavailable() {
	svc := New(&brokenStore{})

	s.True(dErrors.HasCode(svc.Check(s.ctx(), "k"), dErrors.CodeStoreUnavailable))
	s.True(dErrors.HasCode(svc.RecordFailure(s.ctx(), "k"), dErrors.CodeStoreUnavailable))
}
