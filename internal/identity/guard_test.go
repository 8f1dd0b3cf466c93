package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"taskflow/internal/identity/metrics"
	"taskflow/internal/identity/revocation"
	"taskflow/internal/identity/token"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/requestcontext"
)

type failingRevocations struct{}

func (failingRevocations) Revoke(context.Context, string, time.Duration) error {
	return errors.New("redis down")
}

func (failingRevocations) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

type GuardSuite struct {
	suite.Suite
	now         time.Time
	tokens      *token.Service
	revocations *revocation.InMemory
	metrics     *metrics.Metrics
	guard       *Guard
	user        id.UserID
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }
	s.tokens = token.NewService("secret", "taskflow", 24*time.Hour, token.WithClock(clock))
	s.revocations = revocation.NewInMemory(revocation.WithClock(clock))
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.guard = NewGuard(s.tokens, s.revocations, WithMetrics(s.metrics))
	s.user = id.NewUserID()
}

func (s *GuardSuite) issue() *token.Issued {
	issued, err := s.tokens.Issue(s.user, s.now)
	s.Require().NoError(err)
	return issued
}

func (s *GuardSuite) TestValidCredential() {
	issued := s.issue()

	caller, err := s.guard.Authenticate(context.Background(), issued.Token)

	s.Require().NoError(err)
	s.Equal(s.user, caller.UserID)
	s.Equal(issued.JTI, caller.JTI)
	s.Equal(issued.ExpiresAt, caller.ExpiresAt.UTC())
}

func (s *GuardSuite) TestRejections() {
	ctx := context.Background()

	s.Run("missing", func() {
		_, err := s.guard.Authenticate(ctx, "")
		s.True(dErrors.HasCode(err, dErrors.CodeMissingCredential))
	})

	s.Run("invalid", func() {
		_, err := s.guard.Authenticate(ctx, "not.a.jwt")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})

	s.Run("expired", func() {
		issued := s.issue()
		s.now = s.now.Add(25 * time.Hour)
		_, err := s.guard.Authenticate(ctx, issued.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeExpiredCredential))
	})

	s.Run("revoked", func() {
		issued := s.issue()
		s.Require().NoError(s.guard.Revoke(requestcontext.WithTime(ctx, s.now), issued.JTI, issued.ExpiresAt))
		_, err := s.guard.Authenticate(ctx, issued.Token)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidCredential))
	})

	s.Equal(1.0, promtestutil.ToFloat64(s.metrics.AuthFailures.WithLabelValues("missing_credential")))
	s.Equal(2.0, promtestutil.ToFloat64(s.metrics.AuthFailures.WithLabelValues("invalid_credential")))
}

func (s *GuardSuite) TestRevocationLookupFailureFailsClosed() {
	guard := NewGuard(s.tokens, failingRevocations{})

	_, err := guard.Authenticate(context.Background(), s.issue().Token)

	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
}
