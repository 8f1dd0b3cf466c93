// Package identity resolves bearer credentials to callers.
package identity

import (
	"context"
	"log/slog"
	"time"

	"taskflow/internal/identity/metrics"
	"taskflow/internal/identity/token"
	dErrors "taskflow/pkg/domain-errors"
	authmw "taskflow/pkg/platform/middleware/auth"
	"taskflow/pkg/requestcontext"
)

// Verifier checks a signed token and returns its claims.
type Verifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// RevocationList records token ids that must no longer be accepted.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Guard implements authmw.Authenticator. Apart from the revocation lookup it
// is pure verification and never writes.
type Guard struct {
	verifier    Verifier
	revocations RevocationList
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Guard)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

func NewGuard(verifier Verifier, revocations RevocationList, opts ...Option) *Guard {
	g := &Guard{verifier: verifier, revocations: revocations, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate resolves credential to a caller.
func (g *Guard) Authenticate(ctx context.Context, credential string) (*authmw.Caller, error) {
	caller, err := g.authenticate(ctx, credential)
	if err != nil {
		g.metrics.IncrementAuthFailure(string(dErrors.CodeOf(err)))
		return nil, err
	}
	return caller, nil
}

func (g *Guard) authenticate(ctx context.Context, credential string) (*authmw.Caller, error) {
	if credential == "" {
		return nil, dErrors.New(dErrors.CodeMissingCredential, "no token, authorization denied")
	}
	claims, err := g.verifier.Verify(credential)
	if err != nil {
		return nil, err
	}
	userID, err := claims.Subject()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	revoked, err := g.revocations.IsRevoked(ctx, claims.ID)
	g.metrics.ObserveRevocationCheck(start)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to check token revocation")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeInvalidCredential, "token has been revoked")
	}

	return &authmw.Caller{
		UserID:    userID,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates the token identified by jti until it would have expired.
func (g *Guard) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(requestcontext.Now(ctx))
	if err := g.revocations.Revoke(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to revoke token")
	}
	g.metrics.IncrementTokensRevoked()
	g.logger.InfoContext(ctx, "token revoked",
		"request_id", requestcontext.RequestID(ctx),
		"jti", jti,
	)
	return nil
}
