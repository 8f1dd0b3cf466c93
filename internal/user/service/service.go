// Package service implements account registration, login, and profiles.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"taskflow/internal/identity/token"
	"taskflow/internal/user/metrics"
	"taskflow/internal/user/models"
	id "taskflow/pkg/domain"
	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/email"
	"taskflow/pkg/platform/sentinel"
	"taskflow/pkg/requestcontext"
)

// Store persists users. It applies no authorization.
type Store interface {
	Insert(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []id.UserID) ([]*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateName(ctx context.Context, userID id.UserID, name string) (*models.User, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(userID id.UserID, now time.Time) (*token.Issued, error)
}

// TokenRevoker invalidates a presented token until it expires.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
}

// LoginLimiter locks out an account after repeated failed logins.
type LoginLimiter interface {
	Check(ctx context.Context, key string) error
	RecordFailure(ctx context.Context, key string) error
	Clear(ctx context.Context, key string) error
}

const invalidCredentials = "invalid credentials"

type Service struct {
	store   Store
	hasher  PasswordHasher
	tokens  TokenIssuer
	revoker TokenRevoker
	limiter LoginLimiter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLoginLimiter enables lockout after repeated failed logins.
func WithLoginLimiter(limiter LoginLimiter) Option {
	return func(s *Service) {
		s.limiter = limiter
	}
}

func New(store Store, hasher PasswordHasher, tokens TokenIssuer, revoker TokenRevoker, opts ...Option) *Service {
	s := &Service{
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		revoker: revoker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and signs the caller in.
func (s *Service) Register(ctx context.Context, reg models.Registration) (*models.User, *token.Issued, error) {
	reg.Normalize()
	if err := reg.Validate(); err != nil {
		return nil, nil, err
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		if _, ok := dErrors.From(err); ok {
			return nil, nil, err
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	user := &models.User{
		ID:           id.NewUserID(),
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.store.Insert(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, nil, dErrors.New(dErrors.CodeConflict, "user already exists")
		}
		return nil, nil, translateStoreError(err, "failed to create user")
	}

	issued, err := s.tokens.Issue(user.ID, requestcontext.Now(ctx))
	if err != nil {
		return nil, nil, err
	}
	s.metrics.IncrementRegistrations()
	s.logger.InfoContext(ctx, "user registered",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID.String(),
	)
	return user, issued, nil
}

// Login returns a token for valid credentials. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, address, plain string) (*token.Issued, error) {
	normalized := email.Normalize(address)
	if err := s.checkLockout(ctx, normalized); err != nil {
		return nil, err
	}

	user, err := s.store.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejectLogin(ctx, normalized)
			return nil, dErrors.New(dErrors.CodeInvalidCredential, invalidCredentials)
		}
		return nil, translateStoreError(err, "failed to load user")
	}
	ok, err := s.hasher.Verify(plain, user.PasswordHash)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	if !ok {
		s.rejectLogin(ctx, normalized)
		s.logger.WarnContext(ctx, "login rejected",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", user.ID.String(),
		)
		return nil, dErrors.New(dErrors.CodeInvalidCredential, invalidCredentials)
	}

	issued, err := s.tokens.Issue(user.ID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if s.limiter != nil {
		if err := s.limiter.Clear(ctx, normalized); err != nil {
			s.logger.WarnContext(ctx, "failed to clear login failures",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	s.metrics.IncrementLogin("success")
	s.logger.InfoContext(ctx, "user logged in",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", user.ID.String(),
	)
	return issued, nil
}

// checkLockout rejects locked accounts. An unreachable limiter store does not
// block logins.
func (s *Service) checkLockout(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}
	err := s.limiter.Check(ctx, key)
	if err == nil {
		return nil
	}
	if dErrors.HasCode(err, dErrors.CodeRateLimited) {
		s.metrics.IncrementLogin("locked")
		return err
	}
	s.logger.WarnContext(ctx, "login lockout check skipped",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return nil
}

func (s *Service) rejectLogin(ctx context.Context, key string) {
	s.metrics.IncrementLogin("rejected")
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
}

// Logout revokes the token the caller presented.
func (s *Service) Logout(ctx context.Context, caller id.UserID, jti string, expiresAt time.Time) error {
	if jti == "" {
		return dErrors.New(dErrors.CodeInvalidCredential, "token has no id")
	}
	if err := s.revoker.Revoke(ctx, jti, expiresAt); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user logged out",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", caller.String(),
	)
	return nil
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, caller id.UserID) (*models.User, error) {
	return s.Get(ctx, caller)
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load user")
	}
	return user, nil
}

// List returns every registered user; the directory is visible to any caller.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, translateStoreError(err, "failed to list users")
	}
	return users, nil
}

// UpdateProfile renames a user. Only the user themself may do so.
func (s *Service) UpdateProfile(ctx context.Context, caller, userID id.UserID, name string) (*models.User, error) {
	if caller != userID {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to update this user")
	}
	name = strings.TrimSpace(name)
	if err := models.ValidateName(name); err != nil {
		return nil, err
	}
	user, err := s.store.UpdateName(ctx, userID, name)
	if err != nil {
		return nil, translateStoreError(err, "failed to update user")
	}
	s.logger.InfoContext(ctx, "user profile updated",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
	)
	return user, nil
}

// DisplayNames maps the ids that belong to registered users to their names.
// Unknown ids are absent from the result.
func (s *Service) DisplayNames(ctx context.Context, ids []id.UserID) (map[id.UserID]string, error) {
	names := make(map[id.UserID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	users, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, translateStoreError(err, "failed to resolve users")
	}
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

// Exists reports whether userID is a registered user.
func (s *Service) Exists(ctx context.Context, userID id.UserID) (bool, error) {
	_, err := s.store.FindByID(ctx, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	return false, translateStoreError(err, "failed to resolve user")
}

func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
