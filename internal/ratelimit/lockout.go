// Package ratelimit locks out login attempts for an account after repeated
// failures.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	dErrors "taskflow/pkg/domain-errors"
	"taskflow/pkg/requestcontext"
)

// Store persists lockout records. Get returns nil when no record exists.
type Store interface {
	Get(ctx context.Context, key string) (*Lockout, error)
	Save(ctx context.Context, record *Lockout, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
}

// Config bounds login attempts.
type Config struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

// DefaultConfig allows five failures per fifteen minutes.
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Window: 15 * time.Minute, LockDuration: 15 * time.Minute}
}

type Service struct {
	store  Store
	config Config
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithConfig overrides the defaults. Zero fields keep their default.
func WithConfig(cfg Config) Option {
	return func(s *Service) {
		if cfg.MaxAttempts > 0 {
			s.config.MaxAttempts = cfg.MaxAttempts
		}
		if cfg.Window > 0 {
			s.config.Window = cfg.Window
		}
		if cfg.LockDuration > 0 {
			s.config.LockDuration = cfg.LockDuration
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check returns a rate_limited error while key is locked.
func (s *Service) Check(ctx context.Context, key string) error {
	record, err := s.store.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to read login lockout")
	}
	if record != nil && record.IsLockedAt(requestcontext.Now(ctx)) {
		return dErrors.New(dErrors.CodeRateLimited, "too many failed login attempts, try again later")
	}
	return nil
}

// RecordFailure counts a failed login and locks the key once the window's
// attempts are used up.
func (s *Service) RecordFailure(ctx context.Context, key string) error {
	now := requestcontext.Now(ctx)
	record, err := s.store.Get(ctx, key)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to read login lockout")
	}
	if record == nil || !now.Before(record.WindowStart.Add(s.config.Window)) {
		record = &Lockout{Key: key, WindowStart: now}
	}
	record.Failures++
	if record.Failures >= s.config.MaxAttempts && !record.IsLockedAt(now) {
		lockedUntil := now.Add(s.config.LockDuration)
		record.LockedUntil = &lockedUntil
		s.logger.WarnContext(ctx, "login locked out",
			"request_id", requestcontext.RequestID(ctx),
			"failures", record.Failures,
			"locked_until", lockedUntil,
		)
	}
	if err := s.store.Save(ctx, record, record.expiresAt(s.config.Window).Sub(now)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to record login failure")
	}
	return nil
}

// Clear forgets the failures of key after a successful login.
func (s *Service) Clear(ctx context.Context, key string) error {
	if err := s.store.Clear(ctx, key); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "failed to clear login lockout")
	}
	return nil
}
