package revocation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskflow/pkg/platform/sentinel"
)

// Postgres persists revoked token ids in the token_revocations table.
type Postgres struct {
	db    *sql.DB
	clock Clock
}

type PostgresOption func(*Postgres)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock Clock) PostgresOption {
	return func(l *Postgres) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	l := &Postgres{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Postgres) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if skip(jti, ttl) {
		return nil
	}
	query := `
		INSERT INTO token_revocations (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO UPDATE SET
			expires_at = EXCLUDED.expires_at
	`
	if _, err := l.db.ExecContext(ctx, query, jti, l.clock().Add(ttl)); err != nil {
		return fmt.Errorf("revoke token: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (l *Postgres) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var expiresAt time.Time
	err := l.db.QueryRowContext(ctx, `SELECT expires_at FROM token_revocations WHERE jti = $1`, jti).Scan(&expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check token revocation: %w: %w", sentinel.ErrUnavailable, err)
	}
	return l.clock().Before(expiresAt), nil
}

// PurgeExpired deletes rows whose tokens can no longer be presented.
func (l *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM token_revocations WHERE expires_at <= $1`, l.clock())
	if err != nil {
		return 0, fmt.Errorf("purge expired revocations: %w: %w", sentinel.ErrUnavailable, err)
	}
	return res.RowsAffected()
}
