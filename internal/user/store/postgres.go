package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"taskflow/internal/platform/postgres"
	"taskflow/internal/user/models"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

const userColumns = `id, name, email, password_hash, created_at`

// PostgresStore persists users in PostgreSQL. Email uniqueness is enforced
// by the users_email_lower_idx index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user   models.User
		userID uuid.UUID
	)
	if err := row.Scan(&userID, &user.Name, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.ID = id.UserID(userID)
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *PostgresStore) Insert(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(user.ID), user.Name, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert user: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w: %w", sentinel.ErrUnavailable, err)
	}
	return user, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `id = $1`, uuid.UUID(userID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `LOWER(email) = LOWER($1)`, email)
}

// FindByIDs resolves a batch of ids in one round trip.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []id.UserID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	raw := make([]string, len(ids))
	for i, userID := range ids {
		raw[i] = userID.String()
	}
	return s.list(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, pq.Array(raw))
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.User, error) {
	return s.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY LOWER(name), id`)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	out := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) UpdateName(ctx context.Context, userID id.UserID, name string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`UPDATE users SET name = $2 WHERE id = $1 RETURNING `+userColumns, uuid.UUID(userID), name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("update user: %w: %w", sentinel.ErrUnavailable, err)
	}
	return user, nil
}
