package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskflow/internal/notification/models"
	"taskflow/internal/platform/postgres"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

const notificationColumns = `id, recipient, sender, task_id, message, type, read, created_at`

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	var (
		n              models.Notification
		notificationID uuid.UUID
		recipient      uuid.UUID
		sender         uuid.NullUUID
		taskID         uuid.NullUUID
	)
	if err := row.Scan(&notificationID, &recipient, &sender, &taskID, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.ID = id.NotificationID(notificationID)
	n.Recipient = id.UserID(recipient)
	if sender.Valid {
		s := id.UserID(sender.UUID)
		n.Sender = &s
	}
	if taskID.Valid {
		t := id.TaskID(taskID.UUID)
		n.Task = &t
	}
	n.CreatedAt = n.CreatedAt.UTC()
	return &n, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}

func (s *PostgresStore) Insert(ctx context.Context, n *models.Notification) error {
	var sender, taskID uuid.NullUUID
	if n.Sender != nil {
		sender = uuid.NullUUID{UUID: uuid.UUID(*n.Sender), Valid: true}
	}
	if n.Task != nil {
		taskID = uuid.NullUUID{UUID: uuid.UUID(*n.Task), Valid: true}
	}
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(n.ID), uuid.UUID(n.Recipient), sender, taskID, n.Message, string(n.Type), n.Read, n.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("insert notification: %w", sentinel.ErrConflict)
		}
		return unavailable("insert notification", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, uuid.UUID(notificationID))
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification not found: %w", sentinel.ErrNotFound)
		}
		return nil, unavailable("find notification", err)
	}
	return n, nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipient id.UserID) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE recipient = $1 ORDER BY created_at DESC, id DESC`,
		uuid.UUID(recipient))
	if err != nil {
		return nil, unavailable("list notifications", err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate notifications", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 RETURNING `+notificationColumns,
		uuid.UUID(notificationID))
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification not found: %w", sentinel.ErrNotFound)
		}
		return nil, unavailable("mark notification read", err)
	}
	return n, nil
}

func (s *PostgresStore) exec(ctx context.Context, op, query string, args ...any) (int, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s rows affected: %w", op, err)
	}
	return int(n), nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, recipient id.UserID) (int, error) {
	return s.exec(ctx, "mark all read",
		`UPDATE notifications SET read = TRUE WHERE recipient = $1 AND read = FALSE`, uuid.UUID(recipient))
}

func (s *PostgresStore) Delete(ctx context.Context, notificationID id.NotificationID) error {
	n, err := s.exec(ctx, "delete notification", `DELETE FROM notifications WHERE id = $1`, uuid.UUID(notificationID))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("notification not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteRead(ctx context.Context, recipient id.UserID) (int, error) {
	return s.exec(ctx, "delete read notifications",
		`DELETE FROM notifications WHERE recipient = $1 AND read = TRUE`, uuid.UUID(recipient))
}

func (s *PostgresStore) DeleteByTask(ctx context.Context, taskID id.TaskID) (int, error) {
	return s.exec(ctx, "delete task notifications",
		`DELETE FROM notifications WHERE task_id = $1`, uuid.UUID(taskID))
}

func (s *PostgresStore) CountUnread(ctx context.Context, recipient id.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient = $1 AND read = FALSE`, uuid.UUID(recipient)).Scan(&count)
	if err != nil {
		return 0, unavailable("count unread notifications", err)
	}
	return count, nil
}
