package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/platform/postgres"
	"taskflow/internal/task/models"
	"taskflow/internal/task/query"
	id "taskflow/pkg/domain"
	"taskflow/pkg/platform/sentinel"
)

const taskColumns = `id, title, description, status, priority, due_date, created_by, assigned_to, created_at, updated_at`

// PostgresStore persists tasks in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed task store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task       models.Task
		taskID     uuid.UUID
		createdBy  uuid.UUID
		assignedTo uuid.NullUUID
		dueDate    sql.NullTime
	)
	if err := row.Scan(&taskID, &task.Title, &task.Description, &task.Status, &task.Priority,
		&dueDate, &createdBy, &assignedTo, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	task.ID = id.TaskID(taskID)
	task.CreatedBy = id.UserID(createdBy)
	if assignedTo.Valid {
		assignee := id.UserID(assignedTo.UUID)
		task.AssignedTo = &assignee
	}
	if dueDate.Valid {
		due := dueDate.Time.UTC()
		task.DueDate = &due
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return &task, nil
}

func nullableUser(u *id.UserID) uuid.NullUUID {
	if u == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*u), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *PostgresStore) Insert(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(task.ID), task.Title, task.Description, task.Status, task.Priority,
		nullableTime(task.DueDate), uuid.UUID(task.CreatedBy), nullableUser(task.AssignedTo),
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("insert task: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert task: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, taskID id.TaskID) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, uuid.UUID(taskID))
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find task: %w: %w", sentinel.ErrUnavailable, err)
	}
	return task, nil
}

// Find translates p into a WHERE clause. Search uses ILIKE with the pattern
// metacharacters escaped, so the caller's text is matched literally.
func (s *PostgresStore) Find(ctx context.Context, p query.Predicate) ([]*models.Task, error) {
	where, args := predicateSQL(p)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	out := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w: %w", sentinel.ErrUnavailable, err)
	}
	return out, nil
}

func predicateSQL(p query.Predicate) (string, []any) {
	args := []any{uuid.UUID(p.Caller)}
	clauses := []string{"(created_by = $1 OR assigned_to = $1)"}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if p.Status != nil {
		clauses = append(clauses, "status = "+next(string(*p.Status)))
	}
	if p.Priority != nil {
		clauses = append(clauses, "priority = "+next(string(*p.Priority)))
	}
	if p.DueBefore != nil {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date <= "+next(*p.DueBefore))
	}
	if p.Search != "" {
		pattern := next("%" + escapeLike(p.Search) + "%")
		clauses = append(clauses, fmt.Sprintf(`(title ILIKE %[1]s ESCAPE '\' OR description ILIKE %[1]s ESCAPE '\')`, pattern))
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Update issues a single UPDATE touching only the fields present in patch.
func (s *PostgresStore) Update(ctx context.Context, taskID id.TaskID, patch models.TaskPatch, now time.Time) (*models.Task, error) {
	args := []any{uuid.UUID(taskID)}
	sets := make([]string, 0, 7)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		set("priority", string(*patch.Priority))
	}
	if patch.DueDate.Set {
		set("due_date", nullableTime(patch.DueDate.Value))
	}
	if patch.AssignedTo.Set {
		set("assigned_to", nullableUser(patch.AssignedTo.Value))
	}
	set("updated_at", now)

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + taskColumns
	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("update task: %w: %w", sentinel.ErrUnavailable, err)
	}
	return task, nil
}

func (s *PostgresStore) Delete(ctx context.Context, taskID id.TaskID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, uuid.UUID(taskID))
	if err != nil {
		return fmt.Errorf("delete task: %w: %w", sentinel.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
