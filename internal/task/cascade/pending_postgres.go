package cascade

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "taskflow/pkg/domain"
)

// PostgresPendingLog stores pending task ids in the pending_cascades table.
type PostgresPendingLog struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresPendingLog(db *sql.DB) *PostgresPendingLog {
	return &PostgresPendingLog{db: db, clock: time.Now}
}

func (l *PostgresPendingLog) Record(ctx context.Context, taskID id.TaskID) error {
	query := `
		INSERT INTO pending_cascades (task_id, recorded_at)
		VALUES ($1, $2)
		ON CONFLICT (task_id) DO NOTHING
	`
	if _, err := l.db.ExecContext(ctx, query, uuid.UUID(taskID), l.clock()); err != nil {
		return fmt.Errorf("record pending cleanup: %w", err)
	}
	return nil
}

func (l *PostgresPendingLog) Remove(ctx context.Context, taskID id.TaskID) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM pending_cascades WHERE task_id = $1`, uuid.UUID(taskID)); err != nil {
		return fmt.Errorf("remove pending cleanup: %w", err)
	}
	return nil
}

func (l *PostgresPendingLog) List(ctx context.Context) ([]id.TaskID, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT task_id FROM pending_cascades ORDER BY recorded_at`)
	if err != nil {
		return nil, fmt.Errorf("list pending cleanups: %w", err)
	}
	defer rows.Close()

	var out []id.TaskID
	for rows.Next() {
		var taskID uuid.UUID
		if err := rows.Scan(&taskID); err != nil {
			return nil, fmt.Errorf("scan pending cleanup: %w", err)
		}
		out = append(out, id.TaskID(taskID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending cleanups: %w", err)
	}
	return out, nil
}
