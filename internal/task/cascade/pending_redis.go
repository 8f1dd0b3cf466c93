package cascade

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "taskflow/pkg/domain"
)

// pendingSetKey holds the ids of tasks awaiting notification cleanup.
const pendingSetKey = "cascade:pending"

// RedisPendingLog stores pending task ids in a Redis set so every instance
// sees the same repair backlog.
type RedisPendingLog struct {
	client *redis.Client
}

func NewRedisPendingLog(client *redis.Client) *RedisPendingLog {
	return &RedisPendingLog{client: client}
}

func (l *RedisPendingLog) Record(ctx context.Context, taskID id.TaskID) error {
	if err := l.client.SAdd(ctx, pendingSetKey, taskID.String()).Err(); err != nil {
		return fmt.Errorf("record pending cleanup: %w", err)
	}
	return nil
}

func (l *RedisPendingLog) Remove(ctx context.Context, taskID id.TaskID) error {
	if err := l.client.SRem(ctx, pendingSetKey, taskID.String()).Err(); err != nil {
		return fmt.Errorf("remove pending cleanup: %w", err)
	}
	return nil
}

func (l *RedisPendingLog) List(ctx context.Context) ([]id.TaskID, error) {
	members, err := l.client.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending cleanups: %w", err)
	}
	out := make([]id.TaskID, 0, len(members))
	for _, member := range members {
		taskID, err := id.ParseTaskID(member)
		if err != nil {
			// Unparseable members can never be repaired.
			_ = l.client.SRem(ctx, pendingSetKey, member).Err()
			continue
		}
		out = append(out, taskID)
	}
	return out, nil
}
