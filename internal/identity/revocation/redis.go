package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskflow/pkg/platform/sentinel"
)

const revokedTokenKeyPrefix = "trl:jti:"

// Redis shares revocations across instances. Key expiry does the cleanup.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Revoke uses SET with expiry; the key existence is what matters.
func (l *Redis) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if skip(jti, ttl) {
		return nil
	}
	if err := l.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (l *Redis) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w: %w", sentinel.ErrUnavailable, err)
	}
	return true, nil
}
