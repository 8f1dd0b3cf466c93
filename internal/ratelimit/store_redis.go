package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskflow/pkg/platform/sentinel"
)

const redisKeyPrefix = "login:lockout:"

// Redis stores lockout records as JSON values that expire with their window.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Get(ctx context.Context, key string) (*Lockout, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get login lockout: %w: %w", sentinel.ErrUnavailable, err)
	}
	var record Lockout
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode login lockout: %w", err)
	}
	return &record, nil
}

func (s *Redis) Save(ctx context.Context, record *Lockout, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Clear(ctx, record.Key)
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode login lockout: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+record.Key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save login lockout: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *Redis) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("clear login lockout: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
