package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

type RedisSnapshotRepository struct {
	client *redis.Client
	key    string
}

func NewRedisSnapshotRepository(client *redis.Client) ports.SnapshotRepository {
	return &RedisSnapshotRepository{
		client: client,
		key:    "digis:client:snapshot",
	}
}

func (r *RedisSnapshotRepository) Save(ctx context.Context, snap domain.StateSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal state snapshot: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set state snapshot in Redis: %w", err)
	}
	return nil
}

func (r *RedisSnapshotRepository) Load(ctx context.Context) (domain.StateSnapshot, error) {
	data, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return domain.StateSnapshot{}, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return domain.StateSnapshot{}, fmt.Errorf("failed to get state snapshot from Redis: %w", err)
	}

	var snap domain.StateSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return domain.StateSnapshot{}, fmt.Errorf("failed to unmarshal state snapshot: %w", err)
	}
	return snap, nil
}

func (r *RedisSnapshotRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete state snapshot from Redis: %w", err)
	}
	return nil
}
