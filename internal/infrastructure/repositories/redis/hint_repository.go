package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
	"github.com/digisapp/digis-app-sub003/internal/core/ports"
)

type RedisHintRepository struct {
	client *redis.Client
	key    string
}

func NewRedisHintRepository(client *redis.Client) ports.HintRepository {
	return &RedisHintRepository{
		client: client,
		key:    "digis:client:hint",
	}
}

func (r *RedisHintRepository) Save(ctx context.Context, hint domain.RoleHint) error {
	data, err := json.Marshal(hint)
	if err != nil {
		return fmt.Errorf("failed to marshal role hint: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set role hint in Redis: %w", err)
	}
	return nil
}

func (r *RedisHintRepository) Load(ctx context.Context) (domain.RoleHint, error) {
	data, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return domain.RoleHint{}, domain.ErrHintNotFound
	}
	if err != nil {
		return domain.RoleHint{}, fmt.Errorf("failed to get role hint from Redis: %w", err)
	}

	var hint domain.RoleHint
	if err := json.Unmarshal([]byte(data), &hint); err != nil {
		return domain.RoleHint{}, fmt.Errorf("failed to unmarshal role hint: %w", err)
	}
	return hint, nil
}

func (r *RedisHintRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete role hint from Redis: %w", err)
	}
	return nil
}
