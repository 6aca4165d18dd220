package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisSlot struct {
	redis *RedisDB
	name  string
}

func NewRedisSlot(redis *RedisDB, name string) Slot {
	return &redisSlot{redis: redis, name: name}
}

func (r *redisSlot) Load(ctx context.Context) ([]byte, error) {
	data, err := r.redis.Client.Get(ctx, r.key()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to read slot: %w", err)
	}

	return data, nil
}

func (r *redisSlot) Save(ctx context.Context, data []byte) error {
	if err := r.redis.Client.Set(ctx, r.key(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write slot: %w", err)
	}
	return nil
}

func (r *redisSlot) Clear(ctx context.Context) error {
	return r.redis.Client.Del(ctx, r.key()).Err()
}

func (r *redisSlot) Name() string {
	return "redis:" + r.key()
}

func (r *redisSlot) key() string {
	return "slot:" + r.name
}
