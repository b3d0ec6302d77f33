package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"travel-booking/internal/models"
)

const keyPrefix = "tour_capacity:"

// RedisCache stores capacity snapshots as JSON with a short TTL.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: client, TTL: ttl}
}

func Key(tourID int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, tourID)
}

func (c *RedisCache) Get(ctx context.Context, tourID int64) (*models.CapacitySnapshot, error) {
	raw, err := c.Client.Get(ctx, Key(tourID)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get capacity snapshot from Redis: %w", err)
	}

	var snapshot models.CapacitySnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal capacity snapshot: %w", err)
	}
	return &snapshot, nil
}

func (c *RedisCache) Set(ctx context.Context, snapshot models.CapacitySnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal capacity snapshot: %w", err)
	}
	if err := c.Client.Set(ctx, Key(snapshot.TourID), raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store capacity snapshot in Redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, tourID int64) error {
	return c.Client.Del(ctx, Key(tourID)).Err()
}
