package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "booking_submission:"

// SubmissionGuard blocks the same booking form from being processed twice
// while the first attempt is still in flight or was just accepted.
type SubmissionGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewSubmissionGuard(client *redis.Client, ttl time.Duration) *SubmissionGuard {
	return &SubmissionGuard{Client: client, TTL: ttl}
}

// Acquire reports false when the key is already held.
func (g *SubmissionGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.Client.SetNX(ctx, keyPrefix+key, time.Now().Unix(), g.TTL).Result()
}

func (g *SubmissionGuard) Release(ctx context.Context, key string) error {
	err := g.Client.Del(ctx, keyPrefix+key).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}
