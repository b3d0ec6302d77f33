package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"travel-booking/internal/config"
	"travel-booking/internal/logger"
)

// OpenRedis connects to Redis and checks that it accepts writes.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Addr, err))
		client.Close()
		return nil, err
	}

	if err := client.Set(ctx, "travel_booking:ping", "ok", 5*time.Second).Err(); err != nil {
		log.Error("REDIS", fmt.Sprintf("Failed to write test value to Redis: %v", err))
		client.Close()
		return nil, err
	}

	log.Info("REDIS", fmt.Sprintf("✅ Connected to Redis at %s", cfg.Addr))
	return client, nil
}
