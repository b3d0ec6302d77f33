package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"travel-booking/internal/models"
)

const sessionKeyPrefix = "session:"

var ErrSessionNotFound = errors.New("session not found")

// RedisSessionStore keeps logged-in actors in Redis, one JSON value per session id.
type RedisSessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{Client: client, TTL: ttl}
}

// Create stores actor under a new random session id and returns the id.
func (s *RedisSessionStore) Create(ctx context.Context, actor models.Actor) (string, error) {
	id := uuid.NewString()
	if err := s.put(ctx, id, actor); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns ErrSessionNotFound for unknown or expired sessions. Reading
// a session extends its lifetime.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (models.Actor, error) {
	raw, err := s.Client.Get(ctx, sessionKeyPrefix+id).Result()
	if err == redis.Nil {
		return models.Actor{}, ErrSessionNotFound
	} else if err != nil {
		return models.Actor{}, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var actor models.Actor
	if err := json.Unmarshal([]byte(raw), &actor); err != nil {
		return models.Actor{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if err := s.Client.Expire(ctx, sessionKeyPrefix+id, s.TTL).Err(); err != nil {
		return models.Actor{}, fmt.Errorf("failed to refresh session: %w", err)
	}
	return actor, nil
}

// UpdateRole rewrites the role of a live session, used after a role switch.
func (s *RedisSessionStore) UpdateRole(ctx context.Context, id string, role models.Role) error {
	actor, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	actor.Role = role
	return s.put(ctx, id, actor)
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.Client.Del(ctx, sessionKeyPrefix+id).Err()
}

func (s *RedisSessionStore) put(ctx context.Context, id string, actor models.Actor) error {
	raw, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.Client.Set(ctx, sessionKeyPrefix+id, raw, s.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return nil
}
