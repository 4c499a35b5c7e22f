package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "workflow-auth:session:"

// RedisRepo stores sessions in Redis so that multiple instances of the
// service can share one session space.
type RedisRepo struct {
	client *redis.Client
	maxAge time.Duration
}

// NewRedisRepo connects to the Redis instance at url and verifies the
// connection with a ping. Sessions are written with maxAge as their TTL.
func NewRedisRepo(ctx context.Context, url string, maxAge time.Duration) (*RedisRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisRepo{client: client, maxAge: maxAge}, nil
}

// Upsert creates or updates a session
func (r *RedisRepo) Upsert(ctx context.Context, sessionID string, session Session) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+sessionID, data, r.maxAge).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (r *RedisRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	data, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("redis get: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return session, nil
}

// Delete removes a session
func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if err := r.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op for Redis: each session key carries its own TTL.
func (r *RedisRepo) DeleteExpired(context.Context, time.Time) error {
	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisRepo) Close() error {
	return r.client.Close()
}

var _ Repo = (*RedisRepo)(nil)
