package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is used when no key is configured.
const DefaultRedisKey = "railpulse:token"

// RedisStore shares one token between several railpulse instances.
type RedisStore struct {
	client  *redis.Client
	key     string
	logger  *slog.Logger
	timeout time.Duration
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(addr, password string, db int, key string, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultRedisKey
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStore{
		client:  client,
		key:     key,
		logger:  logger,
		timeout: time.Second,
	}, nil
}

func (r *RedisStore) Load() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		r.logger.Warn("redis token load failed", "key", r.key, "error", err.Error())
		return "", fmt.Errorf("failed to load token from redis: %w", err)
	}
	return strings.TrimSpace(token), nil
}

func (r *RedisStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("failed to save token to redis: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
