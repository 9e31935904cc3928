package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "pharmaerp:notify:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisGuard claims dedupe keys with SETNX.
type RedisGuard struct {
	client    *redis.Client
	keyPrefix string
}

var _ Guard = (*RedisGuard)(nil)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisGuard creates a guard on an existing client.
func NewRedisGuard(client *redis.Client, keyPrefix string) *RedisGuard {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisGuard{client: client, keyPrefix: keyPrefix}
}

// Claim sets the key if absent, with a TTL, in one atomic operation.
func (g *RedisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim dedupe key: %w", err)
	}
	return ok, nil
}

// Release deletes the key.
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, g.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release dedupe key: %w", err)
	}
	return nil
}
