package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const defaultLockPrefix = "pharmaerp:lock:"

// ErrLockHeld is returned when another process holds the lock.
var ErrLockHeld = errors.New("lock held by another process")

// RedisLocker runs a function under a Redis lock so only one worker replica does it.
type RedisLocker struct {
	client    *redislock.Client
	keyPrefix string
}

// NewRedisLocker creates a locker on an existing client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(client), keyPrefix: defaultLockPrefix}
}

// Do obtains key for ttl, runs fn and releases the key.
// fn is not run when the lock is taken; the error is then ErrLockHeld.
func (l *RedisLocker) Do(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	lock, err := l.client.Obtain(ctx, l.keyPrefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return ErrLockHeld
	}
	if err != nil {
		return fmt.Errorf("obtain lock %s: %w", key, err)
	}
	defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()

	return fn(ctx)
}
