// Package lock serializes commands on one schedule across API replicas using Redis.
package lock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	keyPrefix    = "schedule-lock:"
)

// ErrLockHeld is returned when another holder kept the lock for the whole wait window
var ErrLockHeld = errors.New("lock is already held")

// RedisLocker hands out short-lived per-key locks held in Redis
type RedisLocker struct {
	client   redis.UniversalClient
	ttl      time.Duration
	wait     time.Duration
	newToken func() string
}

// NewRedisLocker creates a locker whose locks expire after ttl and whose
// acquisition gives up after wait
func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait, newToken: uuid.NewString}
}

// Acquire blocks until the lock for key is held or the wait window passes.
// The returned release func must be called once the command is done.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := l.newToken()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock for %s: %w", key, err)
		}
		if ok {
			return func() { l.release(redisKey, token) }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("schedule %s: %w", key, ErrLockHeld)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(10+rand.Intn(40)) * time.Millisecond):
		}
	}
}

func (l *RedisLocker) release(redisKey, token string) {
	// the lock expires on its own if this fails
	_ = l.client.Eval(context.Background(), unlockScript, []string{redisKey}, token).Err()
}
