// Package locker provides a Redis-backed per-course lock so several bot
// processes never reconcile the same channel at once.
package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/okian/exambot/pkg/logger"
	"github.com/okian/exambot/pkg/metrics"
)

const (
	defaultTTL       = 30 * time.Second
	defaultRetry     = 100 * time.Millisecond
	defaultPrefix    = "exambot:lock:"
	unlockTimeout    = 5 * time.Second
	compareAndDelete = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
)

// Client is the subset of the Redis client the locker uses.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisLocker implements notify.Locker with SET NX and a random token. Only
// the holder's token can release the key; an expired lock is simply lost.
type RedisLocker struct {
	client Client
	ttl    time.Duration
	retry  time.Duration
	prefix string
	logger logger.Logger
}

// New creates a RedisLocker.
func New(client Client, opts ...Option) *RedisLocker {
	l := &RedisLocker{
		client: client,
		ttl:    defaultTTL,
		retry:  defaultRetry,
		prefix: defaultPrefix,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until key is acquired or ctx ends.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			metrics.RecordErrorByComponent("locker", "setnx")
			return nil, fmt.Errorf("%w: %s: %w", ErrLock, k, err)
		}
		if ok {
			l.logger.Debug(ctx, "lock acquired", logger.String("key", k))
			return l.unlocker(k, token), nil
		}

		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *RedisLocker) unlocker(k, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		n, err := l.client.Eval(ctx, compareAndDelete, []string{k}, token).Int64()
		switch {
		case err != nil:
			metrics.RecordErrorByComponent("locker", "unlock")
			l.logger.Warn(ctx, "lock release failed; it will expire", logger.String("key", k), logger.Error(err))
		case n == 0:
			l.logger.Warn(ctx, "lock expired before release", logger.String("key", k))
		}
	}
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis %s: %w", addr, err)
	}
	return c, nil
}
