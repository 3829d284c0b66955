package locker

import (
	"time"

	"github.com/okian/exambot/pkg/logger"
)

// Option applies a configuration option to the RedisLocker.
type Option func(*RedisLocker)

// WithTTL sets how long a lock survives a crashed holder.
func WithTTL(d time.Duration) Option {
	return func(l *RedisLocker) {
		if d > 0 {
			l.ttl = d
		}
	}
}

// WithRetry sets the polling interval while a lock is taken.
func WithRetry(d time.Duration) Option {
	return func(l *RedisLocker) {
		if d > 0 {
			l.retry = d
		}
	}
}

// WithPrefix namespaces lock keys.
func WithPrefix(p string) Option {
	return func(l *RedisLocker) {
		l.prefix = p
	}
}

// WithLogger sets a custom logger for the locker.
func WithLogger(lg logger.Logger) Option {
	return func(l *RedisLocker) {
		if lg != nil {
			l.logger = lg
		}
	}
}
