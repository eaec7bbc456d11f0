package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Redis is a Locker backed by redislock. Keys are prefixed so several
// applications can share one Redis database.
type Redis struct {
	client  *redislock.Client
	prefix  string
	ttl     time.Duration
	retries int
	backoff time.Duration
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithTTL sets how long a lock survives if its holder crashes (default 30s).
func WithTTL(d time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = d }
}

// WithRetry sets the retry budget while a lock is held elsewhere
// (default 50 attempts, 100ms apart).
func WithRetry(attempts int, backoff time.Duration) RedisOption {
	return func(r *Redis) {
		r.retries = attempts
		r.backoff = backoff
	}
}

// WithPrefix sets the key prefix (default "rentledger:lock:").
func WithPrefix(p string) RedisOption {
	return func(r *Redis) { r.prefix = p }
}

// NewRedis wraps a go-redis client.
func NewRedis(rdb redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:  redislock.New(rdb),
		prefix:  "rentledger:lock:",
		ttl:     30 * time.Second,
		retries: 50,
		backoff: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Obtain acquires key, retrying with linear backoff.
func (r *Redis) Obtain(ctx context.Context, key string) (Lock, error) {
	l, err := r.client.Obtain(ctx, r.prefix+key, r.ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(r.backoff), r.retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}
	return redisLock{l}, nil
}

type redisLock struct{ l *redislock.Lock }

func (k redisLock) Release(ctx context.Context) error {
	err := k.l.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return err
}
