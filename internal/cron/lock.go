package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 55 * time.Minute

// lockStore is the part of pkg/redis the cycle lock uses.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLock is the cycle lock shared by cron worker replicas. Each Acquire
// writes a fresh token, so a replica whose lock expired mid-cycle cannot
// free the lock of the replica that took over.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

// NewRedisLock builds the lock stored under the namespaced key for name.
func NewRedisLock(store lockStore, name string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for cron lock")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("cron lock name is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: store.LockKey(name), ttl: ttl}, nil
}

// Key returns the Redis key holding the lock.
func (l *RedisLock) Key() string { return l.key }

// Held reports whether this replica owns the lock as far as it knows.
func (l *RedisLock) Held() bool { return l.token != "" }

// Acquire takes the lock for the configured TTL. It reports false when
// another replica holds it.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	if l.Held() {
		return false, errors.New("cron lock already held by this worker")
	}
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release deletes the lock if it still carries this replica's token.
func (l *RedisLock) Release(ctx context.Context) error {
	if !l.Held() {
		return nil
	}
	token := l.token
	l.token = ""

	current, err := l.store.Get(ctx, l.key)
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cron lock: %w", err)
	}
	if current != token {
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete cron lock: %w", err)
	}
	return nil
}
