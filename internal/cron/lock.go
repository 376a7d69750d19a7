package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgredis "github.com/angelmondragon/moneypilot-backend/pkg/redis"
)

const (
	defaultLockTTL       = 25 * time.Hour
	defaultTenantLockTTL = 10 * time.Minute
)

// ErrLockHeld reports that another run owns the lock.
var ErrLockHeld = errors.New("lock held by another run")

// Lock coordinates exclusive runs.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisLock implements Lock using Redis SETNX + TTL.
type RedisLock struct {
	client redisStore
	key    string
	ttl    time.Duration
	owner  string
}

// NewRedisLock constructs a Redis-backed lock.
func NewRedisLock(client redisStore, key string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, key: key, ttl: ttl}, nil
}

// Key returns the redis key guarded by the lock.
func (l *RedisLock) Key() string { return l.key }

// Acquire tries to own the lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", l.key, err)
	}
	if ok {
		l.owner = owner
	}
	return ok, nil
}

// Release frees the lock if this run still owns it. Ownership is checked and
// the key deleted atomically, so a run that outlived its TTL leaves a
// successor's lock in place.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.owner == "" {
		return nil
	}
	if _, err := l.client.DeleteIfValue(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	l.owner = ""
	return nil
}

// TenantLocker allows one detection run per tenant at a time. Different
// tenants use different keys and never contend.
type TenantLocker struct {
	client redisStore
	env    string
	ttl    time.Duration
}

// NewTenantLocker builds a locker keyed by mp:detect:<env>:<tenant>.
func NewTenantLocker(client redisStore, env string, ttl time.Duration) (*TenantLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for tenant lock")
	}
	if ttl <= 0 {
		ttl = defaultTenantLockTTL
	}
	return &TenantLocker{client: client, env: strings.TrimSpace(env), ttl: ttl}, nil
}

// Run executes fn while holding the tenant's lock and returns ErrLockHeld
// without calling fn when another run owns it.
func (t *TenantLocker) Run(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	lock, err := NewRedisLock(t.client, pkgredis.DetectLockKey(t.env, tenantID), t.ttl)
	if err != nil {
		return err
	}
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		return ErrLockHeld
	}
	runErr := fn(ctx)
	// release even when the run's context is already done
	relErr := lock.Release(context.WithoutCancel(ctx))
	if runErr != nil {
		return runErr
	}
	return relErr
}
