// Package redis holds the Redis-backed coordination used when several
// instances share one knowledge base store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/baumi-labs/baumi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// DefaultLockPrefix namespaces sync lock keys.
const DefaultLockPrefix = "baumi:lock:"

// ErrNotHeld is returned by Extend when the lock expired or belongs to
// another instance.
var ErrNotHeld = errors.New("lock not held by this instance")

// Lock implements DistributedLock with SET NX and a holder token, so one
// instance never releases a lock taken by another.
type Lock struct {
	client *redis.Client
	prefix string
	holder string
}

// NewLock creates a lock on client. An empty prefix uses DefaultLockPrefix.
func NewLock(client *redis.Client, prefix string) *Lock {
	if prefix == "" {
		prefix = DefaultLockPrefix
	}
	return &Lock{
		client: client,
		prefix: prefix,
		holder: newHolder(),
	}
}

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// newHolder returns hostname:pid:uuid.
func newHolder() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), uuid.NewString())
}

func (l *Lock) key(name string) string {
	return l.prefix + name
}

// Acquire returns false without error when another holder owns name.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// compareAndDelete deletes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// compareAndExpire moves the expiry of KEYS[1] only while it still holds ARGV[1].
var compareAndExpire = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// Release is a no-op when the lock has expired or changed hands.
func (l *Lock) Release(ctx context.Context, name string) error {
	err := compareAndDelete.Run(ctx, l.client, []string{l.key(name)}, l.holder).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := compareAndExpire.Run(ctx, l.client, []string{l.key(name)}, l.holder, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, ErrNotHeld)
	}
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Holder identifies this instance in lock values.
func (l *Lock) Holder() string {
	return l.holder
}
