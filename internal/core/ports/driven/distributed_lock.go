package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates knowledge base syncs across instances.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns false if the lock is already held by another holder.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock. Safe to call when the lock has expired.
	Release(ctx context.Context, name string) error

	// Extend pushes the expiry of a held lock forward.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
