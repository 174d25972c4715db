// Package lock serializes writers of a shared resource, either inside one
// process or across processes through Redis.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned by Acquire when the context ends before the
// lock becomes free.
var ErrNotAcquired = errors.New("lock not acquired")

// Release frees a held lock. It is safe to call more than once.
type Release func(ctx context.Context) error

// Locker hands out exclusive, TTL-bounded locks keyed by resource name.
type Locker interface {
	// TryAcquire makes a single attempt and reports whether the lock was taken.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error)
	// Acquire blocks until the lock is taken or ctx is done.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

func noopRelease(context.Context) error { return nil }

// Do runs fn while holding key. wait bounds how long to block for the lock;
// zero waits as long as ctx allows.
func Do(ctx context.Context, l Locker, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) error {
	acquireCtx := ctx
	if wait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	release, err := l.Acquire(acquireCtx, key, ttl)
	if err != nil {
		return err
	}
	defer func() { _ = release(context.WithoutCancel(ctx)) }()
	return fn(ctx)
}
