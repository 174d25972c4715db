package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTTL          = 30 * time.Second
	defaultPollInterval = 25 * time.Millisecond
)

// redisStore is the subset of the redis client used for locking.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	LockKey(name string) string
}

// Redis implements Locker with SET NX PX plus an owner token, so a holder
// whose TTL expired cannot release a lock taken over by someone else.
type Redis struct {
	client       redisStore
	ownerPrefix  string
	pollInterval time.Duration
}

// NewRedis builds a Redis-backed locker. ownerPrefix identifies this process
// in lock values, which helps when inspecting keys by hand.
func NewRedis(client redisStore, ownerPrefix string) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	return &Redis{client: client, ownerPrefix: ownerPrefix, pollInterval: defaultPollInterval}, nil
}

func (r *Redis) TryAcquire(ctx context.Context, key string, ttl time.Duration) (Release, bool, error) {
	if key == "" {
		return nil, false, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	fullKey := r.client.LockKey(key)
	owner := r.ownerPrefix + ":" + uuid.NewString()

	ok, err := r.client.SetNX(ctx, fullKey, owner, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx %s: %w", fullKey, err)
	}
	if !ok {
		return noopRelease, false, nil
	}

	var once sync.Once
	release := func(ctx context.Context) error {
		var relErr error
		once.Do(func() {
			if _, err := r.client.ReleaseIfOwner(ctx, fullKey, owner); err != nil {
				relErr = fmt.Errorf("release %s: %w", fullKey, err)
			}
		})
		return relErr
	}
	return release, true, nil
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		release, ok, err := r.TryAcquire(ctx, key, ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return release, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}
}
