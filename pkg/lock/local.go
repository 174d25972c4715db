package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Local is an in-process keyed mutex. The TTL is ignored because a holder
// cannot outlive the process that owns the lock.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) TryAcquire(_ context.Context, key string, _ time.Duration) (Release, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("lock key is required")
	}
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return releaseOnce(ch), true, nil
	default:
		return noopRelease, false, nil
	}
}

func (l *Local) Acquire(ctx context.Context, key string, _ time.Duration) (Release, error) {
	if key == "" {
		return nil, fmt.Errorf("lock key is required")
	}
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return releaseOnce(ch), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
	}
}

func releaseOnce(ch chan struct{}) Release {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() { <-ch })
		return nil
	}
}
