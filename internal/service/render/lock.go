package render

import (
	"context"
	"sync"
)

// Lock is a mutual-exclusion token taken in arrival order. Waiters block on a
// channel send, which the runtime services first-in first-out.
type Lock struct {
	token chan struct{}
}

func NewLock() *Lock {
	return &Lock{token: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free or ctx ends. The returned release
// func is safe to call more than once.
func (l *Lock) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.token <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-l.token })
	}, nil
}
