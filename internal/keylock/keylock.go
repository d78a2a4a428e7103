// Package keylock provides per-key critical sections that honour context
// cancellation and can be re-entered by code holding the key.
package keylock

import (
	"context"
	"sync"
)

type entry struct {
	sem  chan struct{}
	refs int
}

type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type heldKey struct {
	locker *Locker
	key    string
}

func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock blocks until key is free or ctx is done. The returned context marks
// key as held: Lock calls made with it (or a context derived from it) return
// immediately with a no-op unlock.
func (l *Locker) Lock(ctx context.Context, key string) (context.Context, func(), error) {
	hk := heldKey{locker: l, key: key}
	if ctx.Value(hk) != nil {
		return ctx, func() {}, nil
	}

	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return ctx, nil, ctx.Err()
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			<-e.sem
			l.release(key, e)
		})
	}
	return context.WithValue(ctx, hk, struct{}{}), unlock, nil
}

func (l *Locker) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Len returns the number of keys currently locked or waited on.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
