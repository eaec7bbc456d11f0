// Package lock serializes mutations of a single room.
//
// A room mutation is read-modify-write over the whole aggregate, so two
// concurrent requests against the same room must not interleave. Local
// guards a single process; Redis coordinates several processes sharing one
// database.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotObtained is returned when a lock could not be acquired before the
// context ended or the retry budget ran out.
var ErrNotObtained = errors.New("lock: not obtained")

// Locker hands out exclusive locks by key.
type Locker interface {
	Obtain(ctx context.Context, key string) (Lock, error)
}

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Local is an in-process Locker keyed by string. The zero value is not
// usable; call NewLocal.
type Local struct {
	mu   sync.Mutex
	keys map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewLocal creates an in-process Locker.
func NewLocal() *Local {
	return &Local{keys: make(map[string]*entry)}
}

// Obtain blocks until key is free or ctx is done.
func (l *Local) Obtain(ctx context.Context, key string) (Lock, error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
		return &localLock{owner: l, key: key, e: e}, nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, errors.Join(ErrNotObtained, ctx.Err())
	}
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

type localLock struct {
	owner *Local
	key   string
	e     *entry
	once  sync.Once
}

func (k *localLock) Release(context.Context) error {
	k.once.Do(func() {
		<-k.e.sem
		k.owner.unref(k.key, k.e)
	})
	return nil
}
