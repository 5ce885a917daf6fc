// Package keylock provides per-key mutual exclusion.
//
// Mutating operations on one conversation, or one report generation key,
// must be serialized without blocking unrelated keys. A KeyedMutex holds a
// refcounted mutex per active key; idle keys carry no memory cost.
package keylock

import (
	"context"
	"sync"
)

// KeyedMutex serializes callers per key. The zero value is not usable;
// construct with New.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	ch   chan struct{} // capacity 1; holding the token means holding the lock
	refs int
}

// New returns an empty KeyedMutex.
func New() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key, blocking until it is free or ctx is
// done. On ctx expiry the lock is not held and ctx.Err() is returned, so a
// caller stuck behind a slow upstream holder can give up cleanly.
func (k *KeyedMutex) Lock(ctx context.Context, key string) error {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, e)
		return ctx.Err()
	}
}

// Unlock releases the mutex for key. Calling Unlock for a key that is not
// held is a programming error and panics, same as sync.Mutex.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		panic("keylock: unlock of unlocked key " + key)
	}
	select {
	case <-e.ch:
	default:
		panic("keylock: unlock of unlocked key " + key)
	}
	k.release(key, e)
}

func (k *KeyedMutex) release(key string, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
