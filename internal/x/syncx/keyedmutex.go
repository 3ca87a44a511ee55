// Package syncx contains synchronization primitives that are not provided by
// the standard library.
package syncx

import (
	"context"
	"sync"
)

// UnlockFunc is a function used to unlock a previously locked mutex.
type UnlockFunc func()

// KeyedMutex is a set of context-aware mutexes, identified by a string key.
//
// Mutexes are created on demand and discarded once they are no longer locked
// or waited upon, so the set does not grow with the number of distinct keys
// ever used.
//
// The zero-value is ready to use.
type KeyedMutex struct {
	m       sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	guard chan struct{} // buffered, send = lock, receive = unlock
	refs  int           // number of pending or successful Lock() calls
}

// Lock acquires an exclusive lock on the mutex with the given key.
//
// It blocks until the mutex is acquired, or ctx is canceled. It returns a
// function that must be called to unlock the mutex; calling it more than once
// has no effect.
func (km *KeyedMutex) Lock(ctx context.Context, key string) (UnlockFunc, error) {
	e := km.acquire(key)

	select {
	case <-ctx.Done():
		km.release(key, e)
		return nil, ctx.Err()

	case e.guard <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.guard
				km.release(key, e)
			})
		}, nil
	}
}

// Len returns the number of keys that are currently locked or waited upon.
func (km *KeyedMutex) Len() int {
	km.m.Lock()
	defer km.m.Unlock()

	return len(km.entries)
}

// acquire returns the entry for key, creating it if necessary, and adds a
// reference to it.
func (km *KeyedMutex) acquire(key string) *keyedEntry {
	km.m.Lock()
	defer km.m.Unlock()

	e, ok := km.entries[key]
	if !ok {
		if km.entries == nil {
			km.entries = map[string]*keyedEntry{}
		}

		e = &keyedEntry{guard: make(chan struct{}, 1)}
		km.entries[key] = e
	}

	e.refs++

	return e
}

// release removes a reference to e, discarding it once it is unreferenced.
func (km *KeyedMutex) release(key string, e *keyedEntry) {
	km.m.Lock()
	defer km.m.Unlock()

	e.refs--

	if e.refs == 0 {
		delete(km.entries, key)
	}
}
