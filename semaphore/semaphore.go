// Package semaphore bounds the number of work items dispatched concurrently.
package semaphore

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore limits the number of work items that can be dispatched
// concurrently.
//
// The zero-value imposes no limit.
type Semaphore struct {
	n   int
	sem *semaphore.Weighted
}

// New returns a semaphore that allows n work items to be dispatched
// concurrently. If n is zero there is no limit.
func New(n int) Semaphore {
	if n < 0 {
		panic("concurrency limit must not be negative")
	}

	if n == 0 {
		return Semaphore{}
	}

	return Semaphore{
		n,
		semaphore.NewWeighted(int64(n)),
	}
}

// Limit returns the number of work items that can be dispatched concurrently.
//
// It returns 0 if there is no limit.
func (s *Semaphore) Limit() int {
	if s.sem == nil {
		return 0
	}

	return s.n
}

// Acquire blocks until it is ok for the caller to dispatch a work item, or
// until ctx is canceled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s.sem == nil {
		return ctx.Err()
	}

	return s.sem.Acquire(ctx, 1)
}

// TryAcquire acquires the semaphore without blocking. It returns false if the
// limit has been reached.
func (s *Semaphore) TryAcquire() bool {
	if s.sem == nil {
		return true
	}

	return s.sem.TryAcquire(1)
}

// Release signals that the dispatch of a work item has completed.
func (s *Semaphore) Release() {
	if s.sem != nil {
		s.sem.Release(1)
	}
}
