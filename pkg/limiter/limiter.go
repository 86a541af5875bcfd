// Package limiter bounds how many network-bound operations run at once.
//
// A single Limiter is built by the top-level orchestrator and handed to
// every component that talks to the remote catalog. Each listing
// accumulation and each chapter download holds exactly one permit for its
// whole body; page fetches inside a chapter do not take extra permits.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultCeiling is the number of permits used by the CLI.
const DefaultCeiling = 30

type Limiter struct {
	sem     *semaphore.Weighted
	ceiling int64
	held    atomic.Int64
}

func New(ceiling int) *Limiter {
	if ceiling < 1 {
		ceiling = 1
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(ceiling)),
		ceiling: int64(ceiling),
	}
}

// Acquire blocks until a permit is free. Admission order is not FIFO
// across callers.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.held.Add(1)
	return nil
}

func (l *Limiter) Release() {
	l.held.Add(-1)
	l.sem.Release(1)
}

// Do runs fn while holding a permit. The permit is returned on every exit
// path, including panics.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

func (l *Limiter) Ceiling() int {
	return int(l.ceiling)
}

// InUse reports the number of permits currently held.
func (l *Limiter) InUse() int {
	return int(l.held.Load())
}
