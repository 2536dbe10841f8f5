// Package pool bounds the number of blocking external calls (extraction,
// completion, storage) running at once, so slow I/O cannot exhaust the
// request-serving goroutines.
package pool

import (
	"context"

	"golang.org/x/sync/semaphore"
)

const defaultSize = 8

// Pool is a bounded worker pool. Do blocks until a slot is free (or the
// context is cancelled while waiting), then runs fn to completion. Once fn
// has started it is never aborted.
type Pool struct {
	sem *semaphore.Weighted
}

func New(size int) *Pool {
	if size <= 0 {
		size = defaultSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Do runs fn within a pool slot and returns its error.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
