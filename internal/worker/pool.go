// internal/worker/pool.go
package worker

import (
	"context"
	"sync"
)

// Pool bounds the number of concurrently running tasks
type Pool struct {
	wg      sync.WaitGroup
	workers chan struct{}
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		workers: make(chan struct{}, size),
	}
}

// Acquire blocks until a worker slot is free or ctx is done
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.workers <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire
func (p *Pool) Release() {
	<-p.workers
}

// Submit runs task on a free worker, blocking until one is available.
// It returns ctx.Err() without running the task if ctx ends first.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	if err := p.Acquire(ctx); err != nil {
		return err
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			p.Release()
			p.wg.Done()
		}()

		task()
	}()
	return nil
}

// Wait waits for all submitted tasks to complete
func (p *Pool) Wait() {
	p.wg.Wait()
}
