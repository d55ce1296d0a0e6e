// Package workerpool runs fallible tasks on a fixed number of goroutines.
//
// The backup exporter uses it to pull several collections from the remote
// backend at once without opening one connection per collection:
//
//	pool := workerpool.New(4)
//	defer pool.Shutdown()
//
//	b := pool.Batch(ctx)
//	for _, name := range collections {
//	    b.Go(func(ctx context.Context) error { return export(ctx, name) })
//	}
//	err := b.Wait()
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned for work handed to a pool after Shutdown.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a fixed set of workers fed from a small buffered queue.
type Pool struct {
	jobs    chan func()
	workers sync.WaitGroup
	stop    sync.Once

	mu     sync.RWMutex
	closed bool
}

// New starts size workers. Sizes below one are raised to one.
func New(size int) *Pool {
	size = max(size, 1)
	p := &Pool{jobs: make(chan func(), size)}
	p.workers.Add(size)
	for range size {
		go p.loop()
	}
	return p
}

// Do queues job, blocking while every worker is busy.
func (p *Pool) Do(job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.jobs <- job
	return nil
}

// Shutdown drains queued jobs and stops the workers. Safe to call twice.
func (p *Pool) Shutdown() {
	p.stop.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.jobs)
		p.mu.Unlock()
		p.workers.Wait()
	})
}

func (p *Pool) loop() {
	defer p.workers.Done()
	for job := range p.jobs {
		func() {
			defer func() { _ = recover() }()
			job()
		}()
	}
}

// Batch is a group of tasks whose errors are collected together.
type Batch struct {
	pool *Pool
	ctx  context.Context
	wg   sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// Batch starts a task group bound to ctx.
func (p *Pool) Batch(ctx context.Context) *Batch {
	return &Batch{pool: p, ctx: ctx}
}

// Go queues task. Tasks that reach a worker after ctx is done are skipped
// and record ctx.Err(). A panicking task records an error instead.
func (b *Batch) Go(task func(ctx context.Context) error) {
	b.wg.Add(1)
	err := b.pool.Do(func() {
		defer b.wg.Done()
		if err := b.ctx.Err(); err != nil {
			b.fail(err)
			return
		}
		b.fail(guard(b.ctx, task))
	})
	if err != nil {
		b.wg.Done()
		b.fail(err)
	}
}

// Wait blocks until every task has finished and returns their errors
// joined, or nil.
func (b *Batch) Wait() error {
	b.wg.Wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	return errors.Join(b.errs...)
}

func (b *Batch) fail(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

func guard(ctx context.Context, task func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workerpool: task panicked: %v", r)
		}
	}()
	return task(ctx)
}
