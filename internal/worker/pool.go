package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// Task is a handle on a unit of work submitted to the pool. Wait blocks
// until the work has finished or the pool discarded it during shutdown.
type Task struct {
	name string
	fn   func(ctx context.Context)
	done chan struct{}
}

// Wait blocks until the task has completed
func (t *Task) Wait() {
	<-t.done
}

// Pool runs submitted tasks on a fixed set of workers. Tasks receive the
// pool's context, not the submitter's, so queued work survives request
// cancellation.
type Pool struct {
	logger     arbor.ILogger
	tasks      chan *Task
	numWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewPool creates a pool with the given number of workers
func NewPool(logger arbor.ILogger, numWorkers int) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		logger:     logger,
		tasks:      make(chan *Task, numWorkers*4),
		numWorkers: numWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start starts the worker pool
func (p *Pool) Start() {
	p.logger.Info().
		Int("num_workers", p.numWorkers).
		Msg("Starting worker pool")

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the worker pool gracefully. Running tasks finish; queued
// tasks are discarded with their handles released so waiters unblock.
// Callers must stop submitting before calling Stop.
func (p *Pool) Stop() {
	p.logger.Info().Msg("Stopping worker pool...")
	p.cancel()
	p.wg.Wait()

	for {
		select {
		case t := <-p.tasks:
			p.logger.Warn().Str("task", t.name).Msg("Task discarded during shutdown")
			close(t.done)
		default:
			p.logger.Info().Msg("Worker pool stopped")
			return
		}
	}
}

// Submit enqueues fn for execution and returns its handle. Blocks while
// the queue is full. When the pool is already stopped the handle is
// released immediately without running.
func (p *Pool) Submit(name string, fn func(ctx context.Context)) *Task {
	t := &Task{
		name: name,
		fn:   fn,
		done: make(chan struct{}),
	}

	// Checked before the send: once the pool is stopped both select
	// cases can be ready and the task must not win the queue slot.
	select {
	case <-p.ctx.Done():
		p.logger.Warn().Str("task", name).Msg("Task rejected, pool stopped")
		close(t.done)
		return t
	default:
	}

	select {
	case p.tasks <- t:
	case <-p.ctx.Done():
		p.logger.Warn().Str("task", name).Msg("Task rejected, pool stopped")
		close(t.done)
	}

	return t
}

// worker is the main worker loop
func (p *Pool) worker(workerID int) {
	defer p.wg.Done()

	p.logger.Debug().
		Int("worker_id", workerID).
		Msg("Worker started")

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopping")
			return
		case t := <-p.tasks:
			p.run(workerID, t)
		}
	}
}

// run executes a single task. Panics are contained so one bad task
// cannot take a worker out of the pool.
func (p *Pool) run(workerID int, t *Task) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Int("worker_id", workerID).
				Str("task", t.name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Recovered from panic in task")
		}
	}()

	p.logger.Debug().
		Int("worker_id", workerID).
		Str("task", t.name).
		Msg("Processing task")

	t.fn(p.ctx)
}
