// Package worker runs per-language provisioning tasks on a bounded pool.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Task is a unit of work executed by a worker.
type Task interface {
	Execute(ctx context.Context) error
	ID() string
}

// Result contains the outcome of a task.
type Result struct {
	TaskID string
	Error  error
}

// Pool manages a pool of workers.
type Pool struct {
	workers   int
	tasks     chan Task
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	started   atomic.Bool
	processed atomic.Int64
	errors    atomic.Int64
}

// Config configures the worker pool.
type Config struct {
	Workers   int // Number of workers (default: GOMAXPROCS)
	QueueSize int // Size of task queue (default: workers * 2)
}

// NewPool creates a pool whose tasks run under ctx.
func NewPool(ctx context.Context, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers * 2
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers: cfg.Workers,
		tasks:   make(chan Task, cfg.QueueSize),
		results: make(chan Result, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start starts the workers. Calling it twice is a no-op.
func (p *Pool) Start() {
	if p.started.Swap(true) {
		return
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case task, ok := <-p.tasks:
			if !ok {
				return
			}

			err := task.Execute(p.ctx)

			p.processed.Add(1)
			if err != nil {
				p.errors.Add(1)
			}

			select {
			case p.results <- Result{TaskID: task.ID(), Error: err}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a task.
func (p *Pool) Submit(task Task) error {
	if !p.started.Load() {
		return fmt.Errorf("pool not started")
	}

	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Results returns the results channel.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Stop cancels running tasks and stops the pool.
func (p *Pool) Stop() {
	p.cancel()
	close(p.tasks)
	p.wg.Wait()
	close(p.results)
}

// StopWait stops the pool after all queued tasks complete.
func (p *Pool) StopWait() {
	close(p.tasks)
	p.wg.Wait()
	p.cancel()
	close(p.results)
}

// Stats returns pool statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Processed: p.processed.Load(),
		Errors:    p.errors.Load(),
		Pending:   len(p.tasks),
	}
}

// Stats contains pool statistics.
type Stats struct {
	Workers   int
	Processed int64
	Errors    int64
	Pending   int
}

func (s Stats) String() string {
	return fmt.Sprintf("workers=%d processed=%d errors=%d pending=%d",
		s.Workers, s.Processed, s.Errors, s.Pending)
}

// RunAll executes tasks on a fresh pool and returns their results in task
// order. A task that never ran because ctx ended reports ctx's error.
func RunAll(ctx context.Context, cfg Config, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		index[t.ID()] = i
		results[i] = Result{TaskID: t.ID()}
	}
	if len(tasks) == 0 {
		return results
	}

	if cfg.Workers <= 0 || cfg.Workers > len(tasks) {
		cfg.Workers = len(tasks)
	}
	cfg.QueueSize = len(tasks)

	pool := NewPool(ctx, cfg)
	pool.Start()

	done := make([]bool, len(tasks))
	for _, t := range tasks {
		if err := pool.Submit(t); err != nil {
			done[index[t.ID()]] = true
			results[index[t.ID()]].Error = err
		}
	}
	pool.StopWait()

	for r := range pool.Results() {
		i := index[r.TaskID]
		results[i] = r
		done[i] = true
	}

	for i := range results {
		if !done[i] {
			results[i].Error = ctx.Err()
			if results[i].Error == nil {
				results[i].Error = context.Canceled
			}
		}
	}
	return results
}
