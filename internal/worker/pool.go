// internal/worker/pool.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"translation-dispatch/internal/dispatch"
	"translation-dispatch/internal/domain"
)

var (
	// ErrPoolClosed is returned for tasks submitted after Stop.
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrPoolNotStarted is returned for tasks submitted before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")
	// ErrUnknownWorker is returned by SubmitTo for an id outside the pool.
	ErrUnknownWorker = errors.New("unknown worker")
	// ErrTaskPanicked wraps a panic recovered while running a task.
	ErrTaskPanicked = errors.New("translation task panicked")
)

// PoolConfig sizes a Pool.
type PoolConfig struct {
	// Size is the number of workers, and so the maximum number of engines.
	Size int
	// LockOSThread pins every worker goroutine, and the engine it owns, to one
	// OS thread for the worker's whole life.
	LockOSThread bool
}

type result struct {
	histories domain.Histories
	err       error
}

type job struct {
	ctx  context.Context
	task *domain.Task
	done chan result
}

// Pool runs a fixed set of workers. Each worker owns one engine slot, so a
// pool never holds more engines than it has workers and never lets two
// workers touch the same engine.
type Pool struct {
	factory  domain.EngineFactory
	cfg      PoolConfig
	logger   *slog.Logger
	observer dispatch.Observer

	tasks   chan *job
	workers []*Worker
	wg      sync.WaitGroup

	mu       sync.Mutex
	started  bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPool creates a pool of cfg.Size workers (at least one).
func NewPool(factory domain.EngineFactory, cfg PoolConfig, logger *slog.Logger) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	p := &Pool{
		factory:  factory,
		cfg:      cfg,
		logger:   logger.With("component", "worker-pool"),
		observer: metricsObserver{},
		tasks:    make(chan *job),
		stopCh:   make(chan struct{}),
	}
	p.workers = make([]*Worker, cfg.Size)
	for i := range cfg.Size {
		p.workers[i] = newWorker(i+1, p)
	}
	return p
}

// Start launches the worker goroutines. Calling it again is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	p.logger.Info("starting worker pool", "worker_count", len(p.workers), "lock_os_thread", p.cfg.LockOSThread)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run()
		}()
	}
}

// Stop signals the workers to exit after their current task and waits for
// them until ctx is done. Workers release their engines on the way out.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.logger.Info("stopping worker pool", "worker_count", len(p.workers))

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out", "error", ctx.Err())
		return ctx.Err()
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Worker returns the worker with the given 1-based id.
func (p *Pool) Worker(id int) (*Worker, bool) {
	if id < 1 || id > len(p.workers) {
		return nil, false
	}
	return p.workers[id-1], true
}

// Submit hands task to the next free worker and waits for its histories.
// If ctx ends while the task is running, Submit returns ctx.Err() but the
// worker still finishes the task.
func (p *Pool) Submit(ctx context.Context, task *domain.Task) (domain.Histories, error) {
	return p.submit(ctx, p.tasks, task)
}

// SubmitTo runs task on one specific worker, behind any tasks already
// queued for it.
func (p *Pool) SubmitTo(ctx context.Context, workerID int, task *domain.Task) (domain.Histories, error) {
	w, ok := p.Worker(workerID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWorker, workerID)
	}
	return p.submit(ctx, w.inbox, task)
}

func (p *Pool) submit(ctx context.Context, queue chan<- *job, task *domain.Task) (domain.Histories, error) {
	if err := task.Validate(); err != nil {
		taskRejected()
		return nil, err
	}

	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil, ErrPoolNotStarted
	}

	j := &job{ctx: context.WithoutCancel(ctx), task: task, done: make(chan result, 1)}
	select {
	case queue <- j:
	case <-p.stopCh:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-j.done:
		return r.histories, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
