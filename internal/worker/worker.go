// internal/worker/worker.go
package worker

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"translation-dispatch/internal/dispatch"
	"translation-dispatch/internal/domain"
	"translation-dispatch/internal/metrics"
)

// Worker is one goroutine of a Pool together with the engine slot it owns.
// The slot lives on the goroutine's stack and is never handed out.
type Worker struct {
	id        int
	name      string
	pool      *Pool
	inbox     chan *job
	processed atomic.Int64
}

func newWorker(id int, pool *Pool) *Worker {
	return &Worker{
		id:    id,
		name:  fmt.Sprintf("worker-%d", id),
		pool:  pool,
		inbox: make(chan *job),
	}
}

// ID returns the 1-based worker id.
func (w *Worker) ID() int { return w.id }

// Processed returns how many tasks this worker has finished.
func (w *Worker) Processed() int64 { return w.processed.Load() }

func (w *Worker) run() {
	if w.pool.cfg.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}

	logger := w.pool.logger.With("worker_id", w.id)
	slot := dispatch.NewSlot(w.name, w.pool.factory,
		dispatch.WithLogger(logger),
		dispatch.WithObserver(w.pool.observer),
	)

	logger.Info("worker starting")
	defer func() {
		if err := slot.Release(); err != nil {
			logger.Error("failed to release engine", "error", err)
		}
		logger.Info("worker stopped", "processed", w.processed.Load())
	}()

	for {
		select {
		case <-w.pool.stopCh:
			return
		case j := <-w.inbox:
			w.process(slot, j)
		case j := <-w.pool.tasks:
			w.process(slot, j)
		}
	}
}

func (w *Worker) process(slot *dispatch.Slot, j *job) {
	start := time.Now()
	histories, err := w.runTask(slot, j)
	metrics.DecodeDuration.Observe(time.Since(start).Seconds())
	metrics.TasksTotal.WithLabelValues(taskStatus(err)).Inc()

	if err != nil {
		w.pool.logger.Warn("translation task failed",
			"worker_id", w.id, "task", j.task.ID, "task_id", j.task.TaskID, "error", err)
	}
	w.processed.Add(1)
	j.done <- result{histories: histories, err: err}
}

func (w *Worker) runTask(slot *dispatch.Slot, j *job) (histories domain.Histories, err error) {
	defer func() {
		if r := recover(); r != nil {
			histories = nil
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
			w.pool.logger.Error("translation task panicked", "worker_id", w.id, "task", j.task.ID, "panic", r)
		}
	}()
	return dispatch.Dispatch(j.ctx, slot, j.task)
}

func taskStatus(err error) string {
	var constructErr *dispatch.ConstructionError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &constructErr):
		return "construction_failed"
	case errors.Is(err, ErrTaskPanicked):
		return "panicked"
	default:
		return "decode_failed"
	}
}

func taskRejected() {
	metrics.TasksTotal.WithLabelValues("rejected").Inc()
}
