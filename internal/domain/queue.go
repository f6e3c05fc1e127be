package domain

import (
	"context"
	"errors"
)

// ErrQueueClosed is returned by a TaskQueue after Close.
var ErrQueueClosed = errors.New("task queue closed")

// TaskQueue carries tasks from the master to worker nodes for background processing.
type TaskQueue interface {
	// Enqueue adds a task to the queue.
	Enqueue(ctx context.Context, task *Task) error
	// Dequeue blocks until a task is available or ctx is done.
	Dequeue(ctx context.Context) (*Task, error)
	// Depth returns the number of tasks waiting in the queue.
	Depth(ctx context.Context) (int64, error)
	Close() error
}
