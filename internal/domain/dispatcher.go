// internal/domain/dispatcher.go
package domain

import (
	"context"
	"errors"
)

// ErrNoWorkers is returned when no worker node is available to take a task.
var ErrNoWorkers = errors.New("no available worker nodes")

// Dispatcher defines the interface for forwarding translation tasks to worker nodes.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *Task) (Histories, error)
}
