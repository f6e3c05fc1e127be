// Package dispatch runs translation tasks on the engine owned by the calling
// worker, building that engine on the worker's first task.
package dispatch

import (
	"context"

	"translation-dispatch/internal/domain"
)

// Dispatch decodes task.Sentences with the engine held in slot, constructing
// it from task.TaskID if the slot is empty.
//
// The first task a slot sees decides which model its engine is built for.
// Later tasks reuse that engine even when their TaskID differs; the id is
// not compared again.
//
// An empty batch is a caller bug: Dispatch panics with domain.ErrEmptyBatch
// before touching the slot. Construction failures are returned as
// *ConstructionError and leave the slot without an engine. Decode errors are
// returned unchanged and the engine is kept.
//
// ctx is passed to the factory and the engine. Dispatch itself never
// abandons a decode that has started.
func Dispatch(ctx context.Context, slot *Slot, task *domain.Task) (domain.Histories, error) {
	if len(task.Sentences) == 0 {
		panic(domain.ErrEmptyBatch)
	}

	engine, err := slot.acquire(ctx, task.TaskID)
	if err != nil {
		return nil, err
	}
	return engine.Decode(ctx, task.Sentences)
}
