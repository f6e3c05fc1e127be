// internal/dispatch/slot.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"translation-dispatch/internal/domain"
)

// ErrSlotReleased is returned when a task reaches a slot whose owner has already
// released its engine.
var ErrSlotReleased = errors.New("engine slot released")

// State is the lifecycle position of a Slot.
type State int

const (
	StateEmpty State = iota
	StateReady
	StateFailed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ConstructionError reports that the engine for a slot could not be built.
// The slot holds no engine afterwards.
type ConstructionError struct {
	Owner  string
	TaskID int64
	Err    error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct engine for task %d on %s: %v", e.TaskID, e.Owner, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Observer is notified about engine construction. Implementations must not
// block for long; they run on the owning worker.
type Observer interface {
	EngineConstructed(owner string, taskID int64, took time.Duration)
	EngineConstructionFailed(owner string, taskID int64, err error)
	EngineReleased(owner string)
}

// Slot holds at most one engine for the worker that owns it.
//
// A Slot is not safe for concurrent use and needs no locking: it is created
// by a worker goroutine, used only by that goroutine and released when the
// goroutine exits. Never share one between workers; the one-engine-per-worker
// guarantee depends on it.
type Slot struct {
	owner    string
	factory  domain.EngineFactory
	logger   *slog.Logger
	observer Observer

	state  State
	engine domain.Engine
	taskID int64
	err    error
}

// SlotOption configures a Slot.
type SlotOption func(*Slot)

// WithLogger sets the logger that receives engine lifecycle events.
func WithLogger(logger *slog.Logger) SlotOption {
	return func(s *Slot) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers an observer for engine lifecycle events.
func WithObserver(observer Observer) SlotOption {
	return func(s *Slot) { s.observer = observer }
}

// NewSlot creates an empty slot. owner identifies the owning worker in
// diagnostics.
func NewSlot(owner string, factory domain.EngineFactory, opts ...SlotOption) *Slot {
	s := &Slot{
		owner:   owner,
		factory: factory,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Owner returns the identity of the owning worker.
func (s *Slot) Owner() string { return s.owner }

// State returns the current lifecycle state.
func (s *Slot) State() State { return s.state }

// BoundTaskID returns the task id the engine was built for, if there is one.
func (s *Slot) BoundTaskID() (int64, bool) {
	if s.state != StateReady {
		return 0, false
	}
	return s.taskID, true
}

// Err returns the last construction error while the slot is failed.
func (s *Slot) Err() error {
	if s.state != StateFailed {
		return nil
	}
	return s.err
}

// acquire returns the slot's engine, building it for taskID if the slot has
// none. Once built, taskID is ignored for the rest of the slot's life.
func (s *Slot) acquire(ctx context.Context, taskID int64) (domain.Engine, error) {
	switch s.state {
	case StateReady:
		return s.engine, nil
	case StateReleased:
		return nil, ErrSlotReleased
	}

	start := time.Now()
	engine, err := s.factory.NewEngine(ctx, taskID)
	if err == nil && engine == nil {
		err = errors.New("factory returned a nil engine")
	}
	if err != nil {
		s.state = StateFailed
		s.err = err
		s.notifyFailed(taskID, err)
		return nil, &ConstructionError{Owner: s.owner, TaskID: taskID, Err: err}
	}

	s.state = StateReady
	s.engine = engine
	s.taskID = taskID
	s.err = nil
	s.notifyConstructed(taskID, time.Since(start))
	return engine, nil
}

// Release closes the engine, if any, and retires the slot. It is called by
// the owner when its goroutine exits. Releasing twice is a no-op.
func (s *Slot) Release() error {
	if s.state == StateReleased {
		return nil
	}
	engine := s.engine
	hadEngine := s.state == StateReady
	s.state = StateReleased
	s.engine = nil
	s.err = nil

	if !hadEngine {
		return nil
	}
	s.logger.Info("released engine", "worker", s.owner, "task_id", s.taskID)
	if s.observer != nil {
		s.observer.EngineReleased(s.owner)
	}
	if closer, ok := engine.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close engine on %s: %w", s.owner, err)
		}
	}
	return nil
}

func (s *Slot) notifyConstructed(taskID int64, took time.Duration) {
	s.logger.Info("created engine for worker", "worker", s.owner, "task_id", taskID, "took", took)
	if s.observer != nil {
		s.observer.EngineConstructed(s.owner, taskID, took)
	}
}

func (s *Slot) notifyFailed(taskID int64, err error) {
	s.logger.Error("failed to create engine", "worker", s.owner, "task_id", taskID, "error", err)
	if s.observer != nil {
		s.observer.EngineConstructionFailed(s.owner, taskID, err)
	}
}
