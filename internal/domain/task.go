// internal/domain/task.go
package domain

import "errors"

var (
	// ErrEmptyBatch is returned (or panicked with, inside the dispatch core) when a
	// task carries no sentences. There is no well-defined decode of zero sentences.
	ErrEmptyBatch = errors.New("translation task has an empty sentence batch")
	// ErrSentenceTooLong is returned when a sentence exceeds the model's length
	// limit. The whole batch fails; there are no partial results.
	ErrSentenceTooLong = errors.New("sentence exceeds model length limit")
	// ErrInvalidTask marks a task a worker node refused as malformed.
	ErrInvalidTask = errors.New("invalid translation task")
	// ErrEngineUnavailable marks a task whose engine could not be constructed.
	ErrEngineUnavailable = errors.New("decoding engine unavailable")
	// ErrDecodeFailed marks any other failure reported by a worker node.
	ErrDecodeFailed = errors.New("decode failed")
)

// Task is one unit of translation work. TaskID selects the model the engine is
// built for; ID identifies the request for logging and records.
type Task struct {
	ID        string    `json:"id"`
	TaskID    int64     `json:"task_id"`
	Sentences Sentences `json:"sentences"`
}

// Validate checks the boundary invariants of a task.
func (t *Task) Validate() error {
	if len(t.Sentences) == 0 {
		return ErrEmptyBatch
	}
	return nil
}
