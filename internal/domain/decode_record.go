// internal/domain/decode_record.go
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRecordNotFound is returned when a decode record does not exist.
var ErrRecordNotFound = errors.New("decode record not found")

// RecordStatus defines the status of an asynchronously submitted task.
type RecordStatus string

const (
	RecordStatusQueued  RecordStatus = "queued"
	RecordStatusRunning RecordStatus = "running"
	RecordStatusSuccess RecordStatus = "success"
	RecordStatusFailed  RecordStatus = "failed"
)

// Finished reports whether no further transitions are expected.
func (s RecordStatus) Finished() bool {
	return s == RecordStatusSuccess || s == RecordStatusFailed
}

// DecodeRecord tracks a single task from submission to result.
type DecodeRecord struct {
	ID            string       `json:"id"`
	TaskID        int64        `json:"task_id"`
	SentenceCount int          `json:"sentence_count"`
	Status        RecordStatus `json:"status"`
	Histories     Histories    `json:"histories,omitempty"`
	Error         string       `json:"error,omitempty"`
	WorkerID      string       `json:"worker_id,omitempty"` // node that ran the task
	EnqueuedAt    time.Time    `json:"enqueued_at"`
	StartTime     time.Time    `json:"start_time,omitempty"`
	EndTime       time.Time    `json:"end_time,omitempty"`
}

// NewDecodeRecord creates a queued record for the task.
func NewDecodeRecord(task *Task, now time.Time) *DecodeRecord {
	return &DecodeRecord{
		ID:            task.ID,
		TaskID:        task.TaskID,
		SentenceCount: len(task.Sentences),
		Status:        RecordStatusQueued,
		EnqueuedAt:    now,
	}
}

// Validate checks if the record is valid.
func (r *DecodeRecord) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("decode record ID cannot be empty")
	}
	if r.Status == "" {
		return fmt.Errorf("decode record status cannot be empty")
	}
	if r.EnqueuedAt.IsZero() {
		return fmt.Errorf("decode record enqueue time cannot be zero")
	}
	return nil
}

// DecodeRecordRepository defines the interface for persisting and retrieving decode records.
type DecodeRecordRepository interface {
	Save(ctx context.Context, record *DecodeRecord) error
	Get(ctx context.Context, id string) (*DecodeRecord, error)
	// List returns records newest first.
	List(ctx context.Context, page, pageSize int) ([]*DecodeRecord, error)
	// DeleteFinishedBefore removes finished records whose EndTime is before t
	// and returns how many were removed.
	DeleteFinishedBefore(ctx context.Context, t time.Time) (int, error)
}
