package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"translation-dispatch/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TranslationService accepts translation tasks on the master, either
// forwarding them to a worker node right away or queueing them.
type TranslationService struct {
	dispatcher domain.Dispatcher
	queue      domain.TaskQueue
	records    domain.DecodeRecordRepository
	rpcTimeout time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewTranslationService creates a new TranslationService. A zero rpcTimeout
// leaves synchronous calls bounded only by the caller's context.
func NewTranslationService(dispatcher domain.Dispatcher, queue domain.TaskQueue, records domain.DecodeRecordRepository, rpcTimeout time.Duration, logger *slog.Logger) *TranslationService {
	return &TranslationService{
		dispatcher: dispatcher,
		queue:      queue,
		records:    records,
		rpcTimeout: rpcTimeout,
		logger:     logger.With("component", "translation-service"),
		tracer:     otel.Tracer("translation-dispatch-usecase"),
		now:        time.Now,
	}
}

// Translate runs task on a worker node and returns its histories.
func (s *TranslationService) Translate(ctx context.Context, task *domain.Task) (domain.Histories, error) {
	ctx, span := s.tracer.Start(ctx, "service.Translate")
	defer span.End()

	if err := s.prepare(task); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("task.id", task.ID),
		attribute.Int64("task.task_id", task.TaskID),
		attribute.Int("task.sentences", len(task.Sentences)),
	)

	if s.rpcTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.rpcTimeout)
		defer cancel()
	}

	histories, err := s.dispatcher.Dispatch(ctx, task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to dispatch task")
		return nil, err
	}
	return histories, nil
}

// Submit records task as queued and puts it on the queue for a worker node.
func (s *TranslationService) Submit(ctx context.Context, task *domain.Task) (*domain.DecodeRecord, error) {
	ctx, span := s.tracer.Start(ctx, "service.Submit")
	defer span.End()

	if err := s.prepare(task); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("task.id", task.ID), attribute.Int64("task.task_id", task.TaskID))

	record := domain.NewDecodeRecord(task, s.now())
	if err := s.records.Save(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save decode record")
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue task")
		record.Status = domain.RecordStatusFailed
		record.Error = fmt.Sprintf("enqueue: %v", err)
		record.EndTime = s.now()
		if saveErr := s.records.Save(context.WithoutCancel(ctx), record); saveErr != nil {
			s.logger.Error("failed to mark decode record failed", "task", task.ID, "error", saveErr)
		}
		return nil, fmt.Errorf("failed to enqueue task %s: %w", task.ID, err)
	}

	s.logger.Info("task queued", "task", task.ID, "task_id", task.TaskID, "sentences", len(task.Sentences))
	return record, nil
}

// GetRecord returns the decode record of a queued task.
func (s *TranslationService) GetRecord(ctx context.Context, id string) (*domain.DecodeRecord, error) {
	ctx, span := s.tracer.Start(ctx, "service.GetRecord")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", id))

	record, err := s.records.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get decode record from repository")
	}
	return record, err
}

// ListRecords lists decode records, newest first.
func (s *TranslationService) ListRecords(ctx context.Context, page, pageSize int) ([]*domain.DecodeRecord, error) {
	ctx, span := s.tracer.Start(ctx, "service.ListRecords")
	defer span.End()
	span.SetAttributes(attribute.Int("page", page), attribute.Int("page_size", pageSize))

	records, err := s.records.List(ctx, page, pageSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list decode records from repository")
	}
	return records, err
}

func (s *TranslationService) prepare(task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	return nil
}
