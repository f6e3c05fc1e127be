// internal/worker/consumer.go
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"translation-dispatch/internal/domain"
	"translation-dispatch/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dequeueRetryDelay = time.Second

// Consumer pulls queued tasks, runs them through the pool and records the outcome.
type Consumer struct {
	queue   domain.TaskQueue
	pool    Submitter
	records domain.DecodeRecordRepository
	nodeID  string
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewConsumer creates a consumer for the given queue.
func NewConsumer(queue domain.TaskQueue, pool Submitter, records domain.DecodeRecordRepository, nodeID string, logger *slog.Logger) *Consumer {
	return &Consumer{
		queue:   queue,
		pool:    pool,
		records: records,
		nodeID:  nodeID,
		logger:  logger.With("component", "queue-consumer"),
		tracer:  otel.Tracer("translation-dispatch-consumer"),
		now:     time.Now,
	}
}

// Run consumes tasks until ctx is done or the queue is closed.
// This is a blocking call and should be run in a goroutine.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.Info("queue consumer started")
	defer c.logger.Info("queue consumer stopped")

	for {
		task, err := c.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrQueueClosed) {
				return
			}
			c.logger.Error("failed to dequeue task", "error", err)
			select {
			case <-time.After(dequeueRetryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}
		c.observeDepth(ctx)
		c.handle(ctx, task)
	}
}

// observeDepth publishes how many tasks are still waiting behind the one just taken.
func (c *Consumer) observeDepth(ctx context.Context) {
	depth, err := c.queue.Depth(ctx)
	if err != nil {
		c.logger.Debug("failed to read queue depth", "error", err)
		return
	}
	metrics.QueueDepth.Set(float64(depth))
}

func (c *Consumer) handle(ctx context.Context, task *domain.Task) {
	ctx, span := c.tracer.Start(ctx, "worker.Consume", trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.Int64("task.task_id", task.TaskID),
	))
	defer span.End()

	logger := c.logger.With("task", task.ID, "task_id", task.TaskID)

	record, err := c.records.Get(ctx, task.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			logger.Warn("failed to load decode record, starting a new one", "error", err)
		}
		record = domain.NewDecodeRecord(task, c.now())
	}
	record.Status = domain.RecordStatusRunning
	record.StartTime = c.now()
	record.WorkerID = c.nodeID
	if err := c.records.Save(ctx, record); err != nil {
		// Still run the task; the final save may succeed.
		logger.Error("failed to save running decode record", "error", err)
		span.RecordError(err)
	}

	// The task is already off the queue, so it runs to completion even if
	// the consumer is stopped meanwhile.
	histories, runErr := c.pool.Submit(context.WithoutCancel(ctx), task)
	record.EndTime = c.now()
	if runErr != nil {
		record.Status = domain.RecordStatusFailed
		record.Error = runErr.Error()
		span.RecordError(runErr)
		span.SetStatus(codes.Error, "queued task failed")
		logger.Warn("queued task failed", "error", runErr)
	} else {
		record.Status = domain.RecordStatusSuccess
		record.Histories = histories
		span.SetStatus(codes.Ok, "queued task finished")
		logger.Info("queued task finished", "sentences", len(histories))
	}

	if err := c.records.Save(context.WithoutCancel(ctx), record); err != nil {
		logger.Error("failed to save final decode record", "error", err)
		span.RecordError(err)
	}
}
