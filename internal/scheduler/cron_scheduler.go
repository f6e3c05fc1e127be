// internal/scheduler/cron_scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"translation-dispatch/internal/domain"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// cronScheduler triggers maintenance jobs on their cron schedules.
type cronScheduler struct {
	cron   *cron.Cron
	jobs   map[string]cron.EntryID
	mu     sync.Mutex
	ctx    context.Context
	logger *slog.Logger
	tracer trace.Tracer
}

// NewCronScheduler creates a scheduler whose schedules carry a seconds field.
func NewCronScheduler(logger *slog.Logger) domain.Scheduler {
	return &cronScheduler{
		cron:   cron.New(cron.WithSeconds()),
		jobs:   make(map[string]cron.EntryID),
		ctx:    context.Background(),
		logger: logger.With("component", "cron-scheduler"),
		tracer: otel.Tracer("translation-dispatch-scheduler"),
	}
}

// Start runs the scheduler until ctx is done, then waits for running jobs.
func (s *cronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Info("cron scheduler started")
	s.cron.Start()
	<-ctx.Done()
	s.logger.Info("cron scheduler stopping...")
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("cron scheduler stopped")
	return ctx.Err()
}

func (s *cronScheduler) Stop() {
	// Stopping is driven by cancelling the ctx given to Start.
}

// AddJob schedules job, replacing any job with the same name.
func (s *cronScheduler) AddJob(job *domain.MaintenanceJob) error {
	if job.Run == nil {
		return fmt.Errorf("maintenance job %q has no run function", job.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[job.Name]; ok {
		s.cron.Remove(entryID)
	}

	wrapper := &cronJobWrapper{
		job:    job,
		ctx:    func() context.Context { s.mu.Lock(); defer s.mu.Unlock(); return s.ctx },
		logger: s.logger.With("job_name", job.Name),
		tracer: s.tracer,
	}

	entryID, err := s.cron.AddJob(job.Schedule, wrapper)
	if err != nil {
		s.logger.Error("failed to add job to cron", "job_name", job.Name, "error", err)
		return err
	}

	s.jobs[job.Name] = entryID
	s.logger.Info("added job to scheduler", "job_name", job.Name, "schedule", job.Schedule)
	return nil
}

// RemoveJob removes a job from the scheduler.
func (s *cronScheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("removed job from scheduler", "job_name", name)
	}
	return nil
}

type cronJobWrapper struct {
	job    *domain.MaintenanceJob
	ctx    func() context.Context
	logger *slog.Logger
	tracer trace.Tracer
}

// Run is called by the cron library.
func (w *cronJobWrapper) Run() {
	ctx, span := w.tracer.Start(w.ctx(), "scheduler.RunJob",
		trace.WithAttributes(attribute.String("job.name", w.job.Name)))
	defer span.End()

	w.logger.Info("running maintenance job")
	if err := w.job.Run(ctx); err != nil {
		w.logger.Error("maintenance job failed", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "maintenance job failed")
	}
}
