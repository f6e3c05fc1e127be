package usecase

import (
	"context"
	"log/slog"
	"time"

	"translation-dispatch/internal/domain"
	"translation-dispatch/internal/metrics"
)

// PruneJobName names the job that deletes old decode records.
const PruneJobName = "prune-records"

const campaignRetryDelay = 5 * time.Second

// MaintenanceService runs housekeeping jobs on whichever master is leader.
type MaintenanceService struct {
	leaderManager domain.LeaderElectionManager
	scheduler     domain.Scheduler
	records       domain.DecodeRecordRepository
	schedule      string
	retention     time.Duration
	nodeID        string
	logger        *slog.Logger
	now           func() time.Time
	retryDelay    time.Duration
}

// NewMaintenanceService creates a new MaintenanceService.
func NewMaintenanceService(leaderManager domain.LeaderElectionManager, scheduler domain.Scheduler, records domain.DecodeRecordRepository, schedule string, retention time.Duration, nodeID string, logger *slog.Logger) *MaintenanceService {
	return &MaintenanceService{
		leaderManager: leaderManager,
		scheduler:     scheduler,
		records:       records,
		schedule:      schedule,
		retention:     retention,
		nodeID:        nodeID,
		logger:        logger.With("component", "maintenance", "node_id", nodeID),
		now:           time.Now,
		retryDelay:    campaignRetryDelay,
	}
}

// Start campaigns for leadership and runs the scheduler while leader, until
// ctx is done. It blocks.
func (s *MaintenanceService) Start(ctx context.Context) error {
	s.logger.Info("maintenance service starting")

	if err := s.scheduler.AddJob(&domain.MaintenanceJob{
		Name:     PruneJobName,
		Schedule: s.schedule,
		Run:      func(ctx context.Context) error { _, err := s.PruneRecords(ctx); return err },
	}); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			s.logger.Info("maintenance service shutting down")
			return ctx.Err()
		}

		s.logger.Info("attempting to campaign for leadership")
		lost, err := s.leaderManager.Campaign(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error("leadership campaign failed, retrying", "error", err, "retry_in", s.retryDelay)
			select {
			case <-time.After(s.retryDelay):
			case <-ctx.Done():
			}
			continue
		}

		s.logger.Info("became leader, starting scheduler")
		s.lead(ctx, lost)
	}
}

// lead runs the scheduler until leadership is lost or ctx is done.
func (s *MaintenanceService) lead(ctx context.Context, lost <-chan struct{}) {
	leaderCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.scheduler.Start(leaderCtx)
	}()

	select {
	case <-lost:
		s.logger.Warn("leadership lost, stopping scheduler")
	case <-ctx.Done():
		if err := s.leaderManager.Resign(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to resign leadership", "error", err)
		}
	}
	cancel()
	<-done
	s.scheduler.Stop()
}

// PruneRecords deletes finished decode records older than the retention period.
func (s *MaintenanceService) PruneRecords(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.retention)
	n, err := s.records.DeleteFinishedBefore(ctx, cutoff)
	if n > 0 {
		metrics.RecordsPruned.Add(float64(n))
	}
	if err != nil {
		s.logger.Error("failed to prune decode records", "error", err, "pruned", n)
		return n, err
	}
	s.logger.Info("pruned decode records", "pruned", n, "cutoff", cutoff)
	return n, nil
}
