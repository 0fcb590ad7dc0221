package scheduler

import (
	"context"
	"errors"
	stdsync "sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	syncapp "github.com/solarops/backend/internal/application/sync"
	"github.com/solarops/backend/internal/domain/shared"
	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/config"
)

// SyncRunner starts one package sync. *syncapp.Service implements it.
type SyncRunner interface {
	RunPackageSync(ctx context.Context, opts syncapp.PackageSyncOptions) (*sync.Run, error)
}

// SyncScheduler fires an incremental package sync on a cron schedule,
// typically nightly. A run already holding the lock (an operator kicked
// one off manually) is skipped, not queued.
type SyncScheduler struct {
	cfg      config.SchedulerConfig
	schedule cron.Schedule
	runner   SyncRunner
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        stdsync.WaitGroup
	mu        stdsync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a sync scheduler from the configured cron
// expression (standard five-field syntax).
func NewSyncScheduler(cfg config.SchedulerConfig, runner SyncRunner, logger *zap.Logger) (*SyncScheduler, error) {
	schedule, err := cron.ParseStandard(cfg.CronSchedule)
	if err != nil {
		return nil, ErrInvalidSchedule
	}
	return &SyncScheduler{
		cfg:      cfg,
		schedule: schedule,
		runner:   runner,
		logger:   logger,
	}, nil
}

// Start starts the scheduler loop.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.String("schedule", s.cfg.CronSchedule),
		zap.Bool("with_files", s.cfg.WithFiles),
		zap.Duration("job_timeout", s.cfg.JobTimeout),
	)

	return nil
}

// Stop stops the scheduler, waiting for an in-flight run to finish.
// Stopping a scheduler that never started (or was already stopped)
// returns ErrSchedulerNotRunning.
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// NextRun returns when the next scheduled sync fires.
func (s *SyncScheduler) NextRun() time.Time {
	return s.schedule.Next(time.Now())
}

func (s *SyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce fires one scheduled incremental sync.
func (s *SyncScheduler) runOnce(ctx context.Context) {
	jobCtx := ctx
	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	s.logger.Info("Starting scheduled incremental sync")

	run, err := s.runner.RunPackageSync(jobCtx, syncapp.PackageSyncOptions{
		Kind:      sync.RunKindIncremental,
		WithFiles: s.cfg.WithFiles,
	})
	if err != nil {
		if errors.Is(err, shared.ErrSyncInFlight) {
			s.logger.Info("Scheduled sync skipped, another run is in flight")
			return
		}
		s.logger.Error("Scheduled sync failed", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled sync finished",
		zap.String("run_id", run.ID.String()),
		zap.String("status", string(run.Status)),
		zap.Int("created", run.Created),
		zap.Int("updated", run.Updated),
		zap.Int("failed", run.Failed),
	)
}
