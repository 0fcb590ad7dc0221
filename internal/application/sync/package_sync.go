package syncapp

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/solarops/backend/internal/domain/shared"
	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/persistence"
)

// RunLock serializes sync runs. The Redis implementation covers
// multi-instance deployments, the in-memory one is the fallback.
type RunLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// RunObserver receives every finished run. The telemetry layer hangs
// its metrics off this.
type RunObserver interface {
	ObserveRun(ctx context.Context, run *sync.Run)
}

// PackageSyncOptions controls one package sync run.
type PackageSyncOptions struct {
	// Kind is RunKindFull or RunKindIncremental.
	Kind sync.RunKind
	// Since overrides the incremental cutoff. Nil means the start time
	// of the last successful sync.
	Since *time.Time
	// WithFiles cascades into a file-migration pass after the tables.
	WithFiles bool
}

// Status is the dashboard's sync overview.
type Status struct {
	Running *sync.Run        `json:"running,omitempty"`
	LastRun *sync.Run        `json:"last_run,omitempty"`
	Tables  map[string]int64 `json:"tables"`
}

// defaultRunHistoryLimit is the listing size when the config carries none.
const defaultRunHistoryLimit = 50

// Service orchestrates the sync engine: the nine-table package sync,
// standalone file migration, and relationship validation. Every
// execution is recorded as a sync_runs row and serialized through the
// run lock.
type Service struct {
	syncer       *TableSyncer
	migrator     *FileMigrator
	validator    *Validator
	store        *persistence.TableStore
	runs         sync.RunRepository
	lock         RunLock
	lockTTL      time.Duration
	historyLimit int
	observer     RunObserver
	logger       *zap.Logger
}

// SetRunObserver attaches a run observer. Must be called before the
// service starts serving.
func (s *Service) SetRunObserver(observer RunObserver) {
	s.observer = observer
}

// NewService creates the sync service
func NewService(
	syncer *TableSyncer,
	migrator *FileMigrator,
	validator *Validator,
	store *persistence.TableStore,
	runs sync.RunRepository,
	lock RunLock,
	lockTTL time.Duration,
	historyLimit int,
	logger *zap.Logger,
) *Service {
	if historyLimit <= 0 {
		historyLimit = defaultRunHistoryLimit
	}
	return &Service{
		syncer:       syncer,
		migrator:     migrator,
		validator:    validator,
		store:        store,
		runs:         runs,
		lock:         lock,
		lockTTL:      lockTTL,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// RunPackageSync mirrors all nine collections in dependency order and
// blocks until the pass finishes. Failed tables are recorded and the
// pass continues; the run ends partial unless every table failed.
// Returns shared.ErrSyncInFlight when another run holds the lock.
func (s *Service) RunPackageSync(ctx context.Context, opts PackageSyncOptions) (*sync.Run, error) {
	run, err := s.beginPackageSync(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock()

	s.executePackageSync(ctx, run, opts)
	return run, nil
}

// StartPackageSync begins a package sync in the background and returns
// the pending run right away; progress is polled through GetRun. A full
// pass takes far longer than any HTTP write deadline, so the trigger
// endpoint must not wait for it. The background pass is bounded by the
// lock TTL.
func (s *Service) StartPackageSync(ctx context.Context, opts PackageSyncOptions) (*sync.Run, error) {
	run, err := s.beginPackageSync(ctx, opts)
	if err != nil {
		return nil, err
	}

	pending := *run
	go func() {
		defer s.releaseLock()
		runCtx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
		defer cancel()
		s.executePackageSync(runCtx, run, opts)
	}()
	return &pending, nil
}

// beginPackageSync takes the run lock, resolves the cutoff and records
// the pending run. The caller owns releasing the lock; on error it is
// already released.
func (s *Service) beginPackageSync(ctx context.Context, opts PackageSyncOptions) (*sync.Run, error) {
	acquired, err := s.lock.Acquire(ctx, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, shared.ErrSyncInFlight
	}

	since, err := s.resolveCutoff(ctx, opts)
	if err != nil {
		s.releaseLock()
		return nil, err
	}

	run := sync.NewRun(opts.Kind, since)
	if err := s.runs.Create(ctx, run); err != nil {
		s.releaseLock()
		return nil, err
	}

	s.logger.Info("Package sync started",
		zap.String("run_id", run.ID.String()),
		zap.String("kind", string(run.Kind)),
		zap.Timep("since", since),
	)
	return run, nil
}

func (s *Service) executePackageSync(ctx context.Context, run *sync.Run, opts PackageSyncOptions) {
	detail := &sync.RunDetail{}
	for _, desc := range Descriptors() {
		if ctx.Err() != nil {
			detail.Tables = append(detail.Tables, sync.TableReport{
				Table: string(desc.Table),
				Err:   ctx.Err().Error(),
			})
			continue
		}
		detail.Tables = append(detail.Tables, s.syncer.Sync(ctx, desc, run.Since))
	}

	if opts.WithFiles && ctx.Err() == nil {
		files, err := s.migrator.Migrate(ctx)
		detail.Files = files
		if err != nil {
			run.Error = err.Error()
		}
	}

	s.finish(ctx, run, detail)
}

// RunFileMigration runs a standalone file-migration pass and blocks
// until it finishes.
func (s *Service) RunFileMigration(ctx context.Context) (*sync.Run, error) {
	run, err := s.beginFileMigration(ctx)
	if err != nil {
		return nil, err
	}
	defer s.releaseLock()

	s.executeFileMigration(ctx, run)
	return run, nil
}

// StartFileMigration begins a file-migration pass in the background and
// returns the pending run right away, like StartPackageSync.
func (s *Service) StartFileMigration(ctx context.Context) (*sync.Run, error) {
	run, err := s.beginFileMigration(ctx)
	if err != nil {
		return nil, err
	}

	pending := *run
	go func() {
		defer s.releaseLock()
		runCtx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
		defer cancel()
		s.executeFileMigration(runCtx, run)
	}()
	return &pending, nil
}

func (s *Service) beginFileMigration(ctx context.Context) (*sync.Run, error) {
	acquired, err := s.lock.Acquire(ctx, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, shared.ErrSyncInFlight
	}

	run := sync.NewRun(sync.RunKindFiles, nil)
	if err := s.runs.Create(ctx, run); err != nil {
		s.releaseLock()
		return nil, err
	}
	return run, nil
}

func (s *Service) executeFileMigration(ctx context.Context, run *sync.Run) {
	detail := &sync.RunDetail{}
	files, err := s.migrator.Migrate(ctx)
	detail.Files = files
	if err != nil {
		run.Error = err.Error()
	}
	s.finish(ctx, run, detail)
}

// RunValidation checks the reference graph, optionally repairing it.
// Validation does not take the run lock: it only reads (and with repair,
// narrowly writes) and is safe alongside a sync.
func (s *Service) RunValidation(ctx context.Context, repair bool) (*sync.Run, error) {
	run := sync.NewRun(sync.RunKindValidation, nil)
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	detail := &sync.RunDetail{}
	validation, err := s.validator.Validate(ctx, repair)
	detail.Validation = validation
	if err != nil {
		run.Fail(err)
		run.Detail = detail
		if updateErr := s.runs.Update(ctx, run); updateErr != nil {
			s.logger.Error("Failed to record validation run", zap.Error(updateErr))
		}
		return run, nil
	}

	s.finish(ctx, run, detail)
	return run, nil
}

// GetRun returns one recorded run.
func (s *Service) GetRun(ctx context.Context, id string) (*sync.Run, error) {
	return s.runs.FindByID(ctx, id)
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit falls back to the configured history limit.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]sync.Run, error) {
	if limit <= 0 {
		limit = s.historyLimit
	}
	return s.runs.List(ctx, limit)
}

// GetStatus returns the dashboard overview: the in-flight run if any,
// the last finished run, and per-table row counts.
func (s *Service) GetStatus(ctx context.Context) (*Status, error) {
	runs, err := s.runs.List(ctx, s.historyLimit)
	if err != nil {
		return nil, err
	}

	status := &Status{Tables: make(map[string]int64, len(sync.SyncOrder))}
	for i := range runs {
		run := runs[i]
		if run.Status == sync.RunStatusRunning && status.Running == nil {
			status.Running = &run
			continue
		}
		if run.Status != sync.RunStatusRunning && status.LastRun == nil {
			status.LastRun = &run
		}
	}

	for _, table := range sync.SyncOrder {
		count, err := s.store.Count(ctx, string(table))
		if err != nil {
			return nil, err
		}
		status.Tables[string(table)] = count
	}
	return status, nil
}

// resolveCutoff determines the incremental window. Full syncs have none.
func (s *Service) resolveCutoff(ctx context.Context, opts PackageSyncOptions) (*time.Time, error) {
	if opts.Kind != sync.RunKindIncremental {
		return nil, nil
	}
	if opts.Since != nil {
		return opts.Since, nil
	}
	since, err := s.runs.LastSuccessfulSyncStart(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve incremental cutoff: %w", err)
	}
	return since, nil
}

// finish completes the run and records it. A cancelled ctx must not
// lose the row, so the update uses a detached context.
func (s *Service) finish(ctx context.Context, run *sync.Run, detail *sync.RunDetail) {
	run.Complete(detail)

	updateCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		updateCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}
	if err := s.runs.Update(updateCtx, run); err != nil {
		s.logger.Error("Failed to record sync run",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Sync run finished",
		zap.String("run_id", run.ID.String()),
		zap.String("kind", string(run.Kind)),
		zap.String("status", string(run.Status)),
		zap.Int("created", run.Created),
		zap.Int("updated", run.Updated),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
		zap.Duration("duration", run.Duration()),
	)

	if s.observer != nil {
		s.observer.ObserveRun(updateCtx, run)
	}
}

func (s *Service) releaseLock() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.lock.Release(ctx); err != nil {
		s.logger.Warn("Failed to release sync lock", zap.Error(err))
	}
}
