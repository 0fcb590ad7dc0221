package scheduler

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	syncapp "github.com/solarops/backend/internal/application/sync"
	"github.com/solarops/backend/internal/domain/shared"
	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	mu    stdsync.Mutex
	calls []syncapp.PackageSyncOptions
	err   error
}

func (f *fakeRunner) RunPackageSync(_ context.Context, opts syncapp.PackageSyncOptions) (*sync.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	run := sync.NewRun(opts.Kind, nil)
	run.Complete(&sync.RunDetail{})
	return run, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:      true,
		CronSchedule: "0 2 * * *",
		WithFiles:    true,
		JobTimeout:   time.Hour,
	}
}

func TestNewSyncScheduler(t *testing.T) {
	t.Run("valid schedule parses", func(t *testing.T) {
		s, err := NewSyncScheduler(testConfig(), &fakeRunner{}, zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("invalid schedule is rejected", func(t *testing.T) {
		cfg := testConfig()
		cfg.CronSchedule = "not a cron line"
		_, err := NewSyncScheduler(cfg, &fakeRunner{}, zap.NewNop())
		assert.ErrorIs(t, err, ErrInvalidSchedule)
	})
}

func TestSyncScheduler_NextRun(t *testing.T) {
	s, err := NewSyncScheduler(testConfig(), &fakeRunner{}, zap.NewNop())
	require.NoError(t, err)

	next := s.NextRun()
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 2, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestSyncScheduler_RunOnce(t *testing.T) {
	t.Run("fires an incremental sync with files", func(t *testing.T) {
		runner := &fakeRunner{}
		s, err := NewSyncScheduler(testConfig(), runner, zap.NewNop())
		require.NoError(t, err)

		s.runOnce(context.Background())

		require.Equal(t, 1, runner.callCount())
		assert.Equal(t, sync.RunKindIncremental, runner.calls[0].Kind)
		assert.True(t, runner.calls[0].WithFiles)
		assert.Nil(t, runner.calls[0].Since)
	})

	t.Run("tolerates an in-flight run", func(t *testing.T) {
		runner := &fakeRunner{err: shared.ErrSyncInFlight}
		s, err := NewSyncScheduler(testConfig(), runner, zap.NewNop())
		require.NoError(t, err)

		s.runOnce(context.Background())
		assert.Equal(t, 1, runner.callCount())
	})
}

func TestSyncScheduler_StartStop(t *testing.T) {
	runner := &fakeRunner{}
	s, err := NewSyncScheduler(testConfig(), runner, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	// Idempotent
	require.NoError(t, s.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.ErrorIs(t, s.Stop(stopCtx), ErrSchedulerNotRunning)

	// The nightly schedule never fired during the test
	assert.Zero(t, runner.callCount())
}

func TestSyncScheduler_StopBeforeStart(t *testing.T) {
	s, err := NewSyncScheduler(testConfig(), &fakeRunner{}, zap.NewNop())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Stop(context.Background()), ErrSchedulerNotRunning)
}
