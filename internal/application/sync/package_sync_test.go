package syncapp

import (
	"context"
	"testing"
	"time"

	"github.com/solarops/backend/internal/domain/shared"
	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/config"
	"github.com/solarops/backend/internal/infrastructure/persistence"
	"github.com/solarops/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	service *Service
	remote  *fakeRemote
	lock    *memoryLock
	runs    sync.RunRepository
	store   *persistence.TableStore
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	store, db := newSyncTestStore(t)
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	remote := &fakeRemote{data: map[string][]bubble.Record{}}
	lock := &memoryLock{}
	runs := persistence.NewGormSyncRunRepository(db)
	cfg := &config.FilesConfig{PublicPath: "/files", MaxFileSize: 1 << 20}

	syncer := NewTableSyncer(remote, store, testLogger())
	migrator := NewFileMigrator(&fakeDownloader{failURLs: map[string]bool{}}, store, files, cfg, nil, testLogger())
	validator := NewValidator(store, testLogger())

	return &serviceFixture{
		service: NewService(syncer, migrator, validator, store, runs, lock, time.Hour, 50, testLogger()),
		remote:  remote,
		lock:    lock,
		runs:    runs,
		store:   store,
	}
}

func TestService_RunPackageSync(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("full sync mirrors every collection", func(t *testing.T) {
		f := newServiceFixture(t)
		f.remote.data = map[string][]bubble.Record{
			"agent":    {remoteRecord("agent-1", base, map[string]any{"Name": "Siti"})},
			"customer": {remoteRecord("cust-1", base, map[string]any{"Agent": "agent-1"})},
			"invoice":  {remoteRecord("inv-1", base, map[string]any{"Customer": "cust-1"})},
		}

		run, err := f.service.RunPackageSync(ctx, PackageSyncOptions{Kind: sync.RunKindFull})
		require.NoError(t, err)

		assert.Equal(t, sync.RunStatusSuccess, run.Status)
		assert.Equal(t, 3, run.Created)
		assert.NotNil(t, run.FinishedAt)
		require.NotNil(t, run.Detail)
		assert.Len(t, run.Detail.Tables, 9)

		agents := requireTableReport(t, run, sync.TableAgents)
		assert.Equal(t, 1, agents.Created)

		// The run was persisted with its final status
		stored, err := f.runs.FindByID(ctx, run.ID.String())
		require.NoError(t, err)
		assert.Equal(t, sync.RunStatusSuccess, stored.Status)

		// And the lock is free again
		free, err := f.lock.Acquire(ctx, time.Minute)
		require.NoError(t, err)
		assert.True(t, free)
	})

	t.Run("incremental cutoff comes from the last successful run", func(t *testing.T) {
		f := newServiceFixture(t)
		f.remote.data = map[string][]bubble.Record{
			"agent": {remoteRecord("agent-old", base, nil)},
		}

		first, err := f.service.RunPackageSync(ctx, PackageSyncOptions{Kind: sync.RunKindFull})
		require.NoError(t, err)
		require.Equal(t, sync.RunStatusSuccess, first.Status)

		// A record modified before the first run started must be filtered
		// out, one modified after must come through.
		f.remote.data["agent"] = append(f.remote.data["agent"],
			remoteRecord("agent-new", time.Now().UTC().Add(time.Hour), nil))

		second, err := f.service.RunPackageSync(ctx, PackageSyncOptions{Kind: sync.RunKindIncremental})
		require.NoError(t, err)

		require.NotNil(t, second.Since)
		assert.Equal(t, first.StartedAt.Unix(), second.Since.Unix())
		assert.Equal(t, 1, second.Created)
		assert.Zero(t, second.Updated)
	})

	t.Run("explicit since overrides the stored cutoff", func(t *testing.T) {
		f := newServiceFixture(t)
		cutoff := base.Add(-time.Hour)
		f.remote.data = map[string][]bubble.Record{
			"agent": {remoteRecord("agent-1", base, nil)},
		}

		run, err := f.service.RunPackageSync(ctx, PackageSyncOptions{
			Kind:  sync.RunKindIncremental,
			Since: &cutoff,
		})
		require.NoError(t, err)

		require.NotNil(t, run.Since)
		assert.True(t, run.Since.Equal(cutoff))
		assert.Equal(t, 1, run.Created)
	})

	t.Run("a held lock rejects the run", func(t *testing.T) {
		f := newServiceFixture(t)
		held, err := f.lock.Acquire(ctx, time.Minute)
		require.NoError(t, err)
		require.True(t, held)

		_, err = f.service.RunPackageSync(ctx, PackageSyncOptions{Kind: sync.RunKindFull})
		assert.ErrorIs(t, err, shared.ErrSyncInFlight)
	})

	t.Run("one failing table leaves the run partial", func(t *testing.T) {
		f := newServiceFixture(t)
		f.remote.failType = "customer"
		f.remote.data = map[string][]bubble.Record{
			"agent": {remoteRecord("agent-1", base, nil)},
		}

		run, err := f.service.RunPackageSync(ctx, PackageSyncOptions{Kind: sync.RunKindFull})
		require.NoError(t, err)

		assert.Equal(t, sync.RunStatusPartial, run.Status)
		customers := requireTableReport(t, run, sync.TableCustomers)
		assert.NotEmpty(t, customers.Err)
		agents := requireTableReport(t, run, sync.TableAgents)
		assert.Equal(t, 1, agents.Created)
	})

	t.Run("with files cascades into a migration pass", func(t *testing.T) {
		f := newServiceFixture(t)
		f.remote.data = map[string][]bubble.Record{
			"customer": {remoteRecord("cust-1", base, map[string]any{
				"Photo": "https://host.example.com/photo.jpg",
			})},
		}

		run, err := f.service.RunPackageSync(ctx, PackageSyncOptions{
			Kind:      sync.RunKindFull,
			WithFiles: true,
		})
		require.NoError(t, err)

		require.NotNil(t, run.Detail.Files)
		assert.Equal(t, 1, run.Detail.Files.Migrated)

		refs, err := f.store.ColumnRefs(ctx, "customers", "photo_url")
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "/files/customers/photo.jpg", refs[0].Value)
	})
}

func TestService_StartPackageSync(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	f := newServiceFixture(t)
	f.remote.data = map[string][]bubble.Record{
		"agent": {remoteRecord("agent-1", base, nil)},
	}

	// The trigger returns before the pass finishes, with the run already
	// recorded as running.
	pending, err := f.service.StartPackageSync(ctx, PackageSyncOptions{Kind: sync.RunKindFull})
	require.NoError(t, err)
	assert.Equal(t, sync.RunStatusRunning, pending.Status)

	stored, err := f.runs.FindByID(ctx, pending.ID.String())
	require.NoError(t, err)
	assert.Equal(t, sync.RunStatusRunning, stored.Status)

	// The background pass completes and records the outcome.
	require.Eventually(t, func() bool {
		stored, err := f.runs.FindByID(ctx, pending.ID.String())
		return err == nil && stored.Status == sync.RunStatusSuccess
	}, 5*time.Second, 10*time.Millisecond)

	stored, err = f.runs.FindByID(ctx, pending.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Created)

	// And the lock is released once it is done.
	require.Eventually(t, func() bool {
		free, err := f.lock.Acquire(ctx, time.Minute)
		return err == nil && free
	}, 5*time.Second, 10*time.Millisecond)
}

func TestService_StartFileMigration(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	pending, err := f.service.StartFileMigration(ctx)
	require.NoError(t, err)
	assert.Equal(t, sync.RunKindFiles, pending.Kind)
	assert.Equal(t, sync.RunStatusRunning, pending.Status)

	require.Eventually(t, func() bool {
		stored, err := f.runs.FindByID(ctx, pending.ID.String())
		return err == nil && stored.Status == sync.RunStatusSuccess
	}, 5*time.Second, 10*time.Millisecond)
}

func TestService_ListRuns_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	for i := 0; i < 3; i++ {
		_, err := f.service.RunValidation(ctx, false)
		require.NoError(t, err)
	}

	// A zero limit falls back to the configured history limit.
	svc := NewService(nil, nil, nil, f.store, f.runs, f.lock, time.Hour, 2, testLogger())
	runs, err := svc.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = svc.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestService_RunValidation(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	f := newServiceFixture(t)
	f.remote.data = map[string][]bubble.Record{
		"customer": {remoteRecord("cust-1", base, map[string]any{"Agent": "agent-missing"})},
	}
	_, err := f.service.RunPackageSync(ctx, PackageSyncOptions{Kind: sync.RunKindFull})
	require.NoError(t, err)

	run, err := f.service.RunValidation(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, sync.RunKindValidation, run.Kind)
	require.NotNil(t, run.Detail.Validation)
	assert.Equal(t, 1, run.Detail.Validation.Dangling)

	// Validation is recorded like any other run
	stored, err := f.runs.FindByID(ctx, run.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.Detail.Validation)
	assert.Equal(t, 1, stored.Detail.Validation.Dangling)
}

func TestService_RunFileMigration(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	run, err := f.service.RunFileMigration(ctx)
	require.NoError(t, err)

	assert.Equal(t, sync.RunKindFiles, run.Kind)
	assert.Equal(t, sync.RunStatusSuccess, run.Status)
	require.NotNil(t, run.Detail.Files)
	assert.Zero(t, run.Detail.Files.Scanned)
}

func TestService_GetStatus(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	f := newServiceFixture(t)
	f.remote.data = map[string][]bubble.Record{
		"agent": {
			remoteRecord("agent-1", base, nil),
			remoteRecord("agent-2", base, nil),
		},
	}
	run, err := f.service.RunPackageSync(ctx, PackageSyncOptions{Kind: sync.RunKindFull})
	require.NoError(t, err)

	status, err := f.service.GetStatus(ctx)
	require.NoError(t, err)

	assert.Nil(t, status.Running)
	require.NotNil(t, status.LastRun)
	assert.Equal(t, run.ID, status.LastRun.ID)
	assert.Equal(t, int64(2), status.Tables["agents"])
	assert.Equal(t, int64(0), status.Tables["invoices"])
	assert.Len(t, status.Tables, 9)
}
