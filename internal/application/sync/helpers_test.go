package syncapp

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/persistence"
	"github.com/solarops/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newSyncTestStore opens an in-memory SQLite database with all mirrored
// tables plus sync_runs migrated.
func newSyncTestStore(t *testing.T) (*persistence.TableStore, *persistence.Database) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.AgentModel{},
		&models.UserModel{},
		&models.CustomerModel{},
		&models.InvoiceModel{},
		&models.InvoiceItemModel{},
		&models.SedaRegistrationModel{},
		&models.InvoiceTemplateModel{},
		&models.PaymentModel{},
		&models.SubmittedPaymentModel{},
		&models.SyncRunModel{},
	)
	require.NoError(t, err)

	database := &persistence.Database{DB: db}
	return persistence.NewTableStore(database), database
}

// fakeRemote serves canned pages per object type, split into pages of
// pageSize, honoring the modified-since constraint like the real API.
type fakeRemote struct {
	pageSize int
	data     map[string][]bubble.Record
	calls    int
	failType string // object type whose fetches fail
}

func (f *fakeRemote) FetchPage(_ context.Context, objectType string, cursor int, since *time.Time) (*bubble.Page, error) {
	f.calls++
	if objectType == f.failType {
		return nil, bubble.ErrUnavailable
	}

	all := f.data[objectType]
	if since != nil {
		var filtered []bubble.Record
		for _, rec := range all {
			if rec.Modified().After(*since) {
				filtered = append(filtered, rec)
			}
		}
		all = filtered
	}

	size := f.pageSize
	if size <= 0 {
		size = 100
	}
	end := cursor + size
	if end > len(all) {
		end = len(all)
	}
	var results []bubble.Record
	if cursor < len(all) {
		results = all[cursor:end]
	}
	return &bubble.Page{
		Results:   results,
		Cursor:    cursor,
		Count:     len(results),
		Remaining: len(all) - end,
	}, nil
}

func remoteRecord(id string, modified time.Time, fields map[string]any) bubble.Record {
	rec := bubble.Record{
		"_id":           id,
		"Modified Date": modified.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	for k, v := range fields {
		rec[k] = v
	}
	return rec
}

// seedRow inserts one row through the table store.
func seedRow(t *testing.T, store *persistence.TableStore, incoming, blank models.RemoteRow) {
	t.Helper()
	_, err := store.UpsertFromRemote(context.Background(), incoming, blank)
	require.NoError(t, err)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

// memoryLock is a trivial RunLock for tests. Background runs release it
// from their own goroutine, so it carries a mutex.
type memoryLock struct {
	mu   stdsync.Mutex
	held bool
}

func (l *memoryLock) Acquire(_ context.Context, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *memoryLock) Release(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

var _ RunLock = (*memoryLock)(nil)

// requireTableReport finds one table's report in a run detail.
func requireTableReport(t *testing.T, run *sync.Run, table sync.Table) sync.TableReport {
	t.Helper()
	require.NotNil(t, run.Detail)
	for _, report := range run.Detail.Tables {
		if report.Table == string(table) {
			return report
		}
	}
	t.Fatalf("no report for table %s", table)
	return sync.TableReport{}
}
