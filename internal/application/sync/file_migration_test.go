package syncapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/config"
	"github.com/solarops/backend/internal/infrastructure/persistence"
	"github.com/solarops/backend/internal/infrastructure/persistence/models"
	"github.com/solarops/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDownloader returns canned file bodies per URL.
type fakeDownloader struct {
	files    map[string][]byte
	failURLs map[string]bool
	calls    []string
}

func (f *fakeDownloader) Download(_ context.Context, rawURL string, _ int64) (*bubble.File, error) {
	f.calls = append(f.calls, rawURL)
	if f.failURLs[rawURL] {
		return nil, errors.New("download refused")
	}
	data, ok := f.files[rawURL]
	if !ok {
		data = []byte("content of " + rawURL)
	}
	return &bubble.File{Data: data, ContentType: "application/octet-stream"}, nil
}

type migratorFixture struct {
	migrator   *FileMigrator
	downloader *fakeDownloader
	files      *storage.LocalStore
	store      *persistence.TableStore
	db         *persistence.Database
}

func newMigratorFixture(t *testing.T) *migratorFixture {
	t.Helper()
	store, db := newSyncTestStore(t)
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	downloader := &fakeDownloader{failURLs: map[string]bool{}}
	cfg := &config.FilesConfig{PublicPath: "/files", MaxFileSize: 1 << 20}
	return &migratorFixture{
		migrator:   NewFileMigrator(downloader, store, files, cfg, nil, testLogger()),
		downloader: downloader,
		files:      files,
		store:      store,
		db:         db,
	}
}

func TestFileMigrator_Migrate(t *testing.T) {
	ctx := context.Background()
	modified := time.Now().UTC()

	t.Run("migrates single-value columns and rewrites the URL", func(t *testing.T) {
		f := newMigratorFixture(t)

		seedRow(t, f.store, &models.CustomerModel{
			SyncedModel: models.SyncedModel{BubbleID: "cust-1", ModifiedAt: modified},
			PhotoURL:    "https://s3.amazonaws.com/appbucket/photo%20one.jpg",
		}, &models.CustomerModel{})

		report, err := f.migrator.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Migrated)
		assert.Zero(t, report.Failed)
		assert.Positive(t, report.BytesRead)

		refs, err := f.store.ColumnRefs(ctx, "customers", "photo_url")
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "/files/customers/photo_one.jpg", refs[0].Value)

		exists, err := f.files.Exists(ctx, "customers/photo_one.jpg")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("migrates array columns element by element", func(t *testing.T) {
		f := newMigratorFixture(t)

		seedRow(t, f.store, &models.InvoiceModel{
			SyncedModel: models.SyncedModel{BubbleID: "inv-1", ModifiedAt: modified},
			AttachmentURLs: models.StringArray{
				"//appforest_uf.s3.amazonaws.com/quote.pdf",
				"/files/invoices/already-local.pdf",
			},
		}, &models.InvoiceModel{})

		report, err := f.migrator.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Migrated)
		assert.Equal(t, 1, report.Skipped)

		var invoice models.InvoiceModel
		require.NoError(t, f.db.DB.Where("bubble_id = ?", "inv-1").First(&invoice).Error)
		assert.Equal(t, models.StringArray{
			"/files/invoices/quote.pdf",
			"/files/invoices/already-local.pdf",
		}, invoice.AttachmentURLs)
	})

	t.Run("renames on filename collision", func(t *testing.T) {
		f := newMigratorFixture(t)

		seedRow(t, f.store, &models.CustomerModel{
			SyncedModel: models.SyncedModel{BubbleID: "cust-1", ModifiedAt: modified},
			PhotoURL:    "https://hosta.example.com/photo.jpg",
		}, &models.CustomerModel{})
		seedRow(t, f.store, &models.CustomerModel{
			SyncedModel: models.SyncedModel{BubbleID: "cust-2", ModifiedAt: modified},
			PhotoURL:    "https://hostb.example.com/photo.jpg",
		}, &models.CustomerModel{})

		report, err := f.migrator.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Migrated)

		first, err := f.files.Exists(ctx, "customers/photo.jpg")
		require.NoError(t, err)
		second, err := f.files.Exists(ctx, "customers/photo-1.jpg")
		require.NoError(t, err)
		assert.True(t, first)
		assert.True(t, second)
	})

	t.Run("download failure keeps the original URL", func(t *testing.T) {
		f := newMigratorFixture(t)
		f.downloader.failURLs["https://host.example.com/broken.pdf"] = true

		seedRow(t, f.store, &models.CustomerModel{
			SyncedModel: models.SyncedModel{BubbleID: "cust-1", ModifiedAt: modified},
			PhotoURL:    "https://host.example.com/broken.pdf",
		}, &models.CustomerModel{})

		report, err := f.migrator.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
		assert.Zero(t, report.Migrated)
		require.NotEmpty(t, report.Errors)

		refs, err := f.store.ColumnRefs(ctx, "customers", "photo_url")
		require.NoError(t, err)
		assert.Equal(t, "https://host.example.com/broken.pdf", refs[0].Value)
	})

	t.Run("only configured file hosts are migrated", func(t *testing.T) {
		f := newMigratorFixture(t)
		cfg := &config.FilesConfig{PublicPath: "/files", MaxFileSize: 1 << 20}
		m := NewFileMigrator(f.downloader, f.store, f.files, cfg,
			[]string{"s3.amazonaws.com"}, testLogger())

		seedRow(t, f.store, &models.CustomerModel{
			SyncedModel: models.SyncedModel{BubbleID: "cust-1", ModifiedAt: modified},
			PhotoURL:    "https://appforest_uf.s3.amazonaws.com/photo.jpg",
		}, &models.CustomerModel{})
		seedRow(t, f.store, &models.UserModel{
			SyncedModel: models.SyncedModel{BubbleID: "user-1", ModifiedAt: modified},
			AvatarURL:   "https://www.gravatar.com/avatar.png",
		}, &models.UserModel{})

		report, err := m.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Migrated)
		assert.Equal(t, 1, report.Skipped)

		// The foreign-host URL is left untouched.
		refs, err := f.store.ColumnRefs(ctx, "users", "avatar_url")
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "https://www.gravatar.com/avatar.png", refs[0].Value)
	})

	t.Run("already-local values are not downloaded", func(t *testing.T) {
		f := newMigratorFixture(t)

		seedRow(t, f.store, &models.UserModel{
			SyncedModel: models.SyncedModel{BubbleID: "user-1", ModifiedAt: modified},
			AvatarURL:   "/files/users/avatar.png",
		}, &models.UserModel{})

		report, err := f.migrator.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Empty(t, f.downloader.calls)
	})
}

func TestRemoteFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", remoteFilename("https://host/docs/report.pdf"))
	assert.Equal(t, "a b.jpg", remoteFilename("https://host/a%20b.jpg"))
	assert.Equal(t, "x.png", remoteFilename("//host/x.png"))
	assert.Equal(t, "file", remoteFilename("https://host/"))
}
