package syncapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/config"
	"github.com/solarops/backend/internal/infrastructure/persistence"
	"github.com/solarops/backend/internal/infrastructure/storage"
)

// maxReportedErrors caps the error messages kept in a file report.
const maxReportedErrors = 20

// Downloader fetches one remote file. *bubble.Client implements it.
type Downloader interface {
	Download(ctx context.Context, rawURL string, maxSize int64) (*bubble.File, error)
}

// fileColumn names one file-bearing column: which table and column it
// lives in, the storage subfolder its files land in, and whether the
// column holds a JSON array of URLs.
type fileColumn struct {
	table    string
	column   string
	category string
	array    bool
}

// fileColumns is every column the migrator scans.
var fileColumns = []fileColumn{
	{table: "customers", column: "photo_url", category: "customers"},
	{table: "users", column: "avatar_url", category: "users"},
	{table: "invoices", column: "attachment_urls", category: "invoices", array: true},
	{table: "seda_registrations", column: "document_urls", category: "seda", array: true},
	{table: "seda_registrations", column: "meter_photo_url", category: "seda"},
	{table: "invoice_templates", column: "logo_url", category: "templates"},
}

// FileMigrator moves externally hosted files (Bubble's S3 buckets) into
// our own storage and rewrites the stored URLs to local /files paths.
type FileMigrator struct {
	client    Downloader
	store     *persistence.TableStore
	files     storage.Store
	cfg       *config.FilesConfig
	fileHosts []string
	logger    *zap.Logger
}

// NewFileMigrator creates a file migrator. fileHosts restricts the pass
// to URLs on the given hosts (Bubble's storage buckets); empty means
// every external URL is fair game.
func NewFileMigrator(client Downloader, store *persistence.TableStore, files storage.Store, cfg *config.FilesConfig, fileHosts []string, logger *zap.Logger) *FileMigrator {
	return &FileMigrator{client: client, store: store, files: files, cfg: cfg, fileHosts: fileHosts, logger: logger}
}

// Migrate scans every file-bearing column and migrates each external
// URL it finds. Download failures leave the original URL in place and
// are counted; only a database error aborts the pass.
func (m *FileMigrator) Migrate(ctx context.Context) (*sync.FileReport, error) {
	report := &sync.FileReport{}

	for _, col := range fileColumns {
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		default:
		}

		refs, err := m.store.ColumnRefs(ctx, col.table, col.column)
		if err != nil {
			return report, fmt.Errorf("failed to scan %s.%s: %w", col.table, col.column, err)
		}

		for _, ref := range refs {
			if col.array {
				m.migrateArrayValue(ctx, col, ref, report)
			} else {
				m.migrateSingleValue(ctx, col, ref, report)
			}
		}
	}

	m.logger.Info("File migration finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("migrated", report.Migrated),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int64("bytes_read", report.BytesRead),
	)
	return report, nil
}

func (m *FileMigrator) migrateSingleValue(ctx context.Context, col fileColumn, ref persistence.ColumnRef, report *sync.FileReport) {
	report.Scanned++
	if !m.isExternal(ref.Value) {
		report.Skipped++
		return
	}

	localPath, size, err := m.migrateOne(ctx, ref.Value, col.category)
	if err != nil {
		m.recordFailure(report, col, ref.BubbleID, err)
		return
	}

	if err := m.store.UpdateColumn(ctx, col.table, col.column, ref.BubbleID, localPath); err != nil {
		m.recordFailure(report, col, ref.BubbleID, err)
		return
	}
	report.Migrated++
	report.BytesRead += size
}

func (m *FileMigrator) migrateArrayValue(ctx context.Context, col fileColumn, ref persistence.ColumnRef, report *sync.FileReport) {
	var urls []string
	if err := json.Unmarshal([]byte(ref.Value), &urls); err != nil {
		report.Scanned++
		m.recordFailure(report, col, ref.BubbleID, fmt.Errorf("malformed url array: %w", err))
		return
	}

	changed := false
	for i, raw := range urls {
		report.Scanned++
		if !m.isExternal(raw) {
			report.Skipped++
			continue
		}

		localPath, size, err := m.migrateOne(ctx, raw, col.category)
		if err != nil {
			m.recordFailure(report, col, ref.BubbleID, err)
			continue
		}
		urls[i] = localPath
		changed = true
		report.Migrated++
		report.BytesRead += size
	}

	if !changed {
		return
	}
	rewritten, err := json.Marshal(urls)
	if err != nil {
		m.recordFailure(report, col, ref.BubbleID, err)
		return
	}
	if err := m.store.UpdateColumn(ctx, col.table, col.column, ref.BubbleID, string(rewritten)); err != nil {
		m.recordFailure(report, col, ref.BubbleID, err)
	}
}

// migrateOne downloads a remote file, stores it under the category
// folder with a sanitized collision-free name, and returns the local
// public path.
func (m *FileMigrator) migrateOne(ctx context.Context, rawURL, category string) (string, int64, error) {
	file, err := m.client.Download(ctx, rawURL, m.cfg.MaxFileSize)
	if err != nil {
		return "", 0, err
	}

	name := SanitizeFilename(remoteFilename(rawURL))
	key := category + "/" + name
	for n := 1; ; n++ {
		exists, err := m.files.Exists(ctx, key)
		if err != nil {
			return "", 0, err
		}
		if !exists {
			break
		}
		key = category + "/" + SuffixedFilename(name, n)
	}

	if err := m.files.Save(ctx, key, file.ContentType, file.Data); err != nil {
		return "", 0, err
	}
	return m.cfg.PublicPath + "/" + key, int64(len(file.Data)), nil
}

// isExternal reports whether a column value is a remote URL still to be
// migrated. Values already under our public path, empty values, and
// non-URL junk are not; with file hosts configured, URLs on other hosts
// stay where they are.
func (m *FileMigrator) isExternal(value string) bool {
	if value == "" || strings.HasPrefix(value, m.cfg.PublicPath+"/") {
		return false
	}
	if !strings.HasPrefix(value, "http://") &&
		!strings.HasPrefix(value, "https://") &&
		!strings.HasPrefix(value, "//") {
		return false
	}
	if len(m.fileHosts) == 0 {
		return true
	}
	return m.onFileHost(value)
}

// onFileHost matches the URL's host against the configured file hosts,
// exactly or as a subdomain.
func (m *FileMigrator) onFileHost(rawURL string) bool {
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, h := range m.fileHosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// remoteFilename extracts the filename component of a remote URL,
// decoded, with a fallback when the URL has no usable path.
func remoteFilename(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "file"
	}
	name := path.Base(parsed.Path)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return name
}

func (m *FileMigrator) recordFailure(report *sync.FileReport, col fileColumn, bubbleID string, err error) {
	report.Failed++
	m.logger.Warn("Failed to migrate file",
		zap.String("table", col.table),
		zap.String("column", col.column),
		zap.String("bubble_id", bubbleID),
		zap.Error(err),
	)
	if len(report.Errors) < maxReportedErrors {
		report.Errors = append(report.Errors, fmt.Sprintf("%s.%s %s: %v", col.table, col.column, bubbleID, err))
	}
}
