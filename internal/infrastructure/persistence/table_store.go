package persistence

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/solarops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// UpsertResult says what UpsertFromRemote did with a record.
type UpsertResult int

const (
	UpsertCreated UpsertResult = iota
	UpsertUpdated
	UpsertSkipped
)

// ColumnRef is one row's bubble_id together with the value of a single
// column, as text. For jsonb array columns the value is the raw JSON
// document.
type ColumnRef struct {
	BubbleID string
	Value    string
}

// identPattern guards table and column names that get interpolated into
// SQL. All callers pass compile-time constants, this is a backstop.
var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// TableStore performs the generic row operations the sync engine needs
// against any mirrored table. All nine collections share one upsert and
// scan path; the models package supplies the concrete row types.
type TableStore struct {
	db *Database
}

// NewTableStore creates a table store on the given database
func NewTableStore(db *Database) *TableStore {
	return &TableStore{db: db}
}

// UpsertFromRemote reconciles one incoming remote row with the local
// table. existing must be an empty value of the same model type; it is
// used for the lookup query.
//
// Rules: unknown bubble_id creates the row; a local copy at least as
// new as the remote one is left untouched; otherwise the remote row
// wins and overwrites the local copy in place.
func (s *TableStore) UpsertFromRemote(ctx context.Context, incoming, existing models.RemoteRow) (UpsertResult, error) {
	err := s.db.DB.WithContext(ctx).
		Where("bubble_id = ?", incoming.GetBubbleID()).
		First(existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return UpsertSkipped, fmt.Errorf("failed to look up %s row: %w", incoming.TableName(), err)
		}
		incoming.SetID(uuid.New())
		if err := s.db.DB.WithContext(ctx).Create(incoming).Error; err != nil {
			return UpsertSkipped, fmt.Errorf("failed to create %s row: %w", incoming.TableName(), err)
		}
		return UpsertCreated, nil
	}

	if !incoming.GetModifiedAt().After(existing.GetModifiedAt()) {
		return UpsertSkipped, nil
	}

	incoming.SetID(existing.GetID())
	incoming.SetCreatedAt(existing.GetCreatedAt())
	if err := s.db.DB.WithContext(ctx).Save(incoming).Error; err != nil {
		return UpsertSkipped, fmt.Errorf("failed to update %s row: %w", incoming.TableName(), err)
	}
	return UpsertUpdated, nil
}

// AllBubbleIDs loads the full bubble_id set of a table into memory. The
// validator checks reference targets against these sets.
func (s *TableStore) AllBubbleIDs(ctx context.Context, table string) (map[string]struct{}, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	var ids []string
	err := s.db.DB.WithContext(ctx).Table(table).Pluck("bubble_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load bubble ids of %s: %w", table, err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// ColumnRefs returns bubble_id plus the given column for every row where
// the column is non-empty. Serves both reference validation and the
// file-column scans.
func (s *TableStore) ColumnRefs(ctx context.Context, table, column string) ([]ColumnRef, error) {
	if err := checkIdent(table); err != nil {
		return nil, err
	}
	if err := checkIdent(column); err != nil {
		return nil, err
	}

	rows, err := s.db.DB.WithContext(ctx).Table(table).
		Select("bubble_id, " + column).
		Where(column + " IS NOT NULL AND " + column + " <> '' AND " + column + " <> '[]'").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s.%s: %w", table, column, err)
	}
	defer rows.Close()

	var refs []ColumnRef
	for rows.Next() {
		var ref ColumnRef
		if err := rows.Scan(&ref.BubbleID, &ref.Value); err != nil {
			return nil, fmt.Errorf("failed to scan %s.%s row: %w", table, column, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s.%s: %w", table, column, err)
	}
	return refs, nil
}

// UpdateColumn sets one column of one row, identified by bubble_id.
func (s *TableStore) UpdateColumn(ctx context.Context, table, column, bubbleID, value string) error {
	if err := checkIdent(table); err != nil {
		return err
	}
	if err := checkIdent(column); err != nil {
		return err
	}
	err := s.db.DB.WithContext(ctx).Table(table).
		Where("bubble_id = ?", bubbleID).
		Updates(map[string]any{column: value, "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to update %s.%s: %w", table, column, err)
	}
	return nil
}

// ClearColumn empties the given column on the listed rows. The repair
// pass uses this to null out dangling references.
func (s *TableStore) ClearColumn(ctx context.Context, table, column string, bubbleIDs []string) (int64, error) {
	if len(bubbleIDs) == 0 {
		return 0, nil
	}
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	if err := checkIdent(column); err != nil {
		return 0, err
	}
	result := s.db.DB.WithContext(ctx).Table(table).
		Where("bubble_id IN ?", bubbleIDs).
		Updates(map[string]any{column: "", "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear %s.%s: %w", table, column, result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByBubbleIDs removes the listed rows. Only invoice items are
// deleted on repair; everything else gets its reference cleared.
func (s *TableStore) DeleteByBubbleIDs(ctx context.Context, table string, bubbleIDs []string) (int64, error) {
	if len(bubbleIDs) == 0 {
		return 0, nil
	}
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	result := s.db.DB.WithContext(ctx).
		Exec("DELETE FROM "+table+" WHERE bubble_id IN ?", bubbleIDs)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, result.Error)
	}
	return result.RowsAffected, nil
}

// Count returns the row count of a mirrored table.
func (s *TableStore) Count(ctx context.Context, table string) (int64, error) {
	if err := checkIdent(table); err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.DB.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}
