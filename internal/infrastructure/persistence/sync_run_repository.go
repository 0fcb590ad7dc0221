package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/solarops/backend/internal/domain/shared"
	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSyncRunRepository implements sync.RunRepository using GORM
type GormSyncRunRepository struct {
	db *Database
}

// NewGormSyncRunRepository creates a new GORM-based sync run repository
func NewGormSyncRunRepository(db *Database) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Ensure GormSyncRunRepository implements sync.RunRepository
var _ sync.RunRepository = (*GormSyncRunRepository)(nil)

// Create persists a new sync run
func (r *GormSyncRunRepository) Create(ctx context.Context, run *sync.Run) error {
	model, err := models.SyncRunModelFromDomain(run)
	if err != nil {
		return err
	}
	if err := r.db.DB.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create sync run: %w", err)
	}
	return nil
}

// Update persists the current state of a sync run
func (r *GormSyncRunRepository) Update(ctx context.Context, run *sync.Run) error {
	model, err := models.SyncRunModelFromDomain(run)
	if err != nil {
		return err
	}
	result := r.db.DB.WithContext(ctx).Model(&models.SyncRunModel{}).
		Where("id = ?", run.ID).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update sync run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID retrieves a sync run by its ID
func (r *GormSyncRunRepository) FindByID(ctx context.Context, id string) (*sync.Run, error) {
	var model models.SyncRunModel
	err := r.db.DB.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find sync run: %w", err)
	}
	return model.ToDomain()
}

// List retrieves the most recent sync runs, newest first
func (r *GormSyncRunRepository) List(ctx context.Context, limit int) ([]sync.Run, error) {
	var rows []models.SyncRunModel
	err := r.db.DB.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}

	runs := make([]sync.Run, 0, len(rows))
	for i := range rows {
		run, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// LastSuccessfulSyncStart returns the start time of the most recent
// successful full or incremental run, or nil when none exists.
func (r *GormSyncRunRepository) LastSuccessfulSyncStart(ctx context.Context) (*time.Time, error) {
	var model models.SyncRunModel
	err := r.db.DB.WithContext(ctx).
		Where("status = ? AND kind IN ?", string(sync.RunStatusSuccess),
			[]string{string(sync.RunKindFull), string(sync.RunKindIncremental)}).
		Order("started_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find last successful sync: %w", err)
	}
	started := model.StartedAt
	return &started, nil
}
