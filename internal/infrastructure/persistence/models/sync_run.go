package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/solarops/backend/internal/domain/sync"
)

// SyncRunModel is the persistence model for a sync.Run. The per-table
// breakdown is kept as a jsonb document; nothing queries into it.
type SyncRunModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	Kind       string     `gorm:"type:varchar(20);not null;index"`
	Status     string     `gorm:"type:varchar(20);not null;index"`
	Since      *time.Time `gorm:""`
	StartedAt  time.Time  `gorm:"not null;index"`
	FinishedAt *time.Time `gorm:""`
	Created    int        `gorm:"not null;default:0"`
	Updated    int        `gorm:"not null;default:0"`
	Skipped    int        `gorm:"not null;default:0"`
	Failed     int        `gorm:"not null;default:0"`
	Detail     string     `gorm:"type:jsonb"`
	Error      string     `gorm:"type:text"`
	CreatedAt  time.Time  `gorm:"not null"`
	UpdatedAt  time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain Run.
func (m *SyncRunModel) ToDomain() (*sync.Run, error) {
	run := &sync.Run{
		ID:         m.ID,
		Kind:       sync.RunKind(m.Kind),
		Status:     sync.RunStatus(m.Status),
		Since:      m.Since,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Created:    m.Created,
		Updated:    m.Updated,
		Skipped:    m.Skipped,
		Failed:     m.Failed,
		Error:      m.Error,
	}
	if m.Detail != "" {
		var detail sync.RunDetail
		if err := json.Unmarshal([]byte(m.Detail), &detail); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run detail: %w", err)
		}
		run.Detail = &detail
	}
	return run, nil
}

// SyncRunModelFromDomain creates a persistence model from a domain Run.
func SyncRunModelFromDomain(run *sync.Run) (*SyncRunModel, error) {
	m := &SyncRunModel{
		ID:         run.ID,
		Kind:       string(run.Kind),
		Status:     string(run.Status),
		Since:      run.Since,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Created:    run.Created,
		Updated:    run.Updated,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		Error:      run.Error,
	}
	if run.Detail != nil {
		b, err := json.Marshal(run.Detail)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal run detail: %w", err)
		}
		m.Detail = string(b)
	}
	return m, nil
}
