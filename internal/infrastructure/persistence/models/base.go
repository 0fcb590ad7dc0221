// Package models holds the GORM persistence models for the locally
// mirrored Bubble collections. The rows are denormalized copies of the
// remote records: every model carries the remote unique ID (bubble_id)
// and the remote Modified Date (modified_at), and FK-shaped columns
// store Bubble string IDs without database constraints.
package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncedModel provides the common persistence fields for all mirrored rows.
type SyncedModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	BubbleID   string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	ModifiedAt time.Time `gorm:"not null;index"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// GetID returns the local primary key
func (m *SyncedModel) GetID() uuid.UUID { return m.ID }

// SetID sets the local primary key
func (m *SyncedModel) SetID(id uuid.UUID) { m.ID = id }

// GetBubbleID returns the remote unique ID
func (m *SyncedModel) GetBubbleID() string { return m.BubbleID }

// GetModifiedAt returns the remote Modified Date
func (m *SyncedModel) GetModifiedAt() time.Time { return m.ModifiedAt }

// GetCreatedAt returns the local creation timestamp
func (m *SyncedModel) GetCreatedAt() time.Time { return m.CreatedAt }

// SetCreatedAt sets the local creation timestamp, preserved across upserts
func (m *SyncedModel) SetCreatedAt(t time.Time) { m.CreatedAt = t }

// RemoteRow is implemented by every mirrored model. The table store
// works against this interface so one upsert path serves all nine
// collections.
type RemoteRow interface {
	TableName() string
	GetID() uuid.UUID
	SetID(uuid.UUID)
	GetBubbleID() string
	GetModifiedAt() time.Time
	GetCreatedAt() time.Time
	SetCreatedAt(time.Time)
}
