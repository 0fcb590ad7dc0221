package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SedaRegistrationModel mirrors the remote SEDA registration collection:
// the regulatory application filed for each solar installation.
type SedaRegistrationModel struct {
	SyncedModel
	CustomerBID   string          `gorm:"type:varchar(64);index"`
	InvoiceBID    string          `gorm:"type:varchar(64);index"`
	Status        string          `gorm:"type:varchar(30);index"`
	ApplicationNo string          `gorm:"type:varchar(100)"`
	CapacityKW    decimal.Decimal `gorm:"type:decimal(10,3);not null;default:0"`
	SubmittedAt   *time.Time      `gorm:""`
	ApprovedAt    *time.Time      `gorm:""`
	DocumentURLs  StringArray     `gorm:"type:jsonb"`
	MeterPhotoURL string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SedaRegistrationModel) TableName() string {
	return "seda_registrations"
}
