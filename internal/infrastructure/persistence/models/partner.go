package models

import (
	"github.com/shopspring/decimal"
)

// AgentModel mirrors the remote agent collection. Agents are the sales
// partners customers and portal users hang off.
type AgentModel struct {
	SyncedModel
	Name           string          `gorm:"type:varchar(200);not null"`
	Email          string          `gorm:"type:varchar(200);index"`
	Phone          string          `gorm:"type:varchar(50)"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0"`
	Active         bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (AgentModel) TableName() string {
	return "agents"
}

// UserModel mirrors the remote portal user collection. AgentBID stores
// the Bubble ID of the owning agent, unconstrained.
type UserModel struct {
	SyncedModel
	AgentBID  string `gorm:"type:varchar(64);index"`
	Name      string `gorm:"type:varchar(200);not null"`
	Email     string `gorm:"type:varchar(200);index"`
	Role      string `gorm:"type:varchar(50)"`
	AvatarURL string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// CustomerModel mirrors the remote customer collection.
type CustomerModel struct {
	SyncedModel
	AgentBID string `gorm:"type:varchar(64);index"`
	UserBID  string `gorm:"type:varchar(64);index"`
	Name     string `gorm:"type:varchar(200);not null"`
	Email    string `gorm:"type:varchar(200);index"`
	Phone    string `gorm:"type:varchar(50)"`
	Address  string `gorm:"type:text"`
	City     string `gorm:"type:varchar(100)"`
	State    string `gorm:"type:varchar(100)"`
	Postcode string `gorm:"type:varchar(20)"`
	ICNumber string `gorm:"type:varchar(50)"`
	PhotoURL string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}
