package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceModel mirrors the remote invoice collection.
type InvoiceModel struct {
	SyncedModel
	CustomerBID    string          `gorm:"type:varchar(64);index"`
	TemplateBID    string          `gorm:"type:varchar(64);index"`
	Number         string          `gorm:"type:varchar(50);index"`
	Status         string          `gorm:"type:varchar(30);index"`
	IssueDate      *time.Time      `gorm:""`
	DueDate        *time.Time      `gorm:""`
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Tax            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AttachmentURLs StringArray     `gorm:"type:jsonb"`
	Notes          string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceItemModel mirrors the remote invoice line-item collection.
// Items with a dangling invoice reference are deleted by the validator
// rather than nulled out; a line without its invoice means nothing.
type InvoiceItemModel struct {
	SyncedModel
	InvoiceBID  string          `gorm:"type:varchar(64);index"`
	Description string          `gorm:"type:text"`
	Quantity    decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// PaymentModel mirrors the remote payment collection.
type PaymentModel struct {
	SyncedModel
	InvoiceBID string          `gorm:"type:varchar(64);index"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Method     string          `gorm:"type:varchar(50)"`
	Reference  string          `gorm:"type:varchar(100)"`
	PaidAt     *time.Time      `gorm:""`
	ReceiptURL string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// SubmittedPaymentModel mirrors the remote submitted-payment collection:
// customer-submitted proofs awaiting verification against a payment.
type SubmittedPaymentModel struct {
	SyncedModel
	InvoiceBID  string          `gorm:"type:varchar(64);index"`
	PaymentBID  string          `gorm:"type:varchar(64);index"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Reference   string          `gorm:"type:varchar(100)"`
	SubmittedAt *time.Time      `gorm:""`
	ProofURL    string          `gorm:"type:text"`
	Verified    bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (SubmittedPaymentModel) TableName() string {
	return "submitted_payments"
}

// InvoiceTemplateModel mirrors the remote invoice-template collection.
type InvoiceTemplateModel struct {
	SyncedModel
	Name      string `gorm:"type:varchar(200);not null"`
	Body      string `gorm:"type:text"`
	LogoURL   string `gorm:"type:text"`
	IsDefault bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InvoiceTemplateModel) TableName() string {
	return "invoice_templates"
}
