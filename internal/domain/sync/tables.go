package sync

import (
	"context"
	"time"
)

// Table identifies one locally mirrored Bubble collection.
type Table string

const (
	TableAgents            Table = "agents"
	TableUsers             Table = "users"
	TableCustomers         Table = "customers"
	TableInvoices          Table = "invoices"
	TableInvoiceItems      Table = "invoice_items"
	TableSedaRegistrations Table = "seda_registrations"
	TableInvoiceTemplates  Table = "invoice_templates"
	TablePayments          Table = "payments"
	TableSubmittedPayments Table = "submitted_payments"
)

// SyncOrder is the order the orchestrator syncs tables in. Parents come
// before the rows that reference them; payments land last because they
// hang off fully-synced invoices.
var SyncOrder = []Table{
	TableAgents,
	TableUsers,
	TableCustomers,
	TableInvoices,
	TableInvoiceItems,
	TableSedaRegistrations,
	TableInvoiceTemplates,
	TablePayments,
	TableSubmittedPayments,
}

// RunRepository persists sync runs.
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	FindByID(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
	// LastSuccessfulSyncStart returns the start time of the most recent
	// successful full or incremental run, or nil when none exists. It is
	// the default cutoff for incremental syncs.
	LastSuccessfulSyncStart(ctx context.Context) (*time.Time, error)
}
