// Package syncapp implements the Bubble → Postgres synchronization
// engine: the per-table sync loop, the nine-table package sync, the
// binary file migration and the relationship validator.
package syncapp

import (
	"github.com/solarops/backend/internal/domain/sync"
	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/persistence/models"
)

// TableDescriptor binds one local table to its remote Bubble object
// type: how to fetch it, how to build an empty row for lookups, and how
// to map a remote record onto a local row.
type TableDescriptor struct {
	Table      sync.Table
	RemoteType string
	NewRow     func() models.RemoteRow
	Map        func(bubble.Record) (models.RemoteRow, error)
}

// descriptors lists all mirrored tables in dependency order. Parents
// come before the rows carrying their IDs, matching sync.SyncOrder.
var descriptors = []TableDescriptor{
	{Table: sync.TableAgents, RemoteType: "agent", NewRow: func() models.RemoteRow { return &models.AgentModel{} }, Map: mapAgent},
	{Table: sync.TableUsers, RemoteType: "user", NewRow: func() models.RemoteRow { return &models.UserModel{} }, Map: mapUser},
	{Table: sync.TableCustomers, RemoteType: "customer", NewRow: func() models.RemoteRow { return &models.CustomerModel{} }, Map: mapCustomer},
	{Table: sync.TableInvoices, RemoteType: "invoice", NewRow: func() models.RemoteRow { return &models.InvoiceModel{} }, Map: mapInvoice},
	{Table: sync.TableInvoiceItems, RemoteType: "invoiceitem", NewRow: func() models.RemoteRow { return &models.InvoiceItemModel{} }, Map: mapInvoiceItem},
	{Table: sync.TableSedaRegistrations, RemoteType: "sedaregistration", NewRow: func() models.RemoteRow { return &models.SedaRegistrationModel{} }, Map: mapSedaRegistration},
	{Table: sync.TableInvoiceTemplates, RemoteType: "invoicetemplate", NewRow: func() models.RemoteRow { return &models.InvoiceTemplateModel{} }, Map: mapInvoiceTemplate},
	{Table: sync.TablePayments, RemoteType: "payment", NewRow: func() models.RemoteRow { return &models.PaymentModel{} }, Map: mapPayment},
	{Table: sync.TableSubmittedPayments, RemoteType: "submittedpayment", NewRow: func() models.RemoteRow { return &models.SubmittedPaymentModel{} }, Map: mapSubmittedPayment},
}

// Descriptors returns the table descriptors in sync order.
func Descriptors() []TableDescriptor {
	return descriptors
}

// DescriptorFor looks up the descriptor of one table.
func DescriptorFor(table sync.Table) (TableDescriptor, bool) {
	for _, d := range descriptors {
		if d.Table == table {
			return d, true
		}
	}
	return TableDescriptor{}, false
}
