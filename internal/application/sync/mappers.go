package syncapp

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/persistence/models"
)

// synced builds the common fields of a mirrored row. Records without a
// Modified Date fall back to their Created Date; Bubble always stamps
// at least one of the two.
func synced(rec bubble.Record) (models.SyncedModel, error) {
	id := rec.ID()
	if id == "" {
		return models.SyncedModel{}, fmt.Errorf("record has no _id")
	}
	modified := rec.Modified()
	if modified.IsZero() {
		modified = rec.Created()
	}
	if modified.IsZero() {
		return models.SyncedModel{}, fmt.Errorf("record %s has no modified or created date", id)
	}
	return models.SyncedModel{BubbleID: id, ModifiedAt: modified}, nil
}

func money(rec bubble.Record, field string) decimal.Decimal {
	return decimal.NewFromFloat(rec.Float(field))
}

func mapAgent(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.AgentModel{
		SyncedModel:    base,
		Name:           rec.String("Name"),
		Email:          rec.String("Email"),
		Phone:          rec.String("Phone"),
		CommissionRate: money(rec, "Commission Rate"),
		Active:         rec.Bool("Active"),
	}, nil
}

func mapUser(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.UserModel{
		SyncedModel: base,
		AgentBID:    rec.String("Agent"),
		Name:        rec.String("Name"),
		Email:       rec.String("Email"),
		Role:        rec.String("Role"),
		AvatarURL:   rec.String("Avatar"),
	}, nil
}

func mapCustomer(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.CustomerModel{
		SyncedModel: base,
		AgentBID:    rec.String("Agent"),
		UserBID:     rec.String("User"),
		Name:        rec.String("Name"),
		Email:       rec.String("Email"),
		Phone:       rec.String("Phone"),
		Address:     rec.String("Address"),
		City:        rec.String("City"),
		State:       rec.String("State"),
		Postcode:    rec.String("Postcode"),
		ICNumber:    rec.String("IC Number"),
		PhotoURL:    rec.String("Photo"),
	}, nil
}

func mapInvoice(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.InvoiceModel{
		SyncedModel:    base,
		CustomerBID:    rec.String("Customer"),
		TemplateBID:    rec.String("Template"),
		Number:         rec.String("Invoice Number"),
		Status:         rec.String("Status"),
		IssueDate:      rec.TimePtr("Issue Date"),
		DueDate:        rec.TimePtr("Due Date"),
		Subtotal:       money(rec, "Subtotal"),
		Tax:            money(rec, "Tax"),
		Total:          money(rec, "Total"),
		AttachmentURLs: models.StringArray(rec.StringList("Attachments")),
		Notes:          rec.String("Notes"),
	}, nil
}

func mapInvoiceItem(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.InvoiceItemModel{
		SyncedModel: base,
		InvoiceBID:  rec.String("Invoice"),
		Description: rec.String("Description"),
		Quantity:    money(rec, "Quantity"),
		UnitPrice:   money(rec, "Unit Price"),
		Amount:      money(rec, "Amount"),
	}, nil
}

func mapSedaRegistration(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.SedaRegistrationModel{
		SyncedModel:   base,
		CustomerBID:   rec.String("Customer"),
		InvoiceBID:    rec.String("Invoice"),
		Status:        rec.String("Status"),
		ApplicationNo: rec.String("Application No"),
		CapacityKW:    money(rec, "Capacity kW"),
		SubmittedAt:   rec.TimePtr("Submitted Date"),
		ApprovedAt:    rec.TimePtr("Approved Date"),
		DocumentURLs:  models.StringArray(rec.StringList("Documents")),
		MeterPhotoURL: rec.String("Meter Photo"),
	}, nil
}

func mapInvoiceTemplate(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.InvoiceTemplateModel{
		SyncedModel: base,
		Name:        rec.String("Name"),
		Body:        rec.String("Body"),
		LogoURL:     rec.String("Logo"),
		IsDefault:   rec.Bool("Default"),
	}, nil
}

func mapPayment(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.PaymentModel{
		SyncedModel: base,
		InvoiceBID:  rec.String("Invoice"),
		Amount:      money(rec, "Amount"),
		Method:      rec.String("Method"),
		Reference:   rec.String("Reference"),
		PaidAt:      rec.TimePtr("Paid Date"),
		ReceiptURL:  rec.String("Receipt"),
	}, nil
}

func mapSubmittedPayment(rec bubble.Record) (models.RemoteRow, error) {
	base, err := synced(rec)
	if err != nil {
		return nil, err
	}
	return &models.SubmittedPaymentModel{
		SyncedModel: base,
		InvoiceBID:  rec.String("Invoice"),
		PaymentBID:  rec.String("Payment"),
		Amount:      money(rec, "Amount"),
		Reference:   rec.String("Reference"),
		SubmittedAt: rec.TimePtr("Submitted Date"),
		ProofURL:    rec.String("Proof"),
		Verified:    rec.Bool("Verified"),
	}, nil
}
