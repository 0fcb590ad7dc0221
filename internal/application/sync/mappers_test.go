package syncapp

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/solarops/backend/internal/infrastructure/bubble"
	"github.com/solarops/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapInvoice(t *testing.T) {
	rec := bubble.Record{
		"_id":            "inv-1",
		"Modified Date":  "2026-03-01T08:00:00.000Z",
		"Customer":       "cust-1",
		"Template":       "tpl-1",
		"Invoice Number": "INV-2026-0042",
		"Status":         "unpaid",
		"Issue Date":     "2026-02-15T00:00:00.000Z",
		"Subtotal":       float64(1000),
		"Tax":            float64(60),
		"Total":          1060.50,
		"Attachments":    []any{"//host/a.pdf", "//host/b.pdf"},
		"Notes":          "rush order",
	}

	row, err := mapInvoice(rec)
	require.NoError(t, err)
	invoice := row.(*models.InvoiceModel)

	assert.Equal(t, "inv-1", invoice.BubbleID)
	assert.Equal(t, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), invoice.ModifiedAt)
	assert.Equal(t, "cust-1", invoice.CustomerBID)
	assert.Equal(t, "tpl-1", invoice.TemplateBID)
	assert.Equal(t, "INV-2026-0042", invoice.Number)
	assert.True(t, invoice.Total.Equal(decimal.NewFromFloat(1060.50)))
	require.NotNil(t, invoice.IssueDate)
	assert.Nil(t, invoice.DueDate)
	assert.Equal(t, models.StringArray{"//host/a.pdf", "//host/b.pdf"}, invoice.AttachmentURLs)
}

func TestMapAgent(t *testing.T) {
	rec := bubble.Record{
		"_id":             "agent-1",
		"Modified Date":   "2026-03-01T08:00:00.000Z",
		"Name":            "Siti",
		"Commission Rate": 0.05,
		"Active":          true,
	}

	row, err := mapAgent(rec)
	require.NoError(t, err)
	agent := row.(*models.AgentModel)

	assert.Equal(t, "Siti", agent.Name)
	assert.True(t, agent.CommissionRate.Equal(decimal.NewFromFloat(0.05)))
	assert.True(t, agent.Active)
}

func TestSynced_Fallbacks(t *testing.T) {
	t.Run("missing _id is an error", func(t *testing.T) {
		_, err := synced(bubble.Record{"Modified Date": "2026-03-01T08:00:00.000Z"})
		assert.Error(t, err)
	})

	t.Run("modified falls back to created", func(t *testing.T) {
		base, err := synced(bubble.Record{
			"_id":          "x",
			"Created Date": "2026-01-01T00:00:00.000Z",
		})
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), base.ModifiedAt)
	})

	t.Run("no timestamps at all is an error", func(t *testing.T) {
		_, err := synced(bubble.Record{"_id": "x"})
		assert.Error(t, err)
	})
}

func TestDescriptors(t *testing.T) {
	descs := Descriptors()
	require.Len(t, descs, 9)
	// Dependency order: agents first, submitted payments last
	assert.Equal(t, "agent", descs[0].RemoteType)
	assert.Equal(t, "submittedpayment", descs[8].RemoteType)

	for _, d := range descs {
		assert.NotNil(t, d.NewRow(), d.RemoteType)
		assert.NotNil(t, d.Map, d.RemoteType)
	}

	_, ok := DescriptorFor("nonexistent")
	assert.False(t, ok)
}
