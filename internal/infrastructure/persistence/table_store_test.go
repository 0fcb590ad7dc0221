package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/solarops/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestStore opens an in-memory SQLite database with the mirrored
// tables migrated. SQLite gives the upsert and scan paths a real SQL
// engine without needing Postgres; the integration suite covers the
// Postgres-specific pieces.
func newTestStore(t *testing.T) *TableStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.AgentModel{},
		&models.UserModel{},
		&models.CustomerModel{},
		&models.InvoiceModel{},
		&models.InvoiceItemModel{},
	)
	require.NoError(t, err)

	return NewTableStore(&Database{DB: db})
}

func agentRow(bubbleID string, modified time.Time) *models.AgentModel {
	return &models.AgentModel{
		SyncedModel: models.SyncedModel{BubbleID: bubbleID, ModifiedAt: modified},
		Name:        "Agent " + bubbleID,
		Active:      true,
	}
}

func TestTableStore_UpsertFromRemote(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	t.Run("creates unknown rows", func(t *testing.T) {
		store := newTestStore(t)

		result, err := store.UpsertFromRemote(ctx, agentRow("agent-1", base), &models.AgentModel{})
		require.NoError(t, err)
		assert.Equal(t, UpsertCreated, result)

		var saved models.AgentModel
		require.NoError(t, store.db.DB.Where("bubble_id = ?", "agent-1").First(&saved).Error)
		assert.NotEqual(t, saved.ID.String(), "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, "Agent agent-1", saved.Name)
	})

	t.Run("newer remote row overwrites the local copy", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.UpsertFromRemote(ctx, agentRow("agent-1", base), &models.AgentModel{})
		require.NoError(t, err)

		var before models.AgentModel
		require.NoError(t, store.db.DB.Where("bubble_id = ?", "agent-1").First(&before).Error)

		incoming := agentRow("agent-1", base.Add(time.Hour))
		incoming.Name = "Renamed"
		result, err := store.UpsertFromRemote(ctx, incoming, &models.AgentModel{})
		require.NoError(t, err)
		assert.Equal(t, UpsertUpdated, result)

		var after models.AgentModel
		require.NoError(t, store.db.DB.Where("bubble_id = ?", "agent-1").First(&after).Error)
		assert.Equal(t, "Renamed", after.Name)
		// Local identity survives the overwrite
		assert.Equal(t, before.ID, after.ID)
		assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	})

	t.Run("stale remote row is skipped", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.UpsertFromRemote(ctx, agentRow("agent-1", base), &models.AgentModel{})
		require.NoError(t, err)

		stale := agentRow("agent-1", base.Add(-time.Hour))
		stale.Name = "Should not land"
		result, err := store.UpsertFromRemote(ctx, stale, &models.AgentModel{})
		require.NoError(t, err)
		assert.Equal(t, UpsertSkipped, result)

		var saved models.AgentModel
		require.NoError(t, store.db.DB.Where("bubble_id = ?", "agent-1").First(&saved).Error)
		assert.Equal(t, "Agent agent-1", saved.Name)
	})

	t.Run("equal modified date is skipped", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.UpsertFromRemote(ctx, agentRow("agent-1", base), &models.AgentModel{})
		require.NoError(t, err)

		result, err := store.UpsertFromRemote(ctx, agentRow("agent-1", base), &models.AgentModel{})
		require.NoError(t, err)
		assert.Equal(t, UpsertSkipped, result)
	})
}

func TestTableStore_AllBubbleIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	modified := time.Now().UTC()

	for _, id := range []string{"a1", "a2", "a3"} {
		_, err := store.UpsertFromRemote(ctx, agentRow(id, modified), &models.AgentModel{})
		require.NoError(t, err)
	}

	ids, err := store.AllBubbleIDs(ctx, "agents")
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, "a2")

	t.Run("rejects invalid identifiers", func(t *testing.T) {
		_, err := store.AllBubbleIDs(ctx, "agents; DROP TABLE agents")
		assert.Error(t, err)
	})
}

func TestTableStore_ColumnRefs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	modified := time.Now().UTC()

	rows := []*models.UserModel{
		{SyncedModel: models.SyncedModel{BubbleID: "u1", ModifiedAt: modified}, AgentBID: "a1"},
		{SyncedModel: models.SyncedModel{BubbleID: "u2", ModifiedAt: modified}, AgentBID: ""},
		{SyncedModel: models.SyncedModel{BubbleID: "u3", ModifiedAt: modified}, AgentBID: "a9"},
	}
	for _, row := range rows {
		_, err := store.UpsertFromRemote(ctx, row, &models.UserModel{})
		require.NoError(t, err)
	}

	refs, err := store.ColumnRefs(ctx, "users", "agent_bid")
	require.NoError(t, err)
	require.Len(t, refs, 2)

	byBubbleID := map[string]string{}
	for _, ref := range refs {
		byBubbleID[ref.BubbleID] = ref.Value
	}
	assert.Equal(t, "a1", byBubbleID["u1"])
	assert.Equal(t, "a9", byBubbleID["u3"])
}

func TestTableStore_ClearColumn(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	modified := time.Now().UTC()

	for _, u := range []struct{ id, agent string }{{"u1", "a1"}, {"u2", "gone"}, {"u3", "gone"}} {
		row := &models.UserModel{
			SyncedModel: models.SyncedModel{BubbleID: u.id, ModifiedAt: modified},
			AgentBID:    u.agent,
		}
		_, err := store.UpsertFromRemote(ctx, row, &models.UserModel{})
		require.NoError(t, err)
	}

	cleared, err := store.ClearColumn(ctx, "users", "agent_bid", []string{"u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	refs, err := store.ColumnRefs(ctx, "users", "agent_bid")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "u1", refs[0].BubbleID)

	t.Run("empty id list is a no-op", func(t *testing.T) {
		cleared, err := store.ClearColumn(ctx, "users", "agent_bid", nil)
		require.NoError(t, err)
		assert.Zero(t, cleared)
	})
}

func TestTableStore_DeleteByBubbleIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	modified := time.Now().UTC()

	for _, id := range []string{"li1", "li2", "li3"} {
		row := &models.InvoiceItemModel{
			SyncedModel: models.SyncedModel{BubbleID: id, ModifiedAt: modified},
			InvoiceBID:  "inv-1",
		}
		_, err := store.UpsertFromRemote(ctx, row, &models.InvoiceItemModel{})
		require.NoError(t, err)
	}

	deleted, err := store.DeleteByBubbleIDs(ctx, "invoice_items", []string{"li1", "li3"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := store.Count(ctx, "invoice_items")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTableStore_UpdateColumn(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	modified := time.Now().UTC()

	invoice := &models.InvoiceModel{
		SyncedModel:    models.SyncedModel{BubbleID: "inv-1", ModifiedAt: modified},
		AttachmentURLs: models.StringArray{"https://s3.amazonaws.com/bucket/a.pdf"},
	}
	_, err := store.UpsertFromRemote(ctx, invoice, &models.InvoiceModel{})
	require.NoError(t, err)

	err = store.UpdateColumn(ctx, "invoices", "attachment_urls", "inv-1", `["/files/invoices/a.pdf"]`)
	require.NoError(t, err)

	var saved models.InvoiceModel
	require.NoError(t, store.db.DB.Where("bubble_id = ?", "inv-1").First(&saved).Error)
	assert.Equal(t, models.StringArray{"/files/invoices/a.pdf"}, saved.AttachmentURLs)
}
