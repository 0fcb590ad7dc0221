package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save then exists", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		exists, err := store.Exists(ctx, "invoices/report.pdf")
		require.NoError(t, err)
		assert.False(t, exists)

		err = store.Save(ctx, "invoices/report.pdf", "application/pdf", []byte("%PDF"))
		require.NoError(t, err)

		exists, err = store.Exists(ctx, "invoices/report.pdf")
		require.NoError(t, err)
		assert.True(t, exists)

		data, err := os.ReadFile(filepath.Join(store.Root(), "invoices", "report.pdf"))
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF"), data)
	})

	t.Run("creates missing root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "files")
		_, err := NewLocalStore(root)
		require.NoError(t, err)

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects keys escaping the root", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		err = store.Save(ctx, "../outside.txt", "text/plain", []byte("nope"))
		assert.Error(t, err)

		_, err = store.Exists(ctx, "../../etc/passwd")
		assert.Error(t, err)
	})

	t.Run("rejects empty keys", func(t *testing.T) {
		store, err := NewLocalStore(t.TempDir())
		require.NoError(t, err)

		assert.Error(t, store.Save(ctx, "", "text/plain", nil))
	})
}
