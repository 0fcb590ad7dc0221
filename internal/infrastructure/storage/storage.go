// Package storage provides the object stores migrated Bubble files land
// in: local disk by default, any S3-compatible bucket when configured.
package storage

import (
	"context"
)

// Store is the destination for migrated files. Keys are relative paths
// like "invoices/report-2.pdf".
type Store interface {
	// Save writes one file under the given key, overwriting nothing:
	// callers resolve collisions via Exists first.
	Save(ctx context.Context, key, contentType string, data []byte) error
	// Exists reports whether a file is already stored under the key.
	Exists(ctx context.Context, key string) (bool, error)
}
