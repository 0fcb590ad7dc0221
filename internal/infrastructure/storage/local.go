package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes migrated files under a root directory on disk. The
// HTTP server serves the same directory as /files/*.
type LocalStore struct {
	root string
}

// Ensure LocalStore implements Store
var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a local store rooted at dir, creating it if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Root returns the directory files are stored under.
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes the file under root/key.
func (s *LocalStore) Save(_ context.Context, key, _ string, data []byte) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Exists reports whether root/key is present.
func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	full, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", key, err)
}

// resolve joins key onto the root and refuses keys that escape it.
func (s *LocalStore) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	full := filepath.Join(s.root, filepath.FromSlash(key))
	rootAbs, err := filepath.Abs(s.root)
	if err != nil {
		return "", err
	}
	fullAbs, err := filepath.Abs(full)
	if err != nil {
		return "", err
	}
	if fullAbs != rootAbs && !strings.HasPrefix(fullAbs, rootAbs+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage key %q escapes the root", key)
	}
	return full, nil
}
