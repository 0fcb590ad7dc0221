package cache

import (
	"context"
	stdsync "sync"
	"time"

	syncapp "github.com/solarops/backend/internal/application/sync"
)

// MemoryRunLock is the single-instance run lock. It honors the same TTL
// contract as the Redis lock so a crashed goroutine cannot block sync
// forever, but its state is process-local.
type MemoryRunLock struct {
	mu      stdsync.Mutex
	held    bool
	expires time.Time
}

// NewMemoryRunLock creates an in-memory run lock
func NewMemoryRunLock() *MemoryRunLock {
	return &MemoryRunLock{}
}

// Acquire takes the lock unless it is held and unexpired.
func (l *MemoryRunLock) Acquire(_ context.Context, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if l.held && now.Before(l.expires) {
		return false, nil
	}
	l.held = true
	l.expires = now.Add(ttl)
	return true, nil
}

// Release frees the lock.
func (l *MemoryRunLock) Release(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

// Ensure MemoryRunLock implements RunLock
var _ syncapp.RunLock = (*MemoryRunLock)(nil)
