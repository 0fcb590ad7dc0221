package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	syncapp "github.com/solarops/backend/internal/application/sync"
)

// defaultLockKey is the Redis key the sync lock lives under.
const defaultLockKey = "sync:run-lock"

// releaseScript deletes the lock only when the stored token matches, so
// an instance can never release a lock another instance re-acquired
// after the first one's TTL expired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRunLock serializes sync runs across instances with a SET NX key.
// The TTL bounds how long a crashed holder can block the next run.
type RedisRunLock struct {
	client *redis.Client
	key    string
	token  string
}

// NewRedisRunLock creates a run lock on an existing Redis client.
func NewRedisRunLock(client *redis.Client, key string) *RedisRunLock {
	if key == "" {
		key = defaultLockKey
	}
	return &RedisRunLock{client: client, key: key}
}

// Acquire takes the lock. Returns false without error when another
// holder has it.
func (l *RedisRunLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release frees the lock if this instance still holds it.
func (l *RedisRunLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// Ensure RedisRunLock implements RunLock
var _ syncapp.RunLock = (*RedisRunLock)(nil)
