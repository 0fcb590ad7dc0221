package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	syncapp "github.com/solarops/backend/internal/application/sync"
	"github.com/solarops/backend/internal/infrastructure/config"
)

// RunLockFactory creates run locks based on configuration
type RunLockFactory struct {
	redisConfig         config.RedisConfig
	logger              *zap.Logger
	allowMemoryFallback bool
}

// RunLockFactoryOption is a functional option for configuring the factory
type RunLockFactoryOption func(*RunLockFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) RunLockFactoryOption {
	return func(f *RunLockFactory) {
		f.logger = logger
	}
}

// WithMemoryFallback controls whether to fall back to the in-memory lock
// when Redis is unavailable. Default is true (allow fallback).
func WithMemoryFallback(allow bool) RunLockFactoryOption {
	return func(f *RunLockFactory) {
		f.allowMemoryFallback = allow
	}
}

// NewRunLockFactory creates a new factory
func NewRunLockFactory(cfg config.RedisConfig, opts ...RunLockFactoryOption) *RunLockFactory {
	f := &RunLockFactory{
		redisConfig:         cfg,
		logger:              zap.NewNop(),
		allowMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisLock connects to Redis and creates a distributed run lock.
func (f *RunLockFactory) CreateRedisLock() (syncapp.RunLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRunLock(client, defaultLockKey), nil
}

// CreateLock creates a run lock. With Redis disabled it hands out the
// in-memory lock without ever dialing; with Redis enabled it connects,
// falling back to the in-memory lock only when fallback is allowed.
// The in-memory lock cannot serialize runs across instances.
func (f *RunLockFactory) CreateLock() (syncapp.RunLock, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("using in-memory run lock")
		return NewMemoryRunLock(), nil
	}

	lock, err := f.CreateRedisLock()
	if err == nil {
		f.logger.Info("using Redis run lock")
		return lock, nil
	}

	if !f.allowMemoryFallback {
		return nil, fmt.Errorf("Redis required for run locking but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory run lock. "+
		"Concurrent syncs from other instances will not be detected.",
		zap.Error(err),
	)
	return NewMemoryRunLock(), nil
}
