package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/config"
)

// Factory creates the coordination stores (financing lock, idempotency keys) based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	lockConfig            config.LockConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to an in-process lock
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, lockCfg config.LockConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		lockConfig:            lockCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IdempotencyStore returns a Redis-backed store when a client is available
func (f *Factory) IdempotencyStore(client *redis.Client) shared.IdempotencyStore {
	if client != nil {
		return NewRedisIdempotencyStore(client, "")
	}
	return NewInMemoryIdempotencyStore()
}

// CreateLocker returns a Redis locker when Redis is enabled and reachable, and an
// in-memory locker otherwise. The Redis client is returned so the caller can
// close it on shutdown; it is nil for the in-memory locker.
func (f *Factory) CreateLocker() (shared.Locker, *redis.Client, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory financing lock")
		return NewInMemoryLocker(f.lockConfig), nil, nil
	}

	client, err := NewRedisClient(f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis financing lock", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisLocker(client, f.lockConfig, f.logger), client, nil
	}
	if !f.allowInMemoryFallback {
		return nil, nil, fmt.Errorf("Redis required for financing lock but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory financing lock. "+
		"Concurrent instances will not be serialized.",
		zap.Error(err),
	)
	return NewInMemoryLocker(f.lockConfig), nil, nil
}
