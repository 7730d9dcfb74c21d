package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/config"
)

// releaseScript deletes the lock only when it still holds our token, so an
// expired lease re-acquired by another holder is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements shared.Locker with SET NX PX leases in Redis.
// It is suitable for deployments where several instances mutate the same
// financing.
type RedisLocker struct {
	client *redis.Client
	cfg    config.LockConfig
	logger *zap.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// NewRedisLocker creates a locker on an existing client
func NewRedisLocker(client *redis.Client, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, cfg: withLockDefaults(cfg), logger: logger}
}

// Acquire takes the lease for key, retrying until WaitTimeout
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := l.cfg.KeyPrefix + key
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.WaitTimeout)
	defer cancel()
	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, l.cfg.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.WrapDomainError(shared.ErrPersistenceFailure.Code, "Lock store unavailable", err)
		}
		if ok {
			return l.releaser(fullKey, token), nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, shared.ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-time.After(l.cfg.RetryBackoff):
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release financing lock", zap.String("key", key), zap.Error(err))
		}
	}
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func withLockDefaults(cfg config.LockConfig) config.LockConfig {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 5 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	return cfg
}

var _ shared.Locker = (*RedisLocker)(nil)
