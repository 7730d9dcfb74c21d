//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/config"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestRedisLocker(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	locker := NewRedisLocker(client, config.LockConfig{
		KeyPrefix:    "test:lock:",
		TTL:          time.Second,
		WaitTimeout:  100 * time.Millisecond,
		RetryBackoff: 10 * time.Millisecond,
	}, nil)

	release, err := locker.Acquire(ctx, "f1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "f1")
	assert.ErrorIs(t, err, shared.ErrLockTimeout)

	release()
	again, err := locker.Acquire(ctx, "f1")
	require.NoError(t, err)
	again()

	t.Run("expired lease is not released by the old holder", func(t *testing.T) {
		stale, err := locker.Acquire(ctx, "f2")
		require.NoError(t, err)
		time.Sleep(1100 * time.Millisecond)

		fresh, err := locker.Acquire(ctx, "f2")
		require.NoError(t, err)
		stale()

		exists, err := client.Exists(ctx, "test:lock:f2").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)
		fresh()
	})
}

func TestRedisIdempotencyStore(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	store := NewRedisIdempotencyStore(client, "test:idem:")

	ok, err := store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Forget(ctx, "k"))
	ok, err = store.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
