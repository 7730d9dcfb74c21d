package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/config"
)

func TestInMemoryLocker_SerializesSameKey(t *testing.T) {
	locker := NewInMemoryLocker(config.LockConfig{WaitTimeout: 2 * time.Second})
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "financing-1")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestInMemoryLocker_IndependentKeys(t *testing.T) {
	locker := NewInMemoryLocker(config.LockConfig{WaitTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(ctx, "b")
	require.NoError(t, err)
	releaseB()
}

func TestInMemoryLocker_Timeout(t *testing.T) {
	locker := NewInMemoryLocker(config.LockConfig{WaitTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "busy")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "busy")
	assert.ErrorIs(t, err, shared.ErrLockTimeout)

	release()
	release() // second call is a no-op
	again, err := locker.Acquire(ctx, "busy")
	require.NoError(t, err)
	again()
}

func TestInMemoryLocker_ContextCancelled(t *testing.T) {
	locker := NewInMemoryLocker(config.LockConfig{WaitTimeout: time.Second})
	release, err := locker.Acquire(context.Background(), "busy")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "busy")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryLocker_DropsIdleKeys(t *testing.T) {
	locker := NewInMemoryLocker(config.LockConfig{WaitTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	for _, key := range []string{"financing-1", "financing-2", "financing-3"} {
		release, err := locker.Acquire(ctx, key)
		require.NoError(t, err)
		release()
	}
	assert.Equal(t, 0, locker.size())

	release, err := locker.Acquire(ctx, "busy")
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, "busy")
	require.ErrorIs(t, err, shared.ErrLockTimeout)
	assert.Equal(t, 1, locker.size(), "held key survives a timed-out waiter")

	release()
	assert.Equal(t, 0, locker.size())
}

func TestFactory_RedisDisabled(t *testing.T) {
	f := NewFactory(config.RedisConfig{Enabled: false}, config.LockConfig{}, WithLogger(zap.NewNop()))

	locker, client, err := f.CreateLocker()
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.IsType(t, &InMemoryLocker{}, locker)

	store := f.IdempotencyStore(client)
	defer store.Close()
	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestFactory_RedisUnavailable(t *testing.T) {
	redisCfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	locker, _, err := NewFactory(redisCfg, config.LockConfig{}).CreateLocker()
	require.NoError(t, err)
	assert.IsType(t, &InMemoryLocker{}, locker)

	_, _, err = NewFactory(redisCfg, config.LockConfig{}, WithInMemoryFallback(false)).CreateLocker()
	assert.Error(t, err)
}
