package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/realestate/backend/internal/domain/shared"
	"github.com/realestate/backend/internal/infrastructure/config"
)

// InMemoryLocker implements shared.Locker with per-key channels.
// It only serializes work within one process. A key's slot is dropped once
// no goroutine holds or waits for it.
type InMemoryLocker struct {
	mu          sync.Mutex
	locks       map[string]*lockSlot
	waitTimeout time.Duration
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewInMemoryLocker creates an in-process locker
func NewInMemoryLocker(cfg config.LockConfig) *InMemoryLocker {
	return &InMemoryLocker{
		locks:       make(map[string]*lockSlot),
		waitTimeout: withLockDefaults(cfg).WaitTimeout,
	}
}

func (l *InMemoryLocker) slot(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.locks[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		l.locks[key] = s
	}
	s.refs++
	return s
}

func (l *InMemoryLocker) unref(key string, s *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.locks, key)
	}
}

// Acquire blocks until key is free or the wait timeout passes
func (l *InMemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.slot(key)
	ctx, cancel := context.WithTimeout(ctx, l.waitTimeout)
	defer cancel()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, s)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, shared.ErrLockTimeout
		}
		return nil, ctx.Err()
	}
}

// size reports how many keys currently have a slot
func (l *InMemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var _ shared.Locker = (*InMemoryLocker)(nil)
