package shared

import "context"

// Locker serializes work on a key across goroutines or processes.
// Acquire blocks until the lock is held, ctx is done, or the implementation's
// wait timeout passes, in which case it returns ErrLockTimeout. The returned
// release func must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
