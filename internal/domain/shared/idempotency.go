package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied idempotency keys so a retried
// request is not applied twice.
type IdempotencyStore interface {
	// Claim records key for ttl. It returns false when the key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget drops a key so a failed request can be retried with it
	Forget(ctx context.Context, key string) error
	Close() error
}
