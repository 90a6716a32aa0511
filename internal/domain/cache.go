package domain

import (
	"context"
	"time"
)

// LockManager provides distributed locking. holder identifies the owner in
// the error returned when the lock is already taken.
type LockManager interface {
	Acquire(ctx context.Context, key, holder string, ttl time.Duration) (unlock func(), err error)
}
