package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/ammseed/internal/domain"
)

// unlockLua deletes the lock only if it still carries the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// LockManager implements domain.LockManager with SET NX and a TTL. The lock
// value is "<holder>/<token>" so a refused caller can report who holds it.
type LockManager struct {
	rdb      *redis.Client
	prefix   string
	unlockSc *redis.Script
}

// NewLockManager creates a LockManager whose keys live under "ammseed:lock:".
func NewLockManager(c *Client) *LockManager {
	return &LockManager{
		rdb:      c.rdb,
		prefix:   "ammseed:lock:",
		unlockSc: redis.NewScript(unlockLua),
	}
}

// SignerKey is the lock key guarding one signing address.
func SignerKey(address string) string {
	return "signer:" + address
}

func lockValue(holder, token string) string {
	if holder == "" {
		holder = "anonymous"
	}
	return holder + "/" + token
}

// Acquire takes the lock for key on behalf of holder. It fails fast with
// domain.ErrLockHeld when another holder owns it. The returned unlock
// function is idempotent and works after ctx is cancelled.
func (lm *LockManager) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (func(), error) {
	full := lm.prefix + key
	value := lockValue(holder, uuid.NewString())

	ok, err := lm.rdb.SetNX(ctx, full, value, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		current, getErr := lm.rdb.Get(ctx, full).Result()
		if getErr != nil && !errors.Is(getErr, redis.Nil) {
			current = "unknown"
		}
		return nil, fmt.Errorf("redis: lock %s held by %s: %w", key, current, domain.ErrLockHeld)
	}

	released := false
	unlock := func() {
		if released {
			return
		}
		released = true
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = lm.unlockSc.Run(unlockCtx, lm.rdb, []string{full}, value).Err()
	}
	return unlock, nil
}

var _ domain.LockManager = (*LockManager)(nil)
