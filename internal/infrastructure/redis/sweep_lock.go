package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const sweepLockKey = "expiry_sweep_lock"

// SweepLock is a SETNX-based mutual exclusion for the expiry sweep, so only
// one instance runs it per interval.
type SweepLock struct {
	client *redis.Client
}

func NewSweepLock(client *redis.Client) *SweepLock {
	return &SweepLock{client: client}
}

func (l *SweepLock) TryAcquire(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, sweepLockKey, holder, ttl).Result()
}

func (l *SweepLock) Release(ctx context.Context, holder string) error {
	// Only the holder may release, atomically.
	luaScript := `
        if redis.call("GET", KEYS[1]) == ARGV[1] then
            return redis.call("DEL", KEYS[1])
        else
            return 0
        end
    `

	_, err := l.client.Eval(ctx, luaScript, []string{sweepLockKey}, holder).Result()
	return err
}
