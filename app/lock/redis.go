package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const syncLockPrefix = "billing:sync"

// cmdable is the slice of the redis client the lock needs; tests provide a
// fake, production passes *redis.Client.
type cmdable interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DispatchLock guards billing dispatch per batch across all worker processes.
// Acquire is non-blocking set-if-absent with a TTL, so a crashed holder can
// force a duplicate rejection for at most the TTL.
type DispatchLock struct {
	store cmdable
	ttl   time.Duration
}

func NewDispatchLock(store cmdable, ttl time.Duration) *DispatchLock {
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &DispatchLock{store: store, ttl: ttl}
}

func (l *DispatchLock) TryAcquire(ctx context.Context, batchID uint64) (bool, error) {
	return l.store.SetNX(ctx, l.key(batchID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
}

func (l *DispatchLock) Release(ctx context.Context, batchID uint64) error {
	return l.store.Del(ctx, l.key(batchID)).Err()
}

func (l *DispatchLock) key(batchID uint64) string {
	return fmt.Sprintf("%s:%d", syncLockPrefix, batchID)
}

// NewClient bootstraps the shared redis connection and verifies connectivity.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
