package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const lockKeyPrefix = "payment_ref_lock:"

// Lock is the best-effort fast path that keeps two concurrent
// submissions of the same payment reference from both reaching the
// gateway. The store's conditional insert remains the real guarantee.
type Lock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewLock(client *redis.Client) *Lock {
	return &Lock{
		Client: client,
		TTL:    lockTTL(),
	}
}

// lockTTL reads the lock duration from the environment. The 30 second
// default outlasts any gateway verification round trip.
func lockTTL() time.Duration {
	ttlStr := os.Getenv("PAYMENT_LOCK_TTL_SECONDS")
	if ttlStr == "" {
		return 30 * time.Second
	}
	seconds, err := strconv.Atoi(ttlStr)
	if err != nil || seconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func (l *Lock) Acquire(ctx context.Context, reference string) (bool, error) {
	key := lockKeyPrefix + reference
	return l.Client.SetNX(ctx, key, reference, l.TTL).Result()
}

func (l *Lock) Release(ctx context.Context, reference string) error {
	key := lockKeyPrefix + reference
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // expired or never held
	}
	if err != nil {
		return err
	}
	if val != reference {
		return fmt.Errorf("lock %s held by another reference", key)
	}
	_, err = l.Client.Del(ctx, key).Result()
	return err
}
