package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireRefundLock attempts to acquire the refund lock for a payment, so
// that two concurrent refund requests cannot both pass the refundable-amount
// check before either commits. Returns true if the lock was acquired.
func (s *LockStore) AcquireRefundLock(ctx context.Context, paymentID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:refund:%s", paymentID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseRefundLock releases the refund lock for a payment.
func (s *LockStore) ReleaseRefundLock(ctx context.Context, paymentID string) error {
	key := fmt.Sprintf("lock:refund:%s", paymentID)

	return s.client.Del(ctx, key).Err()
}
