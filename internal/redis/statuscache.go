package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"courier/internal/domain"
)

// StatusCacheTTL bounds staleness for cached order statuses. Status changes
// always write through, so the TTL only matters for missed invalidations.
const StatusCacheTTL = 10 * time.Minute

const orderStatusPrefix = "order:status:"

// StatusCache caches order lifecycle statuses in Redis so tracking reads
// don't hit the ledger store.
type StatusCache struct {
	client *redis.Client
}

// NewStatusCache creates a new StatusCache.
func NewStatusCache(client *redis.Client) *StatusCache {
	return &StatusCache{client: client}
}

// SetOrderStatus stores an order's current status.
func (s *StatusCache) SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return s.client.Set(ctx, orderStatusPrefix+orderID, string(status), StatusCacheTTL).Err()
}

// GetOrderStatus retrieves an order's cached status. Returns empty string on
// a cache miss.
func (s *StatusCache) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error) {
	value, err := s.client.Get(ctx, orderStatusPrefix+orderID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return domain.OrderStatus(value), nil
}

// DeleteOrderStatus removes an order's cached status.
func (s *StatusCache) DeleteOrderStatus(ctx context.Context, orderID string) error {
	return s.client.Del(ctx, orderStatusPrefix+orderID).Err()
}
