package redis

import (
	"context"
	"time"

	"courier/internal/domain"
)

// StatusCacheInterface defines the interface for order status caching.
type StatusCacheInterface interface {
	SetOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, error)
	DeleteOrderStatus(ctx context.Context, orderID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRefundLock(ctx context.Context, paymentID string, ttl time.Duration) (bool, error)
	ReleaseRefundLock(ctx context.Context, paymentID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ StatusCacheInterface = (*StatusCache)(nil)
	_ LockStoreInterface   = (*LockStore)(nil)
)
