package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	ClientID string
	DriverID string
	Status   domain.OrderStatus
}

// OrderRepository defines the persistence operations for orders.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetByIDForUpdate retrieves an order by ID, locking its row for the
	// duration of the enclosing transaction. Used to serialize ledger
	// aggregation per order.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Order, error)

	// Update persists changes to an order.
	Update(ctx context.Context, order *domain.Order) error

	// UpdateStatus updates only the lifecycle status of an order.
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error

	// UpdateLedger writes the derived payment status and running totals.
	UpdateLedger(ctx context.Context, id string, status domain.PaymentStatus, totalPaid, totalRefunded decimal.Decimal) error

	// List retrieves orders matching the filter.
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)

	// Delete removes an order and, by cascade, its payments and refunds.
	Delete(ctx context.Context, id string) error
}
