package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// Update persists status, transaction reference, failure reason and
	// details of a payment. Amount and identity fields are never updated.
	Update(ctx context.Context, payment *domain.Payment) error

	// ListByOrder retrieves all payments for an order.
	ListByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error)

	// ListByPayer retrieves all payments made by a payer, optionally
	// narrowed to a payment type.
	ListByPayer(ctx context.Context, payerID string, paymentType domain.PaymentType) ([]*domain.Payment, error)

	// SumCompletedClientPayments returns the total of completed
	// client payments against an order.
	SumCompletedClientPayments(ctx context.Context, orderID string) (decimal.Decimal, error)
}

// RefundRepository defines the persistence operations for refunds.
type RefundRepository interface {
	// Create persists a new refund.
	Create(ctx context.Context, refund *domain.Refund) error

	// GetByID retrieves a refund by ID.
	GetByID(ctx context.Context, id string) (*domain.Refund, error)

	// UpdateStatus updates the status and processed timestamp of a refund.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error

	// ListByOrder retrieves all refunds for an order.
	ListByOrder(ctx context.Context, orderID string) ([]*domain.Refund, error)

	// SumCompletedByPayment returns the total of completed refunds
	// against a payment.
	SumCompletedByPayment(ctx context.Context, paymentID string) (decimal.Decimal, error)

	// SumCompletedByOrder returns the total of completed refunds whose
	// parent payment belongs to the order.
	SumCompletedByOrder(ctx context.Context, orderID string) (decimal.Decimal, error)
}
