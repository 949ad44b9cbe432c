package repository

import "context"

// Repos bundles transaction-scoped repositories so multi-entity mutations
// (payment + order, or refund + payment + order) commit atomically.
type Repos struct {
	Orders   OrderRepository
	Payments PaymentRepository
	Refunds  RefundRepository
}

// TxManager runs a function inside a single database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(repos Repos) error) error
}
