package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/repository"
)

// RefundRepository is a PostgreSQL implementation of repository.RefundRepository.
type RefundRepository struct {
	q Querier
}

// NewRefundRepository creates a new PostgreSQL refund repository.
func NewRefundRepository(db *sql.DB) *RefundRepository {
	return &RefundRepository{q: db}
}

// NewRefundRepositoryWithTx creates a refund repository using a transaction.
func NewRefundRepositoryWithTx(tx *sql.Tx) *RefundRepository {
	return &RefundRepository{q: tx}
}

const refundColumns = `
	id, payment_id, order_id, amount, reason, status,
	processed_at, created_at, updated_at
`

// Create persists a new refund.
func (r *RefundRepository) Create(ctx context.Context, refund *domain.Refund) error {
	query := `
		INSERT INTO refunds (
			id, payment_id, order_id, amount, reason, status,
			processed_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		refund.ID,
		refund.PaymentID,
		refund.OrderID,
		refund.Amount,
		refund.Reason,
		refund.Status,
		nullTime(refund.ProcessedAt),
		refund.CreatedAt,
		refund.UpdatedAt,
	)

	return err
}

// GetByID retrieves a refund by ID.
func (r *RefundRepository) GetByID(ctx context.Context, id string) (*domain.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`
	return r.scanRefund(r.q.QueryRowContext(ctx, query, id))
}

// UpdateStatus updates the status and processed timestamp of a refund.
func (r *RefundRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	query := `
		UPDATE refunds
		SET status = $1, processed_at = $2, updated_at = $3
		WHERE id = $4
	`

	now := time.Now()
	result, err := r.q.ExecContext(ctx, query, status, now, now, id)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// ListByOrder retrieves all refunds for an order, oldest first.
func (r *RefundRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Refund, error) {
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []*domain.Refund
	for rows.Next() {
		refund, err := r.scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}

	return refunds, rows.Err()
}

// SumCompletedByPayment returns the total of completed refunds against a payment.
func (r *RefundRepository) SumCompletedByPayment(ctx context.Context, paymentID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM refunds
		WHERE payment_id = $1 AND status = $2
	`

	var total decimal.Decimal
	err := r.q.QueryRowContext(ctx, query, paymentID, domain.PaymentStatusCompleted).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

// SumCompletedByOrder returns the total of completed refunds whose parent
// payment belongs to the order.
func (r *RefundRepository) SumCompletedByOrder(ctx context.Context, orderID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(r.amount), 0)
		FROM refunds r
		JOIN payments p ON p.id = r.payment_id
		WHERE p.order_id = $1 AND r.status = $2
	`

	var total decimal.Decimal
	err := r.q.QueryRowContext(ctx, query, orderID, domain.PaymentStatusCompleted).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *RefundRepository) scanRefund(row rowScanner) (*domain.Refund, error) {
	var (
		refund      domain.Refund
		processedAt sql.NullTime
	)

	err := row.Scan(
		&refund.ID,
		&refund.PaymentID,
		&refund.OrderID,
		&refund.Amount,
		&refund.Reason,
		&refund.Status,
		&processedAt,
		&refund.CreatedAt,
		&refund.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	refund.ProcessedAt = processedAt.Time

	return &refund, nil
}
