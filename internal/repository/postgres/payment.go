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

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `
	id, order_id, payer_id, payment_type, amount, currency,
	payment_method, gateway, status, transaction_id, failure_reason,
	transaction_details, created_at, updated_at
`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	details, err := domain.MarshalDetails(payment.Details)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (
			id, order_id, payer_id, payment_type, amount, currency,
			payment_method, gateway, status, transaction_id, failure_reason,
			transaction_details, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.q.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.PayerID,
		payment.Type,
		payment.Amount,
		payment.Currency,
		payment.Method,
		payment.Gateway,
		payment.Status,
		nullString(payment.TransactionID),
		nullString(payment.FailureReason),
		details,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.scanPayment(r.q.QueryRowContext(ctx, query, id))
}

// Update persists status, transaction reference, failure reason and details.
// Amount and identity fields are deliberately not part of the statement.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	details, err := domain.MarshalDetails(payment.Details)
	if err != nil {
		return err
	}

	query := `
		UPDATE payments
		SET status = $1, transaction_id = $2, failure_reason = $3,
		    transaction_details = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		nullString(payment.TransactionID),
		nullString(payment.FailureReason),
		details,
		time.Now(),
		payment.ID,
	)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// ListByOrder retrieves all payments for an order, oldest first.
func (r *PaymentRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectPayments(rows)
}

// ListByPayer retrieves all payments made by a payer.
func (r *PaymentRepository) ListByPayer(ctx context.Context, payerID string, paymentType domain.PaymentType) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payer_id = $1`
	args := []any{payerID}

	if paymentType != "" {
		args = append(args, paymentType)
		query += ` AND payment_type = $2`
	}
	query += ` ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectPayments(rows)
}

// SumCompletedClientPayments returns the total of completed client payments
// against an order.
func (r *PaymentRepository) SumCompletedClientPayments(ctx context.Context, orderID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE order_id = $1 AND payment_type = $2 AND status = $3
	`

	var total decimal.Decimal
	err := r.q.QueryRowContext(ctx, query, orderID, domain.PaymentTypeClient, domain.PaymentStatusCompleted).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

func (r *PaymentRepository) collectPayments(rows *sql.Rows) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	for rows.Next() {
		payment, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		payment       domain.Payment
		transactionID sql.NullString
		failureReason sql.NullString
		details       []byte
	)

	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.PayerID,
		&payment.Type,
		&payment.Amount,
		&payment.Currency,
		&payment.Method,
		&payment.Gateway,
		&payment.Status,
		&transactionID,
		&failureReason,
		&details,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	payment.TransactionID = transactionID.String
	payment.FailureReason = failureReason.String

	payment.Details, err = domain.UnmarshalDetails(details)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}
