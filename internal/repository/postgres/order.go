package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// NewOrderRepositoryWithTx creates an order repository using a transaction.
func NewOrderRepositoryWithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{q: tx}
}

const orderColumns = `
	id, client_id, driver_id, order_type, status,
	pickup_address, dropoff_address, distance_km, price,
	payment_status, total_paid, total_refunded,
	created_at, accepted_at, completed_at
`

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, client_id, driver_id, order_type, status,
			pickup_address, dropoff_address, distance_km, price,
			payment_status, total_paid, total_refunded, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		order.ID,
		order.ClientID,
		nullString(order.DriverID),
		order.Type,
		order.Status,
		order.PickupAddress,
		order.DropoffAddress,
		order.DistanceKM,
		order.Price,
		order.PaymentStatus,
		order.TotalPaid,
		order.TotalRefunded,
		order.CreatedAt,
	)

	return err
}

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrder(r.q.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves an order by ID with its row locked until the
// enclosing transaction ends. Concurrent ledger recomputations for the same
// order serialize on this lock.
func (r *OrderRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return r.scanOrder(r.q.QueryRowContext(ctx, query, id))
}

// Update persists changes to an order.
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	query := `
		UPDATE orders
		SET driver_id = $1, status = $2, price = $3,
		    payment_status = $4, total_paid = $5, total_refunded = $6,
		    accepted_at = $7, completed_at = $8
		WHERE id = $9
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(order.DriverID),
		order.Status,
		order.Price,
		order.PaymentStatus,
		order.TotalPaid,
		order.TotalRefunded,
		nullTime(order.AcceptedAt),
		nullTime(order.CompletedAt),
		order.ID,
	)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// UpdateStatus updates only the lifecycle status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $1 WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// UpdateLedger writes the derived payment status and running totals.
func (r *OrderRepository) UpdateLedger(ctx context.Context, id string, status domain.PaymentStatus, totalPaid, totalRefunded decimal.Decimal) error {
	query := `
		UPDATE orders
		SET payment_status = $1, total_paid = $2, total_refunded = $3
		WHERE id = $4
	`

	result, err := r.q.ExecContext(ctx, query, status, totalPaid, totalRefunded, id)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// List retrieves orders matching the filter, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}

	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		query += ` AND client_id = $` + itoa(len(args))
	}
	if filter.DriverID != "" {
		args = append(args, filter.DriverID)
		query += ` AND driver_id = $` + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// Delete removes an order. Payments and refunds are removed by the schema's
// ON DELETE CASCADE foreign keys in the same statement.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return requireRow(result)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *OrderRepository) scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order       domain.Order
		driverID    sql.NullString
		acceptedAt  sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&order.ID,
		&order.ClientID,
		&driverID,
		&order.Type,
		&order.Status,
		&order.PickupAddress,
		&order.DropoffAddress,
		&order.DistanceKM,
		&order.Price,
		&order.PaymentStatus,
		&order.TotalPaid,
		&order.TotalRefunded,
		&order.CreatedAt,
		&acceptedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	order.DriverID = driverID.String
	order.AcceptedAt = acceptedAt.Time
	order.CompletedAt = completedAt.Time

	return &order, nil
}
