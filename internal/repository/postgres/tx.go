package postgres

import (
	"context"
	"database/sql"

	"courier/internal/repository"
)

// TxManager is a PostgreSQL implementation of repository.TxManager.
type TxManager struct {
	db *sql.DB
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx runs fn with transaction-scoped repositories, committing on nil
// and rolling back on error or panic.
func (m *TxManager) WithinTx(ctx context.Context, fn func(repos repository.Repos) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	repos := repository.Repos{
		Orders:   NewOrderRepositoryWithTx(tx),
		Payments: NewPaymentRepositoryWithTx(tx),
		Refunds:  NewRefundRepositoryWithTx(tx),
	}

	if err = fn(repos); err != nil {
		return err
	}

	return tx.Commit()
}
