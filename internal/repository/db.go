package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const (
	walletClientConstraint   = "wallets_client_id_key"
	walletAmountConstraint   = "wallets_amount_non_negative"
	transactionRequestConstr = "transactions_request_id_key"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// TxManager runs units of work. Repositories called with the context handed to fn
// read and write through the same *sql.Tx.
type TxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise. A context that
// already carries a transaction joins it instead of opening a new one.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

func executor(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// mapError turns Postgres error codes into repository sentinels.
func mapError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case "23505": // unique_violation
		switch pqErr.Constraint {
		case walletClientConstraint:
			return fmt.Errorf("%w: %w", ErrWalletExists, err)
		case transactionRequestConstr:
			return fmt.Errorf("%w: %w", ErrDuplicateRequestID, err)
		}
	case "23514": // check_violation
		if pqErr.Constraint == walletAmountConstraint {
			return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
		}
	case "22003": // numeric_value_out_of_range
		return fmt.Errorf("%w: %w", ErrAmountOutOfRange, err)
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return fmt.Errorf("%w: %w", ErrRetryable, err)
	case "57014", "55P03": // query_canceled, lock_not_available
		return fmt.Errorf("%w: %w", ErrStatementTimeout, err)
	}
	return err
}
