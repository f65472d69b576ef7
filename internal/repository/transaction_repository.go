package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/pricing-wallet/wallet-service/internal/models"
)

const transactionColumns = `id, request_id, from_wallet_id, to_wallet_id, amount, currency, created_at`

// TransactionRepository is the append-only ledger. Rows are never updated or deleted.
type TransactionRepository struct {
	db  *sql.DB
	log *slog.Logger
}

func NewTransactionRepository(db *sql.DB, log *slog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log,
	}
}

// Record inserts t. A reused request id fails with ErrDuplicateRequestID and, inside
// a unit of work, aborts it so the balance changes before it are rolled back too.
func (r *TransactionRepository) Record(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	query := `INSERT INTO transactions (request_id, from_wallet_id, to_wallet_id, amount, currency, created_at)
				 VALUES ($1, $2, $3, $4, $5, NOW())
				 RETURNING ` + transactionColumns

	var from sql.NullInt64
	if t.FromWalletID != nil {
		from = sql.NullInt64{Int64: *t.FromWalletID, Valid: true}
	}

	recorded, err := scanTransaction(executor(ctx, r.db).QueryRowContext(
		ctx,
		query,
		t.RequestID,
		from,
		t.ToWalletID,
		t.Amount,
		t.Currency,
	))
	if err != nil {
		err = mapError(err)
		if errors.Is(err, ErrDuplicateRequestID) {
			r.log.Debug("request id already recorded", slog.String("request_id", t.RequestID))
		}
		return nil, err
	}
	return recorded, nil
}

func (r *TransactionRepository) FindByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE request_id = $1`

	t, err := scanTransaction(executor(ctx, r.db).QueryRowContext(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, mapError(err)
	}
	return t, nil
}

func scanTransaction(row *sql.Row) (*models.Transaction, error) {
	t := &models.Transaction{}
	var from sql.NullInt64
	err := row.Scan(
		&t.ID,
		&t.RequestID,
		&from,
		&t.ToWalletID,
		&t.Amount,
		&t.Currency,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if from.Valid {
		id := from.Int64
		t.FromWalletID = &id
	}
	return t, nil
}
