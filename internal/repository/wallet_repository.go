package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/money"
	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExists        = errors.New("wallet already exists for client")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAmountOutOfRange    = errors.New("balance out of range")
	ErrDuplicateRequestID  = errors.New("request id already used")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrRetryable           = errors.New("retryable storage conflict")
	// ErrStatementTimeout is a statement cancelled by a timeout or a lock wait.
	// Retrying it against the same deadline cannot succeed.
	ErrStatementTimeout = errors.New("statement timed out")
)

const walletColumns = `id, client_id, amount, currency, version, created_at, updated_at`

type WalletRepository struct {
	db  *sql.DB
	tx  *TxManager
	log *slog.Logger
}

func NewWalletRepository(db *sql.DB, log *slog.Logger) *WalletRepository {
	return &WalletRepository{
		db:  db,
		tx:  NewTxManager(db),
		log: log,
	}
}

// CreateWallet inserts an empty wallet. The UNIQUE constraint on client_id decides
// conflicts, so two concurrent creations for one client cannot both succeed.
func (r *WalletRepository) CreateWallet(ctx context.Context, clientID int64, currency string) (*models.Wallet, error) {
	query := `INSERT INTO wallets (client_id, amount, currency, version, created_at, updated_at)
				 VALUES ($1, 0, $2, 1, NOW(), NOW())
				 RETURNING ` + walletColumns

	wallet, err := scanWallet(executor(ctx, r.db).QueryRowContext(ctx, query, clientID, currency))
	if err != nil {
		return nil, mapError(err)
	}
	return wallet, nil
}

func (r *WalletRepository) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`

	wallet, err := scanWallet(executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, mapError(err)
	}
	return wallet, nil
}

// LockWallets takes row locks in ascending id order so that two transfers moving
// money in opposite directions between the same pair cannot deadlock.
// It must run inside a unit of work.
func (r *WalletRepository) LockWallets(ctx context.Context, ids ...int64) (map[int64]*models.Wallet, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	locked := make(map[int64]*models.Wallet, len(sorted))
	for _, id := range sorted {
		wallet, err := scanWallet(executor(ctx, r.db).QueryRowContext(ctx, query, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %d", ErrWalletNotFound, id)
			}
			return nil, mapError(err)
		}
		locked[id] = wallet
	}
	return locked, nil
}

// AdjustBalance applies delta to the wallet under a row lock and bumps its version.
// The resulting balance may never go below zero or past DECIMAL(30, 2); the
// table's CHECK constraint backs up the first rule.
func (r *WalletRepository) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (*models.Wallet, error) {
	var updated *models.Wallet
	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		db := executor(ctx, r.db)

		var current decimal.Decimal
		err := db.QueryRowContext(ctx, `SELECT amount FROM wallets WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrWalletNotFound
			}
			return mapError(err)
		}

		next := current.Add(delta)
		if next.IsNegative() {
			r.log.Debug("balance check rejected adjustment",
				slog.Int64("wallet_id", id),
				slog.String("balance", current.String()),
				slog.String("delta", delta.String()))
			return ErrInsufficientFunds
		}
		if err := money.Validate(next); err != nil {
			return fmt.Errorf("%w: %w", ErrAmountOutOfRange, err)
		}

		query := `UPDATE wallets SET amount = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + walletColumns
		updated, err = scanWallet(db.QueryRowContext(ctx, query, next, id))
		if err != nil {
			return mapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func scanWallet(row *sql.Row) (*models.Wallet, error) {
	wallet := &models.Wallet{}
	err := row.Scan(
		&wallet.ID,
		&wallet.ClientID,
		&wallet.Amount,
		&wallet.Currency,
		&wallet.Version,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return wallet, nil
}
