package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/pricing-wallet/wallet-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionRowColumns = []string{"id", "request_id", "from_wallet_id", "to_wallet_id", "amount", "currency", "created_at"}

func transactionRow(id int64, requestID string, from driver.Value, to int64, amount string) *sqlmock.Rows {
	return sqlmock.NewRows(transactionRowColumns).AddRow(id, requestID, from, to, amount, "USD", time.Now().UTC())
}

func TestTransactionRepository_Record_Deposit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db, log)

	mock.ExpectQuery(`^INSERT INTO transactions`).
		WithArgs("dep-1", nil, int64(1), decimalArg("10.10"), "USD").
		WillReturnRows(transactionRow(7, "dep-1", nil, 1, "10.10"))

	recorded, err := repo.Record(context.Background(), models.Transaction{
		RequestID:  "dep-1",
		ToWalletID: 1,
		Amount:     decimal.RequireFromString("10.10"),
		Currency:   "USD",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), recorded.ID)
	assert.Nil(t, recorded.FromWalletID)
	assert.True(t, recorded.IsDeposit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Record_Transfer(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db, log)
	from := int64(1)

	mock.ExpectQuery(`^INSERT INTO transactions`).
		WithArgs("t-1", int64(1), int64(2), decimalArg("500"), "USD").
		WillReturnRows(transactionRow(8, "t-1", int64(1), 2, "500.00"))

	recorded, err := repo.Record(context.Background(), models.Transaction{
		RequestID:    "t-1",
		FromWalletID: &from,
		ToWalletID:   2,
		Amount:       decimal.NewFromInt(500),
		Currency:     "USD",
	})

	require.NoError(t, err)
	require.NotNil(t, recorded.FromWalletID)
	assert.Equal(t, int64(1), *recorded.FromWalletID)
	assert.Equal(t, int64(2), recorded.ToWalletID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Record_DuplicateRequestID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db, log)

	mock.ExpectQuery(`^INSERT INTO transactions`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: transactionRequestConstr})

	recorded, err := repo.Record(context.Background(), models.Transaction{
		RequestID: "dep-1", ToWalletID: 1, Amount: decimal.NewFromInt(1), Currency: "USD",
	})

	assert.ErrorIs(t, err, ErrDuplicateRequestID)
	assert.Nil(t, recorded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_FindByRequestID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewTransactionRepository(db, log)

	mock.ExpectQuery(`SELECT (.+) FROM transactions WHERE request_id = \$1`).
		WithArgs("t-1").
		WillReturnRows(transactionRow(8, "t-1", int64(1), 2, "500.00"))
	mock.ExpectQuery(`SELECT (.+) FROM transactions WHERE request_id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(transactionRowColumns))

	found, err := repo.FindByRequestID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), found.ID)
	assert.Equal(t, "500.00", found.Amount.StringFixed(2))

	_, err = repo.FindByRequestID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
