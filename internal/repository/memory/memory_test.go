package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateWallet(t *testing.T) {
	s := New()
	ctx := context.Background()

	w, err := s.CreateWallet(ctx, 101, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1), w.ID)
	assert.True(t, w.Amount.IsZero())

	_, err = s.CreateWallet(ctx, 101, "EUR")
	assert.ErrorIs(t, err, repository.ErrWalletExists)

	w2, err := s.CreateWallet(ctx, 102, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(2), w2.ID)
}

func TestStore_GetWallet_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	w, err := s.CreateWallet(ctx, 101, "USD")
	require.NoError(t, err)

	w.Amount = decimal.NewFromInt(1000)

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.IsZero())

	_, err = s.GetWallet(ctx, 42)
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)
}

func TestStore_AdjustBalance(t *testing.T) {
	s := New()
	ctx := context.Background()
	w, err := s.CreateWallet(ctx, 101, "USD")
	require.NoError(t, err)

	assert.Equal(t, int64(1), w.Version)

	w, err = s.AdjustBalance(ctx, w.ID, decimal.RequireFromString("10.10"))
	require.NoError(t, err)
	assert.Equal(t, "10.10", w.Amount.StringFixed(2))
	assert.Equal(t, int64(2), w.Version)

	_, err = s.AdjustBalance(ctx, w.ID, decimal.RequireFromString("-10.11"))
	assert.ErrorIs(t, err, repository.ErrInsufficientFunds)

	w, err = s.AdjustBalance(ctx, w.ID, decimal.RequireFromString("-10.10"))
	require.NoError(t, err)
	assert.True(t, w.Amount.IsZero())

	_, err = s.AdjustBalance(ctx, 42, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)
}

func TestStore_AdjustBalance_OutOfRange(t *testing.T) {
	s := New()
	ctx := context.Background()
	w, err := s.CreateWallet(ctx, 101, "USD")
	require.NoError(t, err)

	_, err = s.AdjustBalance(ctx, w.ID, decimal.RequireFromString("9999999999999999999999999999.99"))
	require.NoError(t, err)

	_, err = s.AdjustBalance(ctx, w.ID, decimal.RequireFromString("0.01"))
	assert.ErrorIs(t, err, repository.ErrAmountOutOfRange)

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "9999999999999999999999999999.99", got.Amount.StringFixed(2))
	assert.Equal(t, int64(2), got.Version)
}

func TestStore_LockWallets(t *testing.T) {
	s := New()
	ctx := context.Background()
	a, _ := s.CreateWallet(ctx, 1, "USD")
	b, _ := s.CreateWallet(ctx, 2, "USD")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.LockWallets(ctx, b.ID, a.ID)
		require.NoError(t, err)
		assert.Len(t, locked, 2)

		_, err = s.LockWallets(ctx, a.ID, 99)
		assert.ErrorIs(t, err, repository.ErrWalletNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_Record(t *testing.T) {
	s := New()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, 1, "USD")

	tr, err := s.Record(ctx, models.Transaction{RequestID: "r1", ToWalletID: w.ID, Amount: decimal.NewFromInt(5), Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), tr.ID)
	assert.False(t, tr.CreatedAt.IsZero())

	_, err = s.Record(ctx, models.Transaction{RequestID: "r1", ToWalletID: w.ID, Amount: decimal.NewFromInt(5), Currency: "USD"})
	assert.ErrorIs(t, err, repository.ErrDuplicateRequestID)

	_, err = s.Record(ctx, models.Transaction{RequestID: "r2", ToWalletID: 99, Amount: decimal.NewFromInt(5), Currency: "USD"})
	assert.ErrorIs(t, err, repository.ErrWalletNotFound)

	found, err := s.FindByRequestID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, tr.ID, found.ID)

	_, err = s.FindByRequestID(ctx, "r2")
	assert.ErrorIs(t, err, repository.ErrTransactionNotFound)
}

func TestStore_WithinTx_RollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, 1, "USD")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.AdjustBalance(ctx, w.ID, decimal.NewFromInt(100)); err != nil {
			return err
		}
		if _, err := s.Record(ctx, models.Transaction{RequestID: "r1", ToWalletID: w.ID, Amount: decimal.NewFromInt(100), Currency: "USD"}); err != nil {
			return err
		}
		if _, err := s.CreateWallet(ctx, 2, "USD"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.IsZero())
	assert.Empty(t, s.Transactions())
	_, err = s.FindByRequestID(ctx, "r1")
	assert.ErrorIs(t, err, repository.ErrTransactionNotFound)

	// the rolled back client and id are free again
	w2, err := s.CreateWallet(ctx, 2, "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(2), w2.ID)
}

func TestStore_WithinTx_Commits(t *testing.T) {
	s := New()
	ctx := context.Background()
	w, _ := s.CreateWallet(ctx, 1, "USD")

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		// nested units of work join the outer one
		return s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.AdjustBalance(ctx, w.ID, decimal.NewFromInt(3))
			return err
		})
	})
	require.NoError(t, err)

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "3.00", got.Amount.StringFixed(2))
}

func TestStore_WithinTx_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithinTx(ctx, func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_Pricing(t *testing.T) {
	s := New()
	ctx := context.Background()

	empty, err := s.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)

	err = s.Seed(ctx,
		[]models.StateTax{
			{StateCode: "UT", TaxRate: decimal.RequireFromString("0.0685")},
			{StateCode: "TX", TaxRate: decimal.RequireFromString("0.0625")},
		},
		[]models.Discount{
			{MinPrice: decimal.NewFromInt(1000), Discount: decimal.RequireFromString("0.03")},
			{MinPrice: decimal.NewFromInt(10000), Discount: decimal.RequireFromString("0.1")},
		})
	require.NoError(t, err)

	codes, err := s.ListStateCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"UT", "TX"}, codes)

	tax, err := s.GetStateTax(ctx, "TX")
	require.NoError(t, err)
	assert.Equal(t, "0.0625", tax.TaxRate.String())
	_, err = s.GetStateTax(ctx, "ZZ")
	assert.ErrorIs(t, err, repository.ErrStateNotFound)

	d, err := s.GetDiscountByPrice(ctx, decimal.NewFromInt(10500))
	require.NoError(t, err)
	assert.Equal(t, "0.1", d.Discount.String())

	// strictly below
	d, err = s.GetDiscountByPrice(ctx, decimal.NewFromInt(10000))
	require.NoError(t, err)
	assert.Equal(t, "0.03", d.Discount.String())

	_, err = s.GetDiscountByPrice(ctx, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, repository.ErrDiscountNotFound)

	err = s.Seed(ctx, []models.StateTax{{StateCode: "UT", TaxRate: decimal.Zero}}, nil)
	assert.Error(t, err)

	require.NoError(t, s.Truncate(ctx))
	empty, err = s.IsEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)
}
