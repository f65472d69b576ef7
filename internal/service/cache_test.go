package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// versionedCache keeps the highest wallet version it has seen, like the Redis cache.
type versionedCache struct {
	mu      sync.Mutex
	wallets map[int64]models.Wallet
}

func newVersionedCache() *versionedCache {
	return &versionedCache{wallets: make(map[int64]models.Wallet)}
}

func (c *versionedCache) GetWallet(_ context.Context, id int64) (*models.Wallet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.wallets[id]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return &w, nil
}

func (c *versionedCache) SetWallet(_ context.Context, wallet *models.Wallet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.wallets[wallet.ID]; ok && cur.Version >= wallet.Version {
		return nil
	}
	c.wallets[wallet.ID] = *wallet
	return nil
}

func (c *versionedCache) InvalidateWallet(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.wallets, id)
	return nil
}

// slowReader runs afterRead once, between the store read and the caller's use of it.
type slowReader struct {
	*memory.Store
	afterRead func()
}

func (r *slowReader) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	w, err := r.Store.GetWallet(ctx, id)
	if hook := r.afterRead; hook != nil {
		r.afterRead = nil
		hook()
	}
	return w, err
}

func TestWalletService_CacheFillDoesNotOverwriteCommittedWrite(t *testing.T) {
	store := memory.New()
	reader := &slowReader{Store: store}
	cache := newVersionedCache()
	s := NewWalletService(reader, store, store, slog.Default(), DefaultOptions()).WithCache(cache)
	ctx := context.Background()

	w, err := s.CreateWallet(ctx, models.CreateWalletRequest{ClientID: 101, Currency: "USD"})
	require.NoError(t, err)

	reader.afterRead = func() {
		_, err := s.AddMoney(ctx, models.AddMoneyRequest{
			WalletID: w.ID, RequestID: "r1", Amount: decimal.RequireFromString("10"), Currency: "USD",
		})
		require.NoError(t, err)
	}

	// this read saw the balance before the deposit committed
	stale, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.True(t, stale.Amount.IsZero())

	got, err := s.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Amount.StringFixed(2))
	assert.Equal(t, int64(2), got.Version)
}

func TestWalletService_TransferWritesBothWalletsToCache(t *testing.T) {
	s, _ := newMemoryService(t)
	cache := newVersionedCache()
	s.WithCache(cache)
	ctx := context.Background()
	a := mustWallet(t, s, 1, "100")
	b := mustWallet(t, s, 2, "")

	// warm the cache with the pre-transfer balances
	_, err := s.GetWallet(ctx, a.ID)
	require.NoError(t, err)
	_, err = s.GetWallet(ctx, b.ID)
	require.NoError(t, err)

	_, err = s.SendMoney(ctx, models.SendMoneyRequest{
		FromWalletID: a.ID, ToWalletID: b.ID, RequestID: "t1", Amount: decimal.NewFromInt(40), Currency: "USD",
	})
	require.NoError(t, err)

	cachedA, err := cache.GetWallet(ctx, a.ID)
	require.NoError(t, err)
	cachedB, err := cache.GetWallet(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "60.00", cachedA.Amount.StringFixed(2))
	assert.Equal(t, "40.00", cachedB.Amount.StringFixed(2))
}
