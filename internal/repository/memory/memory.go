// Package memory is an in-memory wallet store, ledger and pricing table set.
// Units of work are serialized by one mutex and rolled back from a snapshot.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/money"
	"github.com/pricing-wallet/wallet-service/internal/repository"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu sync.Mutex

	wallets      map[int64]models.Wallet
	clients      map[int64]int64
	transactions []models.Transaction
	requests     map[string]int
	nextWallet   int64

	taxes     []models.StateTax
	discounts []models.Discount

	now func() time.Time
}

type txKey struct{}

func New() *Store {
	return &Store{
		wallets:    make(map[int64]models.Wallet),
		clients:    make(map[int64]int64),
		requests:   make(map[string]int),
		nextWallet: 1,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

type snapshot struct {
	wallets    map[int64]models.Wallet
	clients    map[int64]int64
	txCount    int
	requests   map[string]int
	nextWallet int64
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		wallets:    maps.Clone(s.wallets),
		clients:    maps.Clone(s.clients),
		txCount:    len(s.transactions),
		requests:   maps.Clone(s.requests),
		nextWallet: s.nextWallet,
	}
}

func (s *Store) restore(snap snapshot) {
	s.wallets = snap.wallets
	s.clients = snap.clients
	s.transactions = s.transactions[:snap.txCount]
	s.requests = snap.requests
	s.nextWallet = snap.nextWallet
}

// WithinTx holds the store lock for the whole of fn and restores the snapshot
// taken before it when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// lock takes the mutex unless ctx already belongs to a unit of work on s.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) CreateWallet(ctx context.Context, clientID int64, currency string) (*models.Wallet, error) {
	defer s.lock(ctx)()

	if _, ok := s.clients[clientID]; ok {
		return nil, fmt.Errorf("%w: client %d", repository.ErrWalletExists, clientID)
	}

	now := s.now()
	w := models.Wallet{
		ID:        s.nextWallet,
		ClientID:  clientID,
		Amount:    decimal.Zero,
		Currency:  currency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextWallet++
	s.wallets[w.ID] = w
	s.clients[clientID] = w.ID
	return &w, nil
}

func (s *Store) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	defer s.lock(ctx)()

	w, ok := s.wallets[id]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	return &w, nil
}

// LockWallets returns the wallets; the unit-of-work lock already serializes them.
func (s *Store) LockWallets(ctx context.Context, ids ...int64) (map[int64]*models.Wallet, error) {
	defer s.lock(ctx)()

	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	locked := make(map[int64]*models.Wallet, len(sorted))
	for _, id := range sorted {
		w, ok := s.wallets[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", repository.ErrWalletNotFound, id)
		}
		locked[id] = &w
	}
	return locked, nil
}

func (s *Store) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (*models.Wallet, error) {
	defer s.lock(ctx)()

	w, ok := s.wallets[id]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	next := w.Amount.Add(delta)
	if next.IsNegative() {
		return nil, repository.ErrInsufficientFunds
	}
	if err := money.Validate(next); err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrAmountOutOfRange, err)
	}
	w.Amount = next
	w.Version++
	w.UpdatedAt = s.now()
	s.wallets[id] = w
	return &w, nil
}

func (s *Store) Record(ctx context.Context, t models.Transaction) (*models.Transaction, error) {
	defer s.lock(ctx)()

	if _, ok := s.requests[t.RequestID]; ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrDuplicateRequestID, t.RequestID)
	}
	if _, ok := s.wallets[t.ToWalletID]; !ok {
		return nil, repository.ErrWalletNotFound
	}

	t.ID = int64(len(s.transactions) + 1)
	t.CreatedAt = s.now()
	if t.FromWalletID != nil {
		from := *t.FromWalletID
		t.FromWalletID = &from
	}
	s.transactions = append(s.transactions, t)
	s.requests[t.RequestID] = len(s.transactions) - 1
	return &t, nil
}

func (s *Store) FindByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	defer s.lock(ctx)()

	i, ok := s.requests[requestID]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	t := s.transactions[i]
	return &t, nil
}

// Transactions returns a copy of the ledger in insertion order.
func (s *Store) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transactions)
}
