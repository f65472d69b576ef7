package service

//go:generate mockgen -source=Irepository.go -destination=../mock/mock_repository/mock_repository.go -package=mockrepository

import (
	"context"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/shopspring/decimal"
)

type WalletRepository interface {
	CreateWallet(ctx context.Context, clientID int64, currency string) (*models.Wallet, error)
	GetWallet(ctx context.Context, id int64) (*models.Wallet, error)
	LockWallets(ctx context.Context, ids ...int64) (map[int64]*models.Wallet, error)
	AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (*models.Wallet, error)
}

type TransactionRepository interface {
	Record(ctx context.Context, t models.Transaction) (*models.Transaction, error)
	FindByRequestID(ctx context.Context, requestID string) (*models.Transaction, error)
}

// TxManager runs fn as one unit of work; repositories called with the ctx passed
// to fn take part in it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type WalletCache interface {
	GetWallet(ctx context.Context, id int64) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, id int64) error
}

type PricingRepository interface {
	ListStateCodes(ctx context.Context) ([]string, error)
	GetStateTax(ctx context.Context, stateCode string) (*models.StateTax, error)
	GetDiscountByPrice(ctx context.Context, price decimal.Decimal) (*models.Discount, error)
}
