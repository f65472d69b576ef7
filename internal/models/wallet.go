package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        int64           `json:"id"`
	ClientID  int64           `json:"client_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type CreateWalletRequest struct {
	ClientID int64  `json:"client_id" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"required,len=3,uppercase"`
}

type AddMoneyRequest struct {
	WalletID  int64           `json:"-"`
	RequestID string          `json:"request_id" validate:"required,max=255"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" validate:"required,len=3,uppercase"`
}

type SendMoneyRequest struct {
	FromWalletID int64           `json:"-"`
	ToWalletID   int64           `json:"to_wallet_id" validate:"required,gt=0"`
	RequestID    string          `json:"request_id" validate:"required,max=255"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency" validate:"required,len=3,uppercase"`
}

// AddMoneyResult is returned by a committed deposit.
type AddMoneyResult struct {
	Wallet      *Wallet      `json:"wallet"`
	Transaction *Transaction `json:"transaction"`
}

// SendMoneyResult is returned by a committed transfer.
type SendMoneyResult struct {
	FromWallet  *Wallet      `json:"from_wallet"`
	ToWallet    *Wallet      `json:"to_wallet"`
	Transaction *Transaction `json:"transaction"`
}
