package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger row. FromWalletID is nil for deposits.
type Transaction struct {
	ID           int64           `json:"id"`
	RequestID    string          `json:"request_id"`
	FromWalletID *int64          `json:"from_wallet_id"`
	ToWalletID   int64           `json:"to_wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IsDeposit reports whether the transaction moved money in from outside the system.
func (t *Transaction) IsDeposit() bool {
	return t.FromWalletID == nil
}
