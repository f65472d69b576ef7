package service

import (
	"errors"
	"fmt"

	"github.com/pricing-wallet/wallet-service/internal/models"
)

// Failure kinds returned by the wallet and pricing operations. Callers match them
// with errors.Is; anything else is an internal error.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrCurrencyMismatch  = errors.New("currency does not match wallet")
	ErrSelfTransfer      = errors.New("cannot send money to the same wallet")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConflict          = errors.New("wallet already exists")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrTransient         = errors.New("temporarily unavailable")
	ErrInvalidStateCode  = errors.New("invalid state code")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInvalidCurrency, "invalid_currency"},
	{ErrCurrencyMismatch, "currency_mismatch"},
	{ErrSelfTransfer, "self_transfer"},
	{ErrWalletNotFound, "wallet_not_found"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrConflict, "conflict"},
	{ErrDuplicateRequest, "duplicate_request"},
	{ErrTransient, "transient"},
	{ErrInvalidStateCode, "invalid_state_code"},
}

// Kind names the failure kind of err, or "internal" when it is none of them.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}

// DuplicateRequestError is returned when a request id was already applied.
// Original is the committed transaction for that id.
type DuplicateRequestError struct {
	Original *models.Transaction
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("duplicate request: request id %q already recorded as transaction %d",
		e.Original.RequestID, e.Original.ID)
}

func (e *DuplicateRequestError) Unwrap() error {
	return ErrDuplicateRequest
}
