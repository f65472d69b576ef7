package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/money"
	"github.com/pricing-wallet/wallet-service/internal/repository"
	"github.com/shopspring/decimal"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

type Options struct {
	OperationTimeout time.Duration
	MaxRetries       int
	Backoff          time.Duration
}

func DefaultOptions() Options {
	return Options{
		OperationTimeout: 5 * time.Second,
		MaxRetries:       5,
		Backoff:          10 * time.Millisecond,
	}
}

// WalletService moves money between wallets. Every balance change and the ledger
// row describing it commit together or not at all.
type WalletService struct {
	wallets WalletRepository
	ledger  TransactionRepository
	tx      TxManager
	cache   WalletCache
	log     *slog.Logger
	opts    Options
}

func NewWalletService(wallets WalletRepository, ledger TransactionRepository, tx TxManager, log *slog.Logger, opts Options) *WalletService {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	return &WalletService{
		wallets: wallets,
		ledger:  ledger,
		tx:      tx,
		log:     log,
		opts:    opts,
	}
}

// WithCache makes GetWallet read through cache. Mutations write the committed
// wallets back to it.
func (s *WalletService) WithCache(cache WalletCache) *WalletService {
	s.cache = cache
	return s
}

func (s *WalletService) CreateWallet(ctx context.Context, req models.CreateWalletRequest) (*models.Wallet, error) {
	op := "service.CreateWallet"
	log := s.log.With(slog.String("op", op), slog.Int64("client_id", req.ClientID))

	if !currencyCode.MatchString(req.Currency) {
		log.Warn("invalid currency", slog.String("currency", req.Currency))
		return nil, fmt.Errorf("%w: %q", ErrInvalidCurrency, req.Currency)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	wallet, err := s.wallets.CreateWallet(ctx, req.ClientID, req.Currency)
	if err != nil {
		err = translate(err)
		if errors.Is(err, ErrConflict) {
			log.Warn("wallet already exists")
			return nil, err
		}
		log.Error("failed to create wallet", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	log.Info("wallet created successfully", slog.Int64("wallet_id", wallet.ID))
	return wallet, nil
}

func (s *WalletService) GetWallet(ctx context.Context, id int64) (*models.Wallet, error) {
	op := "service.GetWallet"
	log := s.log.With(slog.String("op", op), slog.Int64("wallet_id", id))

	if s.cache != nil {
		if wallet, err := s.cache.GetWallet(ctx, id); err == nil && wallet != nil {
			return wallet, nil
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	wallet, err := s.wallets.GetWallet(ctx, id)
	if err != nil {
		err = translate(err)
		if errors.Is(err, ErrWalletNotFound) {
			log.Warn("wallet not found")
			return nil, err
		}
		log.Error("failed to retrieve wallet", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve wallet: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetWallet(ctx, wallet); err != nil {
			log.Warn("failed to cache wallet", slog.String("error", err.Error()))
		}
	}
	return wallet, nil
}

// AddMoney deposits req.Amount into req.WalletID from outside the system.
func (s *WalletService) AddMoney(ctx context.Context, req models.AddMoneyRequest) (*models.AddMoneyResult, error) {
	op := "service.AddMoney"
	log := s.log.With(slog.String("op", op),
		slog.Int64("wallet_id", req.WalletID),
		slog.String("request_id", req.RequestID),
		slog.String("amount", req.Amount.String()))

	if err := validateMovement(req.Amount, req.Currency); err != nil {
		log.Warn("invalid operation", slog.String("error", err.Error()))
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.checkReplay(ctx, req.RequestID); err != nil {
		return nil, s.fail(log, err)
	}

	var result *models.AddMoneyResult
	err := s.execute(ctx, log, func(ctx context.Context) error {
		wallet, err := s.wallets.GetWallet(ctx, req.WalletID)
		if err != nil {
			return err
		}
		if wallet.Currency != req.Currency {
			return fmt.Errorf("%w: wallet %d holds %s", ErrCurrencyMismatch, wallet.ID, wallet.Currency)
		}

		updated, err := s.wallets.AdjustBalance(ctx, req.WalletID, req.Amount)
		if err != nil {
			return err
		}

		t, err := s.ledger.Record(ctx, models.Transaction{
			RequestID:  req.RequestID,
			ToWalletID: req.WalletID,
			Amount:     req.Amount,
			Currency:   req.Currency,
		})
		if err != nil {
			return err
		}

		result = &models.AddMoneyResult{Wallet: updated, Transaction: t}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, s.resolve(ctx, req.RequestID, err))
	}

	s.refresh(ctx, log, result.Wallet)
	log.Info("money added successfully", slog.Int64("transaction_id", result.Transaction.ID))
	return result, nil
}

// SendMoney moves req.Amount from req.FromWalletID to req.ToWalletID.
func (s *WalletService) SendMoney(ctx context.Context, req models.SendMoneyRequest) (*models.SendMoneyResult, error) {
	op := "service.SendMoney"
	log := s.log.With(slog.String("op", op),
		slog.Int64("from_wallet_id", req.FromWalletID),
		slog.Int64("to_wallet_id", req.ToWalletID),
		slog.String("request_id", req.RequestID),
		slog.String("amount", req.Amount.String()))

	if err := validateMovement(req.Amount, req.Currency); err != nil {
		log.Warn("invalid operation", slog.String("error", err.Error()))
		return nil, err
	}
	if req.FromWalletID == req.ToWalletID {
		log.Warn("self transfer rejected")
		return nil, ErrSelfTransfer
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.checkReplay(ctx, req.RequestID); err != nil {
		return nil, s.fail(log, err)
	}

	var result *models.SendMoneyResult
	err := s.execute(ctx, log, func(ctx context.Context) error {
		// source first so a missing pair reports the same wallet every time
		for _, id := range []int64{req.FromWalletID, req.ToWalletID} {
			wallet, err := s.wallets.GetWallet(ctx, id)
			if err != nil {
				return err
			}
			if wallet.Currency != req.Currency {
				return fmt.Errorf("%w: wallet %d holds %s", ErrCurrencyMismatch, wallet.ID, wallet.Currency)
			}
		}

		if _, err := s.wallets.LockWallets(ctx, req.FromWalletID, req.ToWalletID); err != nil {
			return err
		}

		from, err := s.wallets.AdjustBalance(ctx, req.FromWalletID, req.Amount.Neg())
		if err != nil {
			return err
		}
		to, err := s.wallets.AdjustBalance(ctx, req.ToWalletID, req.Amount)
		if err != nil {
			return err
		}

		fromID := req.FromWalletID
		t, err := s.ledger.Record(ctx, models.Transaction{
			RequestID:    req.RequestID,
			FromWalletID: &fromID,
			ToWalletID:   req.ToWalletID,
			Amount:       req.Amount,
			Currency:     req.Currency,
		})
		if err != nil {
			return err
		}

		result = &models.SendMoneyResult{FromWallet: from, ToWallet: to, Transaction: t}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, s.resolve(ctx, req.RequestID, err))
	}

	s.refresh(ctx, log, result.FromWallet, result.ToWallet)
	log.Info("money sent successfully", slog.Int64("transaction_id", result.Transaction.ID))
	return result, nil
}

// execute runs fn as one unit of work, retrying storage conflicts with
// exponential backoff until the retries or the context run out.
func (s *WalletService) execute(ctx context.Context, log *slog.Logger, fn func(ctx context.Context) error) error {
	var lastErr error
	backoff := s.opts.Backoff

	for i := 0; i < s.opts.MaxRetries; i++ {
		err := s.tx.WithinTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrRetryable) {
			return err
		}

		lastErr = err
		log.Warn("unit of work conflicted, retrying", slog.Int("attempt", i+1), slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrTransient, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return fmt.Errorf("%w: failed to process operation after multiple retries: %w", ErrTransient, lastErr)
}

// checkReplay fails fast when requestID is already in the ledger.
func (s *WalletService) checkReplay(ctx context.Context, requestID string) error {
	original, err := s.ledger.FindByRequestID(ctx, requestID)
	switch {
	case err == nil:
		return &DuplicateRequestError{Original: original}
	case errors.Is(err, repository.ErrTransactionNotFound):
		return nil
	default:
		return err
	}
}

// resolve swaps a unique violation on the request id for the transaction that won.
func (s *WalletService) resolve(ctx context.Context, requestID string, err error) error {
	if !errors.Is(err, repository.ErrDuplicateRequestID) {
		return err
	}
	original, findErr := s.ledger.FindByRequestID(ctx, requestID)
	if findErr != nil {
		return fmt.Errorf("%w: %w", ErrDuplicateRequest, err)
	}
	return &DuplicateRequestError{Original: original}
}

func (s *WalletService) fail(log *slog.Logger, err error) error {
	err = translate(err)
	switch Kind(err) {
	case "internal":
		log.Error("operation failed", slog.String("error", err.Error()))
		return fmt.Errorf("operation failed: %w", err)
	case "transient":
		if errors.Is(err, context.Canceled) {
			log.Warn("operation cancelled by caller", slog.String("error", err.Error()))
			break
		}
		log.Error("operation failed, safe to retry", slog.String("error", err.Error()))
	default:
		log.Warn("operation rejected", slog.String("kind", Kind(err)), slog.String("error", err.Error()))
	}
	return err
}

// refresh caches the committed wallets. The cache keeps whichever version is
// newest, so this never loses to a read-through fill that started earlier.
func (s *WalletService) refresh(ctx context.Context, log *slog.Logger, wallets ...*models.Wallet) {
	if s.cache == nil {
		return
	}
	for _, w := range wallets {
		err := s.cache.SetWallet(ctx, w)
		if err == nil {
			continue
		}
		log.Warn("failed to cache wallet, invalidating", slog.Int64("wallet_id", w.ID), slog.String("error", err.Error()))
		if err := s.cache.InvalidateWallet(ctx, w.ID); err != nil {
			log.Warn("failed to invalidate cached wallet", slog.Int64("wallet_id", w.ID), slog.String("error", err.Error()))
		}
	}
}

func (s *WalletService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.OperationTimeout)
}

// translate maps repository and driver errors onto the service failure kinds.
func translate(err error) error {
	if Kind(err) != "internal" {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrWalletNotFound):
		return fmt.Errorf("%w: %w", ErrWalletNotFound, err)
	case errors.Is(err, repository.ErrInsufficientFunds):
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case errors.Is(err, repository.ErrAmountOutOfRange):
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	case errors.Is(err, repository.ErrWalletExists):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, repository.ErrDuplicateRequestID):
		return fmt.Errorf("%w: %w", ErrDuplicateRequest, err)
	case errors.Is(err, repository.ErrRetryable),
		errors.Is(err, repository.ErrStatementTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func validateMovement(amount decimal.Decimal, currency string) error {
	if err := money.ValidatePositive(amount); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	if !currencyCode.MatchString(currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return nil
}
