package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/money"
	"github.com/pricing-wallet/wallet-service/internal/repository"
	"github.com/shopspring/decimal"
)

// PricingService computes order totals from the per-state tax rate and the
// price-tiered discount table.
type PricingService struct {
	repo            PricingRepository
	defaultDiscount decimal.Decimal
	log             *slog.Logger
}

func NewPricingService(repo PricingRepository, defaultDiscount decimal.Decimal, log *slog.Logger) *PricingService {
	return &PricingService{
		repo:            repo,
		defaultDiscount: defaultDiscount,
		log:             log,
	}
}

func (s *PricingService) ListStateCodes(ctx context.Context) ([]string, error) {
	codes, err := s.repo.ListStateCodes(ctx)
	if err != nil {
		s.log.Error("failed to list states", slog.String("op", "service.ListStateCodes"), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	return codes, nil
}

func (s *PricingService) TotalPrice(ctx context.Context, req models.PriceRequest) (*models.PriceResult, error) {
	op := "service.TotalPrice"
	log := s.log.With(slog.String("op", op), slog.String("state_code", req.StateCode))

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}
	if err := money.ValidatePositive(req.PriceForOne); err != nil {
		return nil, fmt.Errorf("%w: price_for_one: %w", ErrInvalidAmount, err)
	}

	tax, err := s.repo.GetStateTax(ctx, req.StateCode)
	if err != nil {
		if errors.Is(err, repository.ErrStateNotFound) {
			log.Warn("unknown state code")
			return nil, ErrInvalidStateCode
		}
		log.Error("failed to load state tax", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load state tax: %w", err)
	}

	price := money.Mul(req.PriceForOne, decimal.NewFromInt(req.Amount))

	rate := s.defaultDiscount
	discount, err := s.repo.GetDiscountByPrice(ctx, price)
	switch {
	case err == nil:
		rate = discount.Discount
	case errors.Is(err, repository.ErrDiscountNotFound):
		discount = nil
	default:
		log.Error("failed to load discount", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load discount: %w", err)
	}

	discountValue := money.Mul(price, rate)
	withDiscount := money.Sub(price, discountValue)
	taxes := money.Mul(withDiscount, tax.TaxRate)
	total := money.Add(withDiscount, taxes)

	return &models.PriceResult{
		PriceInfo: models.PriceInfo{
			Price:             money.Display(price),
			DiscountValue:     money.Display(discountValue),
			PriceWithDiscount: money.Display(withDiscount),
			Taxes:             money.Display(taxes),
			TotalPrice:        money.Display(total),
		},
		Discount: discount,
		StateTax: *tax,
	}, nil
}
