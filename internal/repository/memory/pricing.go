package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/repository"
	"github.com/shopspring/decimal"
)

func (s *Store) ListStateCodes(ctx context.Context) ([]string, error) {
	defer s.lock(ctx)()

	codes := make([]string, 0, len(s.taxes))
	for _, t := range s.taxes {
		codes = append(codes, t.StateCode)
	}
	return codes, nil
}

func (s *Store) GetStateTax(ctx context.Context, stateCode string) (*models.StateTax, error) {
	defer s.lock(ctx)()

	for _, t := range s.taxes {
		if t.StateCode == stateCode {
			return &t, nil
		}
	}
	return nil, repository.ErrStateNotFound
}

func (s *Store) GetDiscountByPrice(ctx context.Context, price decimal.Decimal) (*models.Discount, error) {
	defer s.lock(ctx)()

	var best *models.Discount
	for i := range s.discounts {
		d := s.discounts[i]
		if d.MinPrice.LessThan(price) && (best == nil || d.MinPrice.GreaterThan(best.MinPrice)) {
			best = &d
		}
	}
	if best == nil {
		return nil, repository.ErrDiscountNotFound
	}
	return best, nil
}

func (s *Store) IsEmpty(ctx context.Context) (bool, error) {
	defer s.lock(ctx)()
	return len(s.taxes) == 0 && len(s.discounts) == 0, nil
}

// Seed appends the rows, enforcing the same uniqueness as the SQL tables.
func (s *Store) Seed(ctx context.Context, taxes []models.StateTax, discounts []models.Discount) error {
	defer s.lock(ctx)()

	for _, t := range taxes {
		if slices.ContainsFunc(s.taxes, func(e models.StateTax) bool { return e.StateCode == t.StateCode }) {
			return fmt.Errorf("state %s already seeded", t.StateCode)
		}
		s.taxes = append(s.taxes, t)
	}
	for _, d := range discounts {
		if slices.ContainsFunc(s.discounts, func(e models.Discount) bool { return e.MinPrice.Equal(d.MinPrice) }) {
			return fmt.Errorf("discount tier %s already seeded", d.MinPrice)
		}
		s.discounts = append(s.discounts, d)
	}
	return nil
}

func (s *Store) Truncate(ctx context.Context) error {
	defer s.lock(ctx)()
	s.taxes = nil
	s.discounts = nil
	return nil
}
