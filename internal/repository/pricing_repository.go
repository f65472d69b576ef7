package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrStateNotFound    = errors.New("state not found")
	ErrDiscountNotFound = errors.New("discount not found")
)

// PricingRepository reads the state_tax and discount reference tables.
type PricingRepository struct {
	db *sql.DB
}

func NewPricingRepository(db *sql.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

func (r *PricingRepository) ListStateCodes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT state_code FROM state_tax ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *PricingRepository) GetStateTax(ctx context.Context, stateCode string) (*models.StateTax, error) {
	tax := &models.StateTax{}
	err := r.db.QueryRowContext(ctx,
		`SELECT state_code, tax_rate FROM state_tax WHERE state_code = $1`, stateCode,
	).Scan(&tax.StateCode, &tax.TaxRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, err
	}
	return tax, nil
}

// GetDiscountByPrice returns the tier with the greatest min_price strictly below price.
func (r *PricingRepository) GetDiscountByPrice(ctx context.Context, price decimal.Decimal) (*models.Discount, error) {
	discount := &models.Discount{}
	err := r.db.QueryRowContext(ctx,
		`SELECT min_price, discount FROM discount
		WHERE min_price < $1
		ORDER BY min_price DESC
		LIMIT 1`, price,
	).Scan(&discount.MinPrice, &discount.Discount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDiscountNotFound
		}
		return nil, err
	}
	return discount, nil
}

// IsEmpty reports whether both reference tables have no rows.
func (r *PricingRepository) IsEmpty(ctx context.Context) (bool, error) {
	for _, table := range []string{"state_tax", "discount"} {
		var one int
		err := r.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s LIMIT 1`, table)).Scan(&one)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return false, err
		}
	}
	return true, nil
}

// Seed inserts both tables in one transaction.
func (r *PricingRepository) Seed(ctx context.Context, taxes []models.StateTax, discounts []models.Discount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range taxes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO state_tax (state_code, tax_rate) VALUES ($1, $2)`, t.StateCode, t.TaxRate); err != nil {
			return fmt.Errorf("insert state_tax %s: %w", t.StateCode, mapError(err))
		}
	}
	for _, d := range discounts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO discount (min_price, discount) VALUES ($1, $2)`, d.MinPrice, d.Discount); err != nil {
			return fmt.Errorf("insert discount %s: %w", d.MinPrice, mapError(err))
		}
	}
	return tx.Commit()
}

func (r *PricingRepository) Truncate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `TRUNCATE TABLE state_tax RESTART IDENTITY`); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `TRUNCATE TABLE discount RESTART IDENTITY`)
	return err
}
