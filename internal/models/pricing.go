package models

import "github.com/shopspring/decimal"

type StateTax struct {
	StateCode string          `json:"state_code"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

type Discount struct {
	MinPrice decimal.Decimal `json:"min_price"`
	Discount decimal.Decimal `json:"discount"`
}

type PriceRequest struct {
	Amount      int64           `json:"amount" validate:"gt=0"`
	PriceForOne decimal.Decimal `json:"price_for_one"`
	StateCode   string          `json:"state_code" validate:"required,min=1"`
}

// PriceInfo holds the computed figures, already rounded for display.
type PriceInfo struct {
	Price             string `json:"price"`
	DiscountValue     string `json:"discount_value"`
	PriceWithDiscount string `json:"price_with_discount"`
	Taxes             string `json:"taxes"`
	TotalPrice        string `json:"total_price"`
}

type PriceResult struct {
	PriceInfo PriceInfo `json:"price_info"`
	Discount  *Discount `json:"discount"`
	StateTax  StateTax  `json:"state_tax"`
}
