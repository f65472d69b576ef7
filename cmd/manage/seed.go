package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pricing-wallet/wallet-service/internal/models"
	"github.com/pricing-wallet/wallet-service/internal/money"
	"github.com/shopspring/decimal"
)

type seeder interface {
	IsEmpty(ctx context.Context) (bool, error)
	Seed(ctx context.Context, taxes []models.StateTax, discounts []models.Discount) error
}

var errMissingColumn = errors.New("missing column")

func readStateTaxes(path string) ([]models.StateTax, error) {
	rows, err := readCSV(path, "state_code", "tax_rate")
	if err != nil {
		return nil, err
	}

	taxes := make([]models.StateTax, 0, len(rows))
	for i, row := range rows {
		rate, err := decimal.NewFromString(row["tax_rate"])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: tax_rate: %w", path, i+2, err)
		}
		taxes = append(taxes, models.StateTax{StateCode: row["state_code"], TaxRate: rate})
	}
	return taxes, nil
}

func readDiscounts(path string) ([]models.Discount, error) {
	rows, err := readCSV(path, "min_price", "discount")
	if err != nil {
		return nil, err
	}

	discounts := make([]models.Discount, 0, len(rows))
	for i, row := range rows {
		minPrice, err := money.Parse(row["min_price"])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: min_price: %w", path, i+2, err)
		}
		rate, err := decimal.NewFromString(row["discount"])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: discount: %w", path, i+2, err)
		}
		discounts = append(discounts, models.Discount{MinPrice: minPrice, Discount: rate})
	}
	return discounts, nil
}

// readCSV returns the records of a headed CSV file keyed by column name.
func readCSV(path string, columns ...string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, c := range columns {
		if _, ok := index[c]; !ok {
			return nil, fmt.Errorf("%s: %w %q", path, errMissingColumn, c)
		}
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		row := make(map[string]string, len(columns))
		for _, c := range columns {
			row[c] = record[index[c]]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
