package repository

import (
	"context"
	"database/sql"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL,
		amount DECIMAL(30, 2) NOT NULL DEFAULT 0,
		currency VARCHAR(3) NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CONSTRAINT ` + walletClientConstraint + ` UNIQUE (client_id),
		CONSTRAINT ` + walletAmountConstraint + ` CHECK (amount >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		request_id TEXT NOT NULL,
		from_wallet_id BIGINT REFERENCES wallets (id),
		to_wallet_id BIGINT NOT NULL REFERENCES wallets (id),
		amount DECIMAL(30, 2) NOT NULL,
		currency VARCHAR(3) NOT NULL,
		created_at TIMESTAMP NOT NULL,
		CONSTRAINT ` + transactionRequestConstr + ` UNIQUE (request_id),
		CONSTRAINT transactions_amount_positive CHECK (amount > 0)
	)`,
	`CREATE TABLE IF NOT EXISTS state_tax (
		id SERIAL PRIMARY KEY,
		state_code TEXT UNIQUE NOT NULL,
		tax_rate DECIMAL(12, 7) NOT NULL CONSTRAINT positive_tax_rate CHECK (tax_rate >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS discount (
		id SERIAL PRIMARY KEY,
		min_price DECIMAL(12, 2) UNIQUE NOT NULL CONSTRAINT positive_min_price CHECK (min_price >= 0),
		discount DECIMAL(12, 7) NOT NULL CONSTRAINT positive_discount CHECK (discount >= 0)
	)`,
}

// CreateTablesIfNotExist applies the schema. It is safe to run repeatedly.
func CreateTablesIfNotExist(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
