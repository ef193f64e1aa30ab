package database

import (
	"context"
	"fmt"
)

// schema is portable between sqlite and Postgres: aggregates are stored as JSON
// documents next to the columns needed for lookups and optimistic locking.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS vendors (
		name     TEXT PRIMARY KEY,
		city     TEXT NOT NULL,
		document TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id       TEXT PRIMARY KEY,
		vendor   TEXT NOT NULL,
		status   TEXT NOT NULL,
		version  BIGINT NOT NULL,
		document TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS flash_sales (
		id        TEXT PRIMARY KEY,
		starts_at TEXT NOT NULL,
		ends_at   TEXT NOT NULL,
		version   BIGINT NOT NULL,
		document  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		code         TEXT PRIMARY KEY,
		seller       TEXT NOT NULL,
		kind         TEXT NOT NULL,
		value        TEXT NOT NULL,
		min_purchase TEXT,
		expires_at   TEXT,
		max_uses     BIGINT,
		uses         BIGINT NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id              TEXT PRIMARY KEY,
		customer_id     TEXT NOT NULL,
		tracking_number TEXT NOT NULL UNIQUE,
		status          TEXT NOT NULL,
		created_at      TEXT NOT NULL,
		version         BIGINT NOT NULL,
		document        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_customer_idx ON orders (customer_id)`,
	`CREATE TABLE IF NOT EXISTS order_products (
		order_id   TEXT NOT NULL,
		product_id TEXT NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS order_products_product_idx ON order_products (product_id)`,
}

// Migrate creates the tables used by the SQL adapters. It is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := d.pool.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
