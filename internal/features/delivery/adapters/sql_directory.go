package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"kmerzone/internal/core/database"
	"kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/delivery/ports"
)

// SQLDirectory implements ports.VendorStore on the vendors table.
type SQLDirectory struct {
	db *database.DB
}

// NewSQLDirectory creates a directory backed by db.
func NewSQLDirectory(db *database.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// Lookup implements ports.VendorDirectory.
func (r *SQLDirectory) Lookup(ctx context.Context, name string) (domain.Vendor, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT document FROM vendors WHERE name = ?`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Vendor{}, ports.ErrVendorNotFound
	}
	if err != nil {
		return domain.Vendor{}, err
	}

	var v domain.Vendor
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return domain.Vendor{}, fmt.Errorf("decode vendor: %w", err)
	}
	return v, nil
}

// Save implements ports.VendorStore as an upsert.
func (r *SQLDirectory) Save(ctx context.Context, v domain.Vendor) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode vendor: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO vendors (name, city, document) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET city = excluded.city, document = excluded.document`,
		v.Name, v.City, string(doc))
	return err
}
