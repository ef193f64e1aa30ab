package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kmerzone/internal/core/database"
	"kmerzone/internal/features/catalog/domain"
	"kmerzone/internal/features/catalog/ports"
)

// SQLProductCatalog implements ports.ProductCatalog on the products table.
type SQLProductCatalog struct {
	db *database.DB
}

// NewSQLProductCatalog creates a catalog backed by db.
func NewSQLProductCatalog(db *database.DB) *SQLProductCatalog {
	return &SQLProductCatalog{db: db}
}

// Create implements ports.ProductCatalog.
func (r *SQLProductCatalog) Create(ctx context.Context, product domain.Product) error {
	doc, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO products (id, vendor, status, version, document) VALUES (?, ?, ?, 1, ?)`,
		product.ID, product.VendorName, string(product.Status), string(doc))
	if database.IsUniqueViolation(err) {
		return ports.ErrProductExists
	}
	return err
}

// Get implements ports.ProductCatalog.
func (r *SQLProductCatalog) Get(ctx context.Context, id string) (domain.Product, error) {
	p, _, err := r.load(ctx, id)
	return p, err
}

func (r *SQLProductCatalog) load(ctx context.Context, id string) (domain.Product, int64, error) {
	p, version, err := database.LoadDocument[domain.Product](ctx, r.db,
		`SELECT version, document FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, 0, ports.ErrProductNotFound
	}
	return p, version, err
}

// Update implements ports.ProductCatalog with an optimistic version check.
func (r *SQLProductCatalog) Update(ctx context.Context, id string, fn func(*domain.Product) error) (domain.Product, error) {
	var out domain.Product
	err := database.Retry(ctx, database.DefaultAttempts, func() error {
		p, version, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode product: %w", err)
		}
		if err := database.ExecVersioned(ctx, r.db,
			`UPDATE products SET vendor = ?, status = ?, document = ?, version = version + 1 WHERE id = ? AND version = ?`,
			p.VendorName, string(p.Status), string(doc), id, version); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// ListByVendor implements ports.ProductCatalog.
func (r *SQLProductCatalog) ListByVendor(ctx context.Context, vendor string) ([]domain.Product, error) {
	return database.ScanDocuments[domain.Product](ctx, r.db,
		`SELECT document FROM products WHERE vendor = ? ORDER BY id`, vendor)
}

// SQLFlashSaleRegistry implements ports.FlashSaleRegistry on the flash_sales table.
type SQLFlashSaleRegistry struct {
	db *database.DB
}

// NewSQLFlashSaleRegistry creates a registry backed by db.
func NewSQLFlashSaleRegistry(db *database.DB) *SQLFlashSaleRegistry {
	return &SQLFlashSaleRegistry{db: db}
}

// Create implements ports.FlashSaleRegistry.
func (r *SQLFlashSaleRegistry) Create(ctx context.Context, sale domain.FlashSale) error {
	doc, err := json.Marshal(sale)
	if err != nil {
		return fmt.Errorf("encode flash sale: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO flash_sales (id, starts_at, ends_at, version, document) VALUES (?, ?, ?, 1, ?)`,
		sale.ID, database.FormatTime(sale.StartsAt), database.FormatTime(sale.EndsAt), string(doc))
	return err
}

// Get implements ports.FlashSaleRegistry.
func (r *SQLFlashSaleRegistry) Get(ctx context.Context, id string) (domain.FlashSale, error) {
	s, _, err := r.load(ctx, id)
	return s, err
}

func (r *SQLFlashSaleRegistry) load(ctx context.Context, id string) (domain.FlashSale, int64, error) {
	s, version, err := database.LoadDocument[domain.FlashSale](ctx, r.db,
		`SELECT version, document FROM flash_sales WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FlashSale{}, 0, ports.ErrFlashSaleNotFound
	}
	return s, version, err
}

// Update implements ports.FlashSaleRegistry with an optimistic version check.
func (r *SQLFlashSaleRegistry) Update(ctx context.Context, id string, fn func(*domain.FlashSale) error) (domain.FlashSale, error) {
	var out domain.FlashSale
	err := database.Retry(ctx, database.DefaultAttempts, func() error {
		s, version, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(&s); err != nil {
			return err
		}
		doc, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode flash sale: %w", err)
		}
		if err := database.ExecVersioned(ctx, r.db,
			`UPDATE flash_sales SET starts_at = ?, ends_at = ?, document = ?, version = version + 1 WHERE id = ? AND version = ?`,
			database.FormatTime(s.StartsAt), database.FormatTime(s.EndsAt), string(doc), id, version); err != nil {
			return err
		}
		out = s
		return nil
	})
	return out, err
}

// Active implements ports.FlashSaleRegistry.
func (r *SQLFlashSaleRegistry) Active(ctx context.Context, t time.Time) ([]domain.FlashSale, error) {
	at := database.FormatTime(t)
	sales, err := database.ScanDocuments[domain.FlashSale](ctx, r.db,
		`SELECT document FROM flash_sales WHERE starts_at <= ? AND ends_at >= ?`, at, at)
	if err != nil {
		return nil, err
	}
	sortSales(sales)
	return sales, nil
}
