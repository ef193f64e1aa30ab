package ports

import (
	"context"
	"errors"
	"time"

	"kmerzone/internal/features/catalog/domain"
)

var (
	// ErrProductNotFound is returned by ProductCatalog when no product has the id.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductExists is returned by ProductCatalog.Create for a duplicate id.
	ErrProductExists = errors.New("product already exists")
	// ErrFlashSaleNotFound is returned by FlashSaleRegistry when no sale has the id.
	ErrFlashSaleNotFound = errors.New("flash sale not found")
)

// ProductCatalog defines the secondary port for product storage.
type ProductCatalog interface {
	Create(ctx context.Context, product domain.Product) error
	Get(ctx context.Context, id string) (domain.Product, error)
	// Update runs fn against the latest stored product and persists the result.
	Update(ctx context.Context, id string, fn func(*domain.Product) error) (domain.Product, error)
	ListByVendor(ctx context.Context, vendor string) ([]domain.Product, error)
}

// FlashSaleRegistry defines the secondary port for flash-sale storage.
type FlashSaleRegistry interface {
	Create(ctx context.Context, sale domain.FlashSale) error
	Get(ctx context.Context, id string) (domain.FlashSale, error)
	Update(ctx context.Context, id string, fn func(*domain.FlashSale) error) (domain.FlashSale, error)
	// Active lists sales whose window contains t, ordered by start then id.
	Active(ctx context.Context, t time.Time) ([]domain.FlashSale, error)
}

// OpenOrderChecker reports whether any non-terminal order references a product.
type OpenOrderChecker interface {
	HasOpenOrders(ctx context.Context, productID string) (bool, error)
}
