package adapters

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"kmerzone/internal/core/memstore"
	"kmerzone/internal/features/catalog/domain"
	"kmerzone/internal/features/catalog/ports"
)

// MemoryProductCatalog implements ports.ProductCatalog in process memory.
type MemoryProductCatalog struct {
	store *memstore.Store[domain.Product]
}

// NewMemoryProductCatalog creates an empty catalog.
func NewMemoryProductCatalog() *MemoryProductCatalog {
	return &MemoryProductCatalog{store: memstore.New(domain.Product.Clone)}
}

func productErr(err error) error {
	switch {
	case errors.Is(err, memstore.ErrNotFound):
		return ports.ErrProductNotFound
	case errors.Is(err, memstore.ErrExists):
		return ports.ErrProductExists
	}
	return err
}

// Create implements ports.ProductCatalog.
func (m *MemoryProductCatalog) Create(_ context.Context, product domain.Product) error {
	return productErr(m.store.Insert(product.ID, product))
}

// Get implements ports.ProductCatalog.
func (m *MemoryProductCatalog) Get(_ context.Context, id string) (domain.Product, error) {
	p, err := m.store.Get(id)
	return p, productErr(err)
}

// Update implements ports.ProductCatalog.
func (m *MemoryProductCatalog) Update(_ context.Context, id string, fn func(*domain.Product) error) (domain.Product, error) {
	p, err := m.store.Update(id, fn)
	return p, productErr(err)
}

// ListByVendor implements ports.ProductCatalog.
func (m *MemoryProductCatalog) ListByVendor(_ context.Context, vendor string) ([]domain.Product, error) {
	out := m.store.Snapshot(func(p domain.Product) bool { return p.VendorName == vendor })
	slices.SortFunc(out, func(a, b domain.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// MemoryFlashSaleRegistry implements ports.FlashSaleRegistry in process memory.
type MemoryFlashSaleRegistry struct {
	store *memstore.Store[domain.FlashSale]
}

// NewMemoryFlashSaleRegistry creates an empty registry.
func NewMemoryFlashSaleRegistry() *MemoryFlashSaleRegistry {
	return &MemoryFlashSaleRegistry{store: memstore.New(domain.FlashSale.Clone)}
}

func saleErr(err error) error {
	if errors.Is(err, memstore.ErrNotFound) {
		return ports.ErrFlashSaleNotFound
	}
	return err
}

// Create implements ports.FlashSaleRegistry.
func (m *MemoryFlashSaleRegistry) Create(_ context.Context, sale domain.FlashSale) error {
	return saleErr(m.store.Insert(sale.ID, sale))
}

// Get implements ports.FlashSaleRegistry.
func (m *MemoryFlashSaleRegistry) Get(_ context.Context, id string) (domain.FlashSale, error) {
	s, err := m.store.Get(id)
	return s, saleErr(err)
}

// Update implements ports.FlashSaleRegistry.
func (m *MemoryFlashSaleRegistry) Update(_ context.Context, id string, fn func(*domain.FlashSale) error) (domain.FlashSale, error) {
	s, err := m.store.Update(id, fn)
	return s, saleErr(err)
}

// Active implements ports.FlashSaleRegistry.
func (m *MemoryFlashSaleRegistry) Active(_ context.Context, t time.Time) ([]domain.FlashSale, error) {
	out := m.store.Snapshot(func(s domain.FlashSale) bool { return s.ActiveAt(t) })
	sortSales(out)
	return out, nil
}

func sortSales(sales []domain.FlashSale) {
	slices.SortFunc(sales, func(a, b domain.FlashSale) int {
		if c := a.StartsAt.Compare(b.StartsAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
