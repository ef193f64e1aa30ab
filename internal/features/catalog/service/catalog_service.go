package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/features/catalog/domain"
	"kmerzone/internal/features/catalog/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNotOwner is returned when a seller touches another vendor's product.
	ErrNotOwner = errors.New("product belongs to another vendor")
	// ErrProductInUse is returned when archiving a product referenced by an open order.
	ErrProductInUse = errors.New("product is referenced by an open order")
	// ErrInvalidFlashPrice is returned for a flash price that is not positive.
	ErrInvalidFlashPrice = errors.New("flash price must be positive")
	// ErrProductNotPublished is returned when pricing a product that cannot be sold.
	ErrProductNotPublished = errors.New("product is not published")
)

// ProductInput carries the seller-editable fields of a product.
type ProductInput struct {
	Name           string                     `json:"name"`
	VendorName     string                     `json:"vendor,omitempty"`
	BasePrice      decimal.Decimal            `json:"base_price"`
	Promotion      *domain.Promotion          `json:"promotion,omitempty"`
	Variants       []domain.VariantDefinition `json:"variants,omitempty"`
	VariantDetails []domain.VariantDetail     `json:"variant_details,omitempty"`
	ShippingCost   *decimal.Decimal           `json:"shipping_cost,omitempty"`
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.BasePrice = in.BasePrice
	p.Promotion = in.Promotion
	p.Variants = in.Variants
	p.VariantDetails = in.VariantDetails
	p.ShippingCost = in.ShippingCost
}

// Option customises a CatalogService.
type Option func(*CatalogService)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) { s.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(next func() string) Option {
	return func(s *CatalogService) { s.newID = next }
}

// CatalogService manages products and flash sales and prices cart lines.
type CatalogService struct {
	products   ports.ProductCatalog
	sales      ports.FlashSaleRegistry
	openOrders ports.OpenOrderChecker
	loc        *time.Location
	now        func() time.Time
	newID      func() string
	log        *zap.Logger
}

// NewCatalogService creates a CatalogService. loc is the calendar used for promotion dates.
func NewCatalogService(products ports.ProductCatalog, sales ports.FlashSaleRegistry, openOrders ports.OpenOrderChecker, loc *time.Location, opts ...Option) *CatalogService {
	if loc == nil {
		loc = time.UTC
	}
	s := &CatalogService{
		products:   products,
		sales:      sales,
		openOrders: openOrders,
		loc:        loc,
		now:        time.Now,
		newID:      uuid.NewString,
		log:        logger.Named("catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock in the store's timezone.
func (s *CatalogService) Now() time.Time {
	return s.now().In(s.loc)
}

func authorize(actor identity.Actor, p domain.Product) error {
	if actor.Role == identity.RoleAdmin {
		return nil
	}
	if p.VendorName != actor.Vendor() {
		return ErrNotOwner
	}
	return nil
}

// CreateProduct registers a draft product for the acting seller. Admins may name any vendor.
func (s *CatalogService) CreateProduct(ctx context.Context, actor identity.Actor, in ProductInput) (domain.Product, error) {
	now := s.now()
	p := domain.Product{
		ID:         s.newID(),
		VendorName: actor.Vendor(),
		Status:     domain.ProductStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if actor.Role == identity.RoleAdmin && in.VendorName != "" {
		p.VendorName = in.VendorName
	}
	in.apply(&p)

	if err := p.Validate(); err != nil {
		return domain.Product{}, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return domain.Product{}, fmt.Errorf("service: failed to create product: %w", err)
	}

	s.log.Info("Product created", zap.String("product_id", p.ID), zap.String("vendor", p.VendorName))
	return p, nil
}

// UpdateProduct replaces the editable fields of a product owned by actor.
func (s *CatalogService) UpdateProduct(ctx context.Context, actor identity.Actor, id string, in ProductInput) (domain.Product, error) {
	return s.products.Update(ctx, id, func(p *domain.Product) error {
		if err := authorize(actor, *p); err != nil {
			return err
		}
		in.apply(p)
		p.UpdatedAt = s.now()
		return p.Validate()
	})
}

// GetProduct returns a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.products.Get(ctx, id)
}

// ListVendorProducts returns every product of vendor.
func (s *CatalogService) ListVendorProducts(ctx context.Context, vendor string) ([]domain.Product, error) {
	return s.products.ListByVendor(ctx, vendor)
}

// PublishProduct makes a product available for checkout.
func (s *CatalogService) PublishProduct(ctx context.Context, actor identity.Actor, id string) (domain.Product, error) {
	return s.products.Update(ctx, id, func(p *domain.Product) error {
		if err := authorize(actor, *p); err != nil {
			return err
		}
		p.Status = domain.ProductStatusPublished
		p.UpdatedAt = s.now()
		return nil
	})
}

// ArchiveProduct withdraws a product. It is refused while an open order references it.
//
// The product is archived before open orders are counted, so checkouts that price it
// from then on are refused. If an open order is found the previous status is restored.
func (s *CatalogService) ArchiveProduct(ctx context.Context, actor identity.Actor, id string) (domain.Product, error) {
	var previous domain.ProductStatus
	archived, err := s.products.Update(ctx, id, func(p *domain.Product) error {
		if err := authorize(actor, *p); err != nil {
			return err
		}
		previous = p.Status
		p.Status = domain.ProductStatusArchived
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	if previous == domain.ProductStatusArchived {
		return archived, nil
	}

	open, err := s.openOrders.HasOpenOrders(ctx, id)
	if err != nil {
		s.restoreStatus(ctx, id, previous)
		return domain.Product{}, fmt.Errorf("service: failed to check open orders: %w", err)
	}
	if open {
		s.restoreStatus(ctx, id, previous)
		return domain.Product{}, ErrProductInUse
	}

	s.log.Info("Product archived", zap.String("product_id", id), zap.String("actor", actor.Label()))
	return archived, nil
}

// restoreStatus undoes a refused archive unless the product changed since.
func (s *CatalogService) restoreStatus(ctx context.Context, id string, status domain.ProductStatus) {
	_, err := s.products.Update(ctx, id, func(p *domain.Product) error {
		if p.Status == domain.ProductStatusArchived {
			p.Status = status
			p.UpdatedAt = s.now()
		}
		return nil
	})
	if err != nil {
		s.log.Error("Failed to restore product after refused archive",
			zap.String("product_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// CreateFlashSale opens a new sale window.
func (s *CatalogService) CreateFlashSale(ctx context.Context, actor identity.Actor, name string, startsAt, endsAt time.Time) (domain.FlashSale, error) {
	sale := domain.FlashSale{
		ID:        s.newID(),
		Name:      strings.TrimSpace(name),
		StartsAt:  startsAt,
		EndsAt:    endsAt,
		CreatedBy: actor.Label(),
		CreatedAt: s.now(),
	}
	if err := sale.Validate(); err != nil {
		return domain.FlashSale{}, err
	}
	if err := s.sales.Create(ctx, sale); err != nil {
		return domain.FlashSale{}, fmt.Errorf("service: failed to create flash sale: %w", err)
	}
	return sale, nil
}

// ProposeEntry submits a flash price for one of actor's products. The entry starts pending.
func (s *CatalogService) ProposeEntry(ctx context.Context, actor identity.Actor, saleID, productID string, price decimal.Decimal) (domain.FlashSale, error) {
	if !price.IsPositive() {
		return domain.FlashSale{}, ErrInvalidFlashPrice
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return domain.FlashSale{}, err
	}
	if err := authorize(actor, product); err != nil {
		return domain.FlashSale{}, err
	}

	return s.sales.Update(ctx, saleID, func(sale *domain.FlashSale) error {
		sale.Propose(domain.FlashSaleEntry{
			ProductID:  product.ID,
			VendorName: product.VendorName,
			FlashPrice: price,
			ProposedAt: s.now(),
		})
		return nil
	})
}

// ReviewEntry approves or rejects the entry for productID.
func (s *CatalogService) ReviewEntry(ctx context.Context, actor identity.Actor, saleID, productID string, approve bool) (domain.FlashSale, error) {
	return s.sales.Update(ctx, saleID, func(sale *domain.FlashSale) error {
		return sale.Review(productID, approve, actor.Label(), s.now())
	})
}

// ActiveFlashSales lists sales whose window contains at.
func (s *CatalogService) ActiveFlashSales(ctx context.Context, at time.Time) ([]domain.FlashSale, error) {
	sales, err := s.sales.Active(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list active flash sales: %w", err)
	}
	return sales, nil
}

// PricedLine is a cart line frozen at its resolved unit price.
type PricedLine struct {
	domain.CartLine
	Resolution PriceResolution `json:"resolution"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// CartItem references a product by id for pricing.
type CartItem struct {
	ProductID       string            `json:"product_id"`
	Quantity        int               `json:"quantity"`
	SelectedVariant map[string]string `json:"selected_variant,omitempty"`
}

// PriceCart loads the current product snapshot for every item and resolves its price at the service clock.
func (s *CatalogService) PriceCart(ctx context.Context, items []CartItem) ([]PricedLine, error) {
	now := s.Now()
	sales, err := s.ActiveFlashSales(ctx, now)
	if err != nil {
		return nil, err
	}

	lines := make([]PricedLine, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for %s", domain.ErrInvalidProduct, item.ProductID)
		}
		product, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product.Status != domain.ProductStatusPublished {
			return nil, fmt.Errorf("%w: %s", ErrProductNotPublished, product.ID)
		}

		line := domain.CartLine{Product: product, Quantity: item.Quantity, SelectedVariant: item.SelectedVariant}
		res := Resolve(line, sales, now)
		lines = append(lines, PricedLine{
			CartLine:   line,
			Resolution: res,
			LineTotal:  res.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	return lines, nil
}
