package domain

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus is the lifecycle status of a catalog entry.
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "draft"
	ProductStatusPublished ProductStatus = "published"
	ProductStatusArchived  ProductStatus = "archived"
)

var (
	// ErrInvalidProduct is returned when a product fails validation.
	ErrInvalidProduct = errors.New("invalid product")
)

// Promotion is a standing discounted price with an optional date window.
type Promotion struct {
	// Price is the promotional unit price.
	Price decimal.Decimal `json:"price"`
	// Start is the first day the promotion applies, inclusive.
	Start *Date `json:"start,omitempty"`
	// End is the last day the promotion applies, inclusive.
	End *Date `json:"end,omitempty"`
}

// ActiveOn reports whether the promotion applies on day for a product priced at base.
// The price must undercut base, at least one bound must be set, and day must
// fall inside whichever bounds exist.
func (p *Promotion) ActiveOn(base decimal.Decimal, day Date) bool {
	if p == nil || !p.Price.LessThan(base) {
		return false
	}
	if p.Start == nil && p.End == nil {
		return false
	}
	if p.Start != nil && day.Before(*p.Start) {
		return false
	}
	if p.End != nil && day.After(*p.End) {
		return false
	}
	return true
}

// VariantDefinition declares a variant axis, e.g. Size: [S, M, L].
type VariantDefinition struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// VariantDetail overrides stock and optionally price for one option combination.
type VariantDetail struct {
	Options map[string]string `json:"options"`
	Stock   int               `json:"stock"`
	Price   *decimal.Decimal  `json:"price,omitempty"`
}

// Matches reports an exact key-for-key, value-for-value match with selection.
func (v VariantDetail) Matches(selection map[string]string) bool {
	if len(v.Options) != len(selection) {
		return false
	}
	for k, want := range v.Options {
		if got, ok := selection[k]; !ok || got != want {
			return false
		}
	}
	return true
}

// Product is a catalog line owned by a vendor.
type Product struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	VendorName     string              `json:"vendor"`
	BasePrice      decimal.Decimal     `json:"base_price"`
	Promotion      *Promotion          `json:"promotion,omitempty"`
	Variants       []VariantDefinition `json:"variants,omitempty"`
	VariantDetails []VariantDetail     `json:"variant_details,omitempty"`
	// ShippingCost is the vendor-declared shipping cost for one shipment of this product.
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty"`
	Status       ProductStatus    `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// MatchVariant finds the variant detail recorded for selection.
func (p *Product) MatchVariant(selection map[string]string) (VariantDetail, bool) {
	if len(selection) == 0 {
		return VariantDetail{}, false
	}
	for _, d := range p.VariantDetails {
		if d.Matches(selection) {
			return d, true
		}
	}
	return VariantDetail{}, false
}

// Validate checks the invariants a seller must respect when saving a product.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.VendorName) == "" {
		return fmt.Errorf("%w: vendor is required", ErrInvalidProduct)
	}
	if p.BasePrice.IsNegative() {
		return fmt.Errorf("%w: base price must not be negative", ErrInvalidProduct)
	}
	if p.Promotion != nil {
		if p.Promotion.Price.IsNegative() {
			return fmt.Errorf("%w: promotion price must not be negative", ErrInvalidProduct)
		}
		if p.Promotion.Start != nil && p.Promotion.End != nil && p.Promotion.End.Before(*p.Promotion.Start) {
			return fmt.Errorf("%w: promotion ends before it starts", ErrInvalidProduct)
		}
	}
	for _, d := range p.VariantDetails {
		if d.Price != nil && d.Price.IsNegative() {
			return fmt.Errorf("%w: variant price must not be negative", ErrInvalidProduct)
		}
	}
	return nil
}

// CartLine is a product snapshot with the requested quantity and variant.
type CartLine struct {
	Product         Product           `json:"product"`
	Quantity        int               `json:"quantity"`
	SelectedVariant map[string]string `json:"selected_variant,omitempty"`
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	if p.Promotion != nil {
		promo := *p.Promotion
		p.Promotion = &promo
	}
	if p.ShippingCost != nil {
		cost := *p.ShippingCost
		p.ShippingCost = &cost
	}
	p.Variants = slices.Clone(p.Variants)
	for i := range p.Variants {
		p.Variants[i].Options = slices.Clone(p.Variants[i].Options)
	}
	if p.VariantDetails != nil {
		details := make([]VariantDetail, len(p.VariantDetails))
		for i, d := range p.VariantDetails {
			d.Options = maps.Clone(d.Options)
			if d.Price != nil {
				price := *d.Price
				d.Price = &price
			}
			details[i] = d
		}
		p.VariantDetails = details
	}
	return p
}
