package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountKind is how a promo code's value is interpreted.
type DiscountKind string

const (
	KindPercentage DiscountKind = "percentage"
	KindFixed      DiscountKind = "fixed"
)

var (
	// ErrInvalidPromoCode is returned when a promo code fails validation.
	ErrInvalidPromoCode = errors.New("invalid promo code")
	// ErrPromoCodeLocked is returned when editing a code that has been redeemed.
	ErrPromoCodeLocked = errors.New("promo code has redemptions and can no longer be edited")
)

var hundred = decimal.NewFromInt(100)

// PromoCode is a seller-scoped discount code.
type PromoCode struct {
	// Code is stored uppercase; lookups are case-insensitive.
	Code        string           `json:"code"`
	Seller      string           `json:"seller"`
	Kind        DiscountKind     `json:"kind"`
	Value       decimal.Decimal  `json:"value"`
	MinPurchase *decimal.Decimal `json:"min_purchase,omitempty"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	MaxUses     *int             `json:"max_uses,omitempty"`
	Uses        int              `json:"uses"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Normalize returns the canonical form of a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the invariants of a new or edited code.
func (p *PromoCode) Validate() error {
	if p.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidPromoCode)
	}
	if p.Seller == "" {
		return fmt.Errorf("%w: seller is required", ErrInvalidPromoCode)
	}
	switch p.Kind {
	case KindPercentage:
		if p.Value.GreaterThan(hundred) {
			return fmt.Errorf("%w: percentage cannot exceed 100", ErrInvalidPromoCode)
		}
	case KindFixed:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPromoCode, p.Kind)
	}
	if !p.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", ErrInvalidPromoCode)
	}
	if p.MinPurchase != nil && p.MinPurchase.IsNegative() {
		return fmt.Errorf("%w: minimum purchase must not be negative", ErrInvalidPromoCode)
	}
	if p.MaxUses != nil && *p.MaxUses < 1 {
		return fmt.Errorf("%w: max uses must be at least 1", ErrInvalidPromoCode)
	}
	return nil
}

// Expired reports whether the expiry has passed at now.
func (p *PromoCode) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// Exhausted reports whether every allowed use has been counted.
func (p *PromoCode) Exhausted() bool {
	return p.MaxUses != nil && p.Uses >= *p.MaxUses
}

// BelowMinimum reports whether subtotal misses the minimum purchase.
func (p *PromoCode) BelowMinimum(subtotal decimal.Decimal) bool {
	return p.MinPurchase != nil && subtotal.LessThan(*p.MinPurchase)
}

// Discount prices the code against subtotal, clamped to [0, subtotal].
func (p *PromoCode) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch p.Kind {
	case KindPercentage:
		d = subtotal.Mul(p.Value).Div(hundred)
	case KindFixed:
		d = p.Value
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}

// Clone returns a deep copy of p.
func (p PromoCode) Clone() PromoCode {
	if p.MinPurchase != nil {
		v := *p.MinPurchase
		p.MinPurchase = &v
	}
	if p.ExpiresAt != nil {
		v := *p.ExpiresAt
		p.ExpiresAt = &v
	}
	if p.MaxUses != nil {
		v := *p.MaxUses
		p.MaxUses = &v
	}
	return p
}
