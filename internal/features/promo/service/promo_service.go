package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kmerzone/internal/core/identity"
	"kmerzone/internal/core/logger"
	"kmerzone/internal/features/promo/domain"
	"kmerzone/internal/features/promo/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNotOwner is returned when a seller edits another seller's code.
var ErrNotOwner = errors.New("promo code belongs to another seller")

// ApplyCode evaluates code against subtotal at now without side effects.
//
// Rejections, in order: not_found, expired, below_minimum, usage_limit_reached.
// The discount never exceeds subtotal. Counting the use is left to order creation.
func ApplyCode(ctx context.Context, code string, subtotal decimal.Decimal, registry ports.PromoCodeRegistry, now time.Time) (domain.Application, error) {
	p, err := lookup(ctx, code, registry)
	if err != nil {
		return domain.Application{}, err
	}
	return evaluate(p, subtotal, now)
}

// ApplyToSellers applies code to the part of a cart sold by the code's owner.
// subtotals maps vendor name to that vendor's subtotal. A cart with nothing
// from the owner is rejected as not_applicable.
func ApplyToSellers(ctx context.Context, code string, subtotals map[string]decimal.Decimal, registry ports.PromoCodeRegistry, now time.Time) (domain.Application, error) {
	p, err := lookup(ctx, code, registry)
	if err != nil {
		return domain.Application{}, err
	}
	if p.Expired(now) {
		return domain.Application{}, domain.Reject(p.Code, domain.ReasonExpired)
	}
	eligible, ok := subtotals[p.Seller]
	if !ok || !eligible.IsPositive() {
		return domain.Application{}, domain.Reject(p.Code, domain.ReasonNotApplicable)
	}
	return evaluate(p, eligible, now)
}

func lookup(ctx context.Context, code string, registry ports.PromoCodeRegistry) (domain.PromoCode, error) {
	normalized := domain.Normalize(code)
	p, err := registry.Find(ctx, normalized)
	if errors.Is(err, ports.ErrPromoCodeNotFound) {
		return domain.PromoCode{}, domain.Reject(normalized, domain.ReasonNotFound)
	}
	if err != nil {
		return domain.PromoCode{}, fmt.Errorf("service: promo lookup: %w", err)
	}
	return p, nil
}

func evaluate(p domain.PromoCode, subtotal decimal.Decimal, now time.Time) (domain.Application, error) {
	switch {
	case p.Expired(now):
		return domain.Application{}, domain.Reject(p.Code, domain.ReasonExpired)
	case p.BelowMinimum(subtotal):
		return domain.Application{}, domain.Reject(p.Code, domain.ReasonBelowMinimum)
	case p.Exhausted():
		return domain.Application{}, domain.Reject(p.Code, domain.ReasonUsageLimitReached)
	}
	return domain.Application{
		Code:     p.Code,
		Seller:   p.Seller,
		Subtotal: subtotal,
		Discount: p.Discount(subtotal),
	}, nil
}

// CodeInput carries the seller-editable fields of a promo code.
type CodeInput struct {
	Code        string              `json:"code"`
	Kind        domain.DiscountKind `json:"kind"`
	Value       decimal.Decimal     `json:"value"`
	MinPurchase *decimal.Decimal    `json:"min_purchase,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	MaxUses     *int                `json:"max_uses,omitempty"`
}

// PromoService manages seller promo codes.
type PromoService struct {
	store ports.PromoCodeStore
	now   func() time.Time
	log   *zap.Logger
}

// NewPromoService creates a PromoService. now defaults to time.Now.
func NewPromoService(store ports.PromoCodeStore, now func() time.Time) *PromoService {
	if now == nil {
		now = time.Now
	}
	return &PromoService{store: store, now: now, log: logger.Named("promo")}
}

// Registry returns the lookup used by checkout.
func (s *PromoService) Registry() ports.PromoCodeRegistry {
	return s.store
}

// CreateCode registers a code owned by the acting seller.
func (s *PromoService) CreateCode(ctx context.Context, actor identity.Actor, in CodeInput) (domain.PromoCode, error) {
	p := domain.PromoCode{
		Code:        domain.Normalize(in.Code),
		Seller:      actor.Vendor(),
		Kind:        in.Kind,
		Value:       in.Value,
		MinPurchase: in.MinPurchase,
		ExpiresAt:   in.ExpiresAt,
		MaxUses:     in.MaxUses,
		CreatedAt:   s.now(),
	}
	if err := p.Validate(); err != nil {
		return domain.PromoCode{}, err
	}
	if err := s.store.Create(ctx, p); err != nil {
		return domain.PromoCode{}, err
	}
	s.log.Info("Promo code created", zap.String("code", p.Code), zap.String("seller", p.Seller))
	return p, nil
}

// UpdateCode edits a code that has not been redeemed yet.
func (s *PromoService) UpdateCode(ctx context.Context, actor identity.Actor, code string, in CodeInput) (domain.PromoCode, error) {
	return s.store.Update(ctx, domain.Normalize(code), func(p *domain.PromoCode) error {
		if actor.Role != identity.RoleAdmin && p.Seller != actor.Vendor() {
			return ErrNotOwner
		}
		p.Kind = in.Kind
		p.Value = in.Value
		p.MinPurchase = in.MinPurchase
		p.ExpiresAt = in.ExpiresAt
		p.MaxUses = in.MaxUses
		return p.Validate()
	})
}

// GetCode returns a code by its case-insensitive name.
func (s *PromoService) GetCode(ctx context.Context, code string) (domain.PromoCode, error) {
	return s.store.Find(ctx, domain.Normalize(code))
}

// ListCodes returns the codes of seller.
func (s *PromoService) ListCodes(ctx context.Context, seller string) ([]domain.PromoCode, error) {
	return s.store.ListBySeller(ctx, seller)
}

// Apply evaluates code against subtotal at the service clock.
func (s *PromoService) Apply(ctx context.Context, code string, subtotal decimal.Decimal) (domain.Application, error) {
	return ApplyCode(ctx, code, subtotal, s.store, s.now())
}
