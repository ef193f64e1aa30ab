package ports

import (
	"context"
	"errors"

	"kmerzone/internal/features/promo/domain"
)

var (
	// ErrPromoCodeNotFound is returned when no code matches.
	ErrPromoCodeNotFound = errors.New("promo code not found")
	// ErrPromoCodeExists is returned when creating a code that is taken.
	ErrPromoCodeExists = errors.New("promo code already exists")
	// ErrUsageLimitReached is returned by Redeem when every use has been counted.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
)

// PromoCodeRegistry looks codes up. Codes passed in are already normalized.
type PromoCodeRegistry interface {
	Find(ctx context.Context, code string) (domain.PromoCode, error)
}

// PromoCodeStore is the writable registry.
type PromoCodeStore interface {
	PromoCodeRegistry
	Create(ctx context.Context, code domain.PromoCode) error
	// Update edits a code. It must fail with domain.ErrPromoCodeLocked once uses exist.
	Update(ctx context.Context, code string, fn func(*domain.PromoCode) error) (domain.PromoCode, error)
	// Redeem counts one use, refusing to exceed MaxUses.
	Redeem(ctx context.Context, code string) error
	ListBySeller(ctx context.Context, seller string) ([]domain.PromoCode, error)
}
