package ports

import (
	"context"

	orders "kmerzone/internal/features/orders/domain"
)

// UnitOfWork stores a new order together with its promo code redemption.
// This is a Secondary Port (Driven Port).
type UnitOfWork interface {
	// PlaceOrder stores o and, when promoCode is not empty, counts one use of it.
	// Either both happen or neither does.
	PlaceOrder(ctx context.Context, o orders.Order, promoCode string) error
}
