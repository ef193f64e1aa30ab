package ports

import (
	"context"

	orders "kmerzone/internal/features/orders/domain"
)

// OrderLookup finds an order by its public tracking number.
// This is a Secondary Port (Driven Port).
type OrderLookup interface {
	// GetByTrackingNumber returns a snapshot without waiting for in-flight updates.
	GetByTrackingNumber(ctx context.Context, number string) (orders.Order, error)
}
