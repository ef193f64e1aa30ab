package ports

import (
	"context"
	"errors"

	"kmerzone/internal/features/orders/domain"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists is returned when the id or tracking number is taken.
	ErrOrderExists = errors.New("order already exists")
	// ErrConflict is returned when concurrent writers kept invalidating an update.
	ErrConflict = errors.New("order was modified concurrently, retry")
)

// OrderRepository persists orders.
// This is a Secondary Port (Driven Port).
type OrderRepository interface {
	// Create stores a new order.
	Create(ctx context.Context, o domain.Order) error
	// Get returns a snapshot of the order. It never waits for an in-flight update.
	Get(ctx context.Context, id string) (domain.Order, error)
	// GetByTrackingNumber returns a snapshot of the order with the given public reference.
	GetByTrackingNumber(ctx context.Context, number string) (domain.Order, error)
	// ListByCustomer returns the customer's orders, oldest first.
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	// Update atomically applies fn to the current order. If fn fails nothing is stored.
	Update(ctx context.Context, id string, fn func(*domain.Order) error) (domain.Order, error)
	// HasOpenOrders reports whether a non-terminal order contains productID.
	HasOpenOrders(ctx context.Context, productID string) (bool, error)
}

// EventPublisher announces committed order changes.
type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event) error
	Close() error
}
