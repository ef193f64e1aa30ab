package adapters

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"kmerzone/internal/core/memstore"
	"kmerzone/internal/features/orders/domain"
	"kmerzone/internal/features/orders/ports"
)

// MemoryRepository implements ports.OrderRepository in process memory.
type MemoryRepository struct {
	orders *memstore.Store[domain.Order]

	mu         sync.RWMutex
	byTracking map[string]string
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:     memstore.New(domain.Order.Clone),
		byTracking: make(map[string]string),
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, memstore.ErrNotFound):
		return ports.ErrOrderNotFound
	case errors.Is(err, memstore.ErrExists):
		return ports.ErrOrderExists
	}
	return err
}

// Create implements ports.OrderRepository.
func (r *MemoryRepository) Create(_ context.Context, o domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byTracking[o.TrackingNumber]; taken {
		return ports.ErrOrderExists
	}
	if err := r.orders.Insert(o.ID, o); err != nil {
		return translate(err)
	}
	r.byTracking[o.TrackingNumber] = o.ID
	return nil
}

// Get implements ports.OrderRepository.
func (r *MemoryRepository) Get(_ context.Context, id string) (domain.Order, error) {
	o, err := r.orders.Get(id)
	return o, translate(err)
}

// GetByTrackingNumber implements ports.OrderRepository.
func (r *MemoryRepository) GetByTrackingNumber(ctx context.Context, number string) (domain.Order, error) {
	r.mu.RLock()
	id, ok := r.byTracking[number]
	r.mu.RUnlock()
	if !ok {
		return domain.Order{}, ports.ErrOrderNotFound
	}
	return r.Get(ctx, id)
}

// ListByCustomer implements ports.OrderRepository.
func (r *MemoryRepository) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	out := r.orders.Snapshot(func(o domain.Order) bool { return o.CustomerID == customerID })
	slices.SortFunc(out, func(a, b domain.Order) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Update implements ports.OrderRepository. Writers of one order run one at a time.
func (r *MemoryRepository) Update(_ context.Context, id string, fn func(*domain.Order) error) (domain.Order, error) {
	o, err := r.orders.Update(id, func(o *domain.Order) error {
		if err := fn(o); err != nil {
			return err
		}
		o.Version++
		return nil
	})
	return o, translate(err)
}

// HasOpenOrders implements ports.OrderRepository.
func (r *MemoryRepository) HasOpenOrders(_ context.Context, productID string) (bool, error) {
	open := r.orders.Snapshot(func(o domain.Order) bool {
		return !o.Status.Terminal() && slices.Contains(o.ProductIDs(), productID)
	})
	return len(open) > 0, nil
}
