package adapters

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"kmerzone/internal/features/promo/domain"
	"kmerzone/internal/features/promo/ports"
)

// MemoryStore implements ports.PromoCodeStore in process memory.
// One mutex guards every use counter.
type MemoryStore struct {
	mu    sync.RWMutex
	codes map[string]domain.PromoCode
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]domain.PromoCode)}
}

// Find implements ports.PromoCodeRegistry.
func (m *MemoryStore) Find(_ context.Context, code string) (domain.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.codes[code]
	if !ok {
		return domain.PromoCode{}, ports.ErrPromoCodeNotFound
	}
	return p.Clone(), nil
}

// Create implements ports.PromoCodeStore.
func (m *MemoryStore) Create(_ context.Context, p domain.PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.codes[p.Code]; ok {
		return ports.ErrPromoCodeExists
	}
	m.codes[p.Code] = p.Clone()
	return nil
}

// Update implements ports.PromoCodeStore.
func (m *MemoryStore) Update(_ context.Context, code string, fn func(*domain.PromoCode) error) (domain.PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.codes[code]
	if !ok {
		return domain.PromoCode{}, ports.ErrPromoCodeNotFound
	}
	if current.Uses > 0 {
		return domain.PromoCode{}, domain.ErrPromoCodeLocked
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return domain.PromoCode{}, err
	}
	next.Code = current.Code
	next.Uses = current.Uses
	m.codes[code] = next
	return next.Clone(), nil
}

// Redeem implements ports.PromoCodeStore.
func (m *MemoryStore) Redeem(ctx context.Context, code string) error {
	return m.RedeemThen(ctx, code, nil)
}

// RedeemThen checks the usage guard, runs commit, and counts the use only if
// commit succeeds. The counter lock is held throughout, so no other redemption
// of any code interleaves.
func (m *MemoryStore) RedeemThen(_ context.Context, code string, commit func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.codes[code]
	if !ok {
		return ports.ErrPromoCodeNotFound
	}
	if p.Exhausted() {
		return ports.ErrUsageLimitReached
	}
	if commit != nil {
		if err := commit(); err != nil {
			return err
		}
	}
	p.Uses++
	m.codes[code] = p
	return nil
}

// ListBySeller implements ports.PromoCodeStore.
func (m *MemoryStore) ListBySeller(_ context.Context, seller string) ([]domain.PromoCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.PromoCode
	for _, p := range m.codes {
		if p.Seller == seller {
			out = append(out, p.Clone())
		}
	}
	slices.SortFunc(out, func(a, b domain.PromoCode) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}
