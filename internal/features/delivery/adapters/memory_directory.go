package adapters

import (
	"context"
	"sync"

	"kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/delivery/ports"
)

// MemoryDirectory implements ports.VendorStore in process memory.
type MemoryDirectory struct {
	mu      sync.RWMutex
	vendors map[string]domain.Vendor
}

// NewMemoryDirectory creates a directory seeded with vendors.
func NewMemoryDirectory(vendors ...domain.Vendor) *MemoryDirectory {
	m := &MemoryDirectory{vendors: make(map[string]domain.Vendor, len(vendors))}
	for _, v := range vendors {
		m.vendors[v.Name] = v
	}
	return m
}

// Lookup implements ports.VendorDirectory.
func (m *MemoryDirectory) Lookup(_ context.Context, name string) (domain.Vendor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.vendors[name]
	if !ok {
		return domain.Vendor{}, ports.ErrVendorNotFound
	}
	return v, nil
}

// Save implements ports.VendorStore.
func (m *MemoryDirectory) Save(_ context.Context, v domain.Vendor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.vendors[v.Name] = v
	return nil
}
