package service

import (
	"context"
	"fmt"
	"strings"

	"kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/delivery/ports"
)

// VendorService exposes the vendor directory.
type VendorService struct {
	directory ports.VendorDirectory
	store     ports.VendorStore
}

// NewVendorService creates a VendorService. store is nil when the directory is remote.
func NewVendorService(directory ports.VendorDirectory, store ports.VendorStore) *VendorService {
	return &VendorService{directory: directory, store: store}
}

// Directory returns the lookup used for fee computation.
func (s *VendorService) Directory() ports.VendorDirectory {
	return s.directory
}

// RegisterVendor creates or replaces a directory entry.
func (s *VendorService) RegisterVendor(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	if s.store == nil {
		return domain.Vendor{}, ports.ErrReadOnlyDirectory
	}
	v.Name = strings.TrimSpace(v.Name)
	v.City = strings.TrimSpace(v.City)
	if err := v.Validate(); err != nil {
		return domain.Vendor{}, err
	}
	if err := s.store.Save(ctx, v); err != nil {
		return domain.Vendor{}, fmt.Errorf("service: failed to save vendor: %w", err)
	}
	return v, nil
}

// GetVendor looks a vendor up by name.
func (s *VendorService) GetVendor(ctx context.Context, name string) (domain.Vendor, error) {
	return s.directory.Lookup(ctx, name)
}
