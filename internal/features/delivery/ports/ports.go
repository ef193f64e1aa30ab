package ports

import (
	"context"
	"errors"

	"kmerzone/internal/features/delivery/domain"
)

var (
	// ErrVendorNotFound is returned when the directory has no entry for a name.
	ErrVendorNotFound = errors.New("vendor not found")
	// ErrReadOnlyDirectory is returned when writing to a directory owned elsewhere.
	ErrReadOnlyDirectory = errors.New("vendor directory is read-only")
)

// VendorDirectory resolves vendor names to their directory entry.
type VendorDirectory interface {
	Lookup(ctx context.Context, name string) (domain.Vendor, error)
}

// VendorStore is a VendorDirectory this service can write to.
type VendorStore interface {
	VendorDirectory
	Save(ctx context.Context, vendor domain.Vendor) error
}
