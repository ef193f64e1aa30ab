package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the administrator review state of a flash-sale entry.
type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "pending"
	EntryStatusApproved EntryStatus = "approved"
	EntryStatusRejected EntryStatus = "rejected"
)

var (
	// ErrInvalidFlashSale is returned for a sale whose window is empty or inverted.
	ErrInvalidFlashSale = errors.New("invalid flash sale")
	// ErrEntryNotFound is returned when reviewing an entry that was never proposed.
	ErrEntryNotFound = errors.New("flash sale entry not found")
)

// FlashSaleEntry binds one product to a flash price pending approval.
type FlashSaleEntry struct {
	ProductID  string          `json:"product_id"`
	VendorName string          `json:"vendor"`
	FlashPrice decimal.Decimal `json:"flash_price"`
	Status     EntryStatus     `json:"status"`
	ProposedAt time.Time       `json:"proposed_at"`
	ReviewedBy string          `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time      `json:"reviewed_at,omitempty"`
}

// FlashSale is a time-boxed campaign of per-product price overrides.
type FlashSale struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	StartsAt  time.Time        `json:"starts_at"`
	EndsAt    time.Time        `json:"ends_at"`
	Entries   []FlashSaleEntry `json:"entries"`
	CreatedBy string           `json:"created_by"`
	CreatedAt time.Time        `json:"created_at"`
}

// Validate checks that the window is well formed.
func (s *FlashSale) Validate() error {
	if s.StartsAt.IsZero() || s.EndsAt.IsZero() || s.EndsAt.Before(s.StartsAt) {
		return ErrInvalidFlashSale
	}
	return nil
}

// ActiveAt reports whether t lies inside [StartsAt, EndsAt], bounds included.
func (s *FlashSale) ActiveAt(t time.Time) bool {
	return !t.Before(s.StartsAt) && !t.After(s.EndsAt)
}

// ApprovedPrice returns the flash price of an approved entry for productID.
func (s *FlashSale) ApprovedPrice(productID string) (decimal.Decimal, bool) {
	for _, e := range s.Entries {
		if e.ProductID == productID && e.Status == EntryStatusApproved {
			return e.FlashPrice, true
		}
	}
	return decimal.Decimal{}, false
}

// Propose adds or replaces the entry for productID. A replaced entry goes back to pending.
func (s *FlashSale) Propose(entry FlashSaleEntry) {
	entry.Status = EntryStatusPending
	entry.ReviewedBy = ""
	entry.ReviewedAt = nil
	for i := range s.Entries {
		if s.Entries[i].ProductID == entry.ProductID {
			s.Entries[i] = entry
			return
		}
	}
	s.Entries = append(s.Entries, entry)
}

// Review sets the status of the entry for productID.
func (s *FlashSale) Review(productID string, approve bool, reviewer string, at time.Time) error {
	for i := range s.Entries {
		if s.Entries[i].ProductID != productID {
			continue
		}
		s.Entries[i].Status = EntryStatusRejected
		if approve {
			s.Entries[i].Status = EntryStatusApproved
		}
		s.Entries[i].ReviewedBy = reviewer
		s.Entries[i].ReviewedAt = &at
		return nil
	}
	return ErrEntryNotFound
}

// Clone returns a deep copy of s.
func (s FlashSale) Clone() FlashSale {
	s.Entries = slices.Clone(s.Entries)
	for i := range s.Entries {
		if at := s.Entries[i].ReviewedAt; at != nil {
			t := *at
			s.Entries[i].ReviewedAt = &t
		}
	}
	return s
}
