package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DeliveryMethod is how an order reaches the customer.
type DeliveryMethod string

const (
	MethodHomeDelivery DeliveryMethod = "home-delivery"
	MethodPickup       DeliveryMethod = "pickup"
)

// ErrInvalidVendor is returned when a vendor record is incomplete.
var ErrInvalidVendor = errors.New("invalid vendor")

// Valid reports whether m is a known delivery method.
func (m DeliveryMethod) Valid() bool {
	return m == MethodHomeDelivery || m == MethodPickup
}

// ShippingSettings is the vendor's declared shipping behaviour.
type ShippingSettings struct {
	HomeDelivery bool   `json:"home_delivery"`
	Pickup       bool   `json:"pickup"`
	PickupPoint  string `json:"pickup_point,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// Vendor is a directory entry.
type Vendor struct {
	Name     string           `json:"name"`
	City     string           `json:"city"`
	Shipping ShippingSettings `json:"shipping"`
}

// Validate checks the fields the fee calculator depends on.
func (v Vendor) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidVendor)
	}
	if strings.TrimSpace(v.City) == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidVendor)
	}
	return nil
}

// FeeSchedule holds the configurable zone fees.
type FeeSchedule struct {
	IntraUrban decimal.Decimal `json:"intra_urban"`
	InterUrban decimal.Decimal `json:"inter_urban"`
	// UnknownVendor is charged for a vendor group whose city cannot be resolved.
	UnknownVendor decimal.Decimal `json:"unknown_vendor"`
}

// ZoneFee picks the intra- or inter-urban fee. Cities compare case-insensitively.
func (s FeeSchedule) ZoneFee(vendorCity, destinationCity string) decimal.Decimal {
	if strings.EqualFold(strings.TrimSpace(vendorCity), strings.TrimSpace(destinationCity)) {
		return s.IntraUrban
	}
	return s.InterUrban
}

// Shipment is the fee of one vendor's portion of a cart.
type Shipment struct {
	Vendor       string          `json:"vendor"`
	VendorCity   string          `json:"vendor_city,omitempty"`
	ZoneFee      decimal.Decimal `json:"zone_fee"`
	DeclaredCost decimal.Decimal `json:"declared_cost"`
	Fee          decimal.Decimal `json:"fee"`
	// Degraded marks a vendor missing from the directory.
	Degraded bool `json:"degraded,omitempty"`
}

// FeeBreakdown is the delivery fee of a cart with its per-vendor parts.
type FeeBreakdown struct {
	Method      DeliveryMethod  `json:"method"`
	Destination string          `json:"destination,omitempty"`
	Shipments   []Shipment      `json:"shipments"`
	Total       decimal.Decimal `json:"total"`
}

// Degraded lists vendors that fell back to the unknown-vendor fee.
func (b FeeBreakdown) Degraded() []string {
	var out []string
	for _, s := range b.Shipments {
		if s.Degraded {
			out = append(out, s.Vendor)
		}
	}
	return out
}
