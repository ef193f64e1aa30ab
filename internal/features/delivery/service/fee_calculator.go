package service

import (
	"context"
	"errors"
	"fmt"

	"kmerzone/internal/core/logger"
	catalog "kmerzone/internal/features/catalog/domain"
	"kmerzone/internal/features/delivery/domain"
	"kmerzone/internal/features/delivery/ports"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FeeCalculator computes multi-vendor delivery fees.
type FeeCalculator struct {
	schedule domain.FeeSchedule
	log      *zap.Logger
}

// NewFeeCalculator creates a FeeCalculator using schedule.
func NewFeeCalculator(schedule domain.FeeSchedule) *FeeCalculator {
	return &FeeCalculator{
		schedule: schedule,
		log:      logger.Named("delivery"),
	}
}

// Schedule returns the zone fees in use.
func (c *FeeCalculator) Schedule() domain.FeeSchedule {
	return c.schedule
}

// ComputeFee returns the delivery fee for lines shipped to destinationCity.
//
// Pickup orders and empty carts cost nothing. Otherwise lines are grouped by
// vendor and each group pays the larger of its zone fee and the highest
// shipping cost declared on its lines. A vendor missing from the directory is
// charged the unknown-vendor fee and logged as a data-quality warning.
// Only directory failures other than a miss are returned as errors.
func (c *FeeCalculator) ComputeFee(ctx context.Context, lines []catalog.CartLine, method domain.DeliveryMethod, destinationCity string, directory ports.VendorDirectory) (domain.FeeBreakdown, error) {
	out := domain.FeeBreakdown{
		Method:      method,
		Destination: destinationCity,
		Shipments:   []domain.Shipment{},
		Total:       decimal.Zero,
	}
	if method == domain.MethodPickup || len(lines) == 0 {
		return out, nil
	}

	for _, group := range groupByVendor(lines) {
		shipment := domain.Shipment{
			Vendor:       group.vendor,
			DeclaredCost: maxDeclaredShippingCost(group.lines),
		}

		vendor, err := directory.Lookup(ctx, group.vendor)
		switch {
		case errors.Is(err, ports.ErrVendorNotFound):
			shipment.ZoneFee = c.schedule.UnknownVendor
			shipment.Degraded = true
			c.log.Warn("Unknown vendor in cart, charging fallback delivery fee",
				zap.String("vendor", group.vendor),
				zap.String("fee", c.schedule.UnknownVendor.String()),
			)
		case err != nil:
			return domain.FeeBreakdown{}, fmt.Errorf("service: vendor lookup %q: %w", group.vendor, err)
		default:
			shipment.VendorCity = vendor.City
			shipment.ZoneFee = c.schedule.ZoneFee(vendor.City, destinationCity)
		}

		shipment.Fee = decimal.Max(shipment.DeclaredCost, shipment.ZoneFee)
		out.Shipments = append(out.Shipments, shipment)
		out.Total = out.Total.Add(shipment.Fee)
	}

	return out, nil
}

type vendorGroup struct {
	vendor string
	lines  []catalog.CartLine
}

// groupByVendor keeps vendors in first-seen order.
func groupByVendor(lines []catalog.CartLine) []vendorGroup {
	var groups []vendorGroup
	index := make(map[string]int)
	for _, line := range lines {
		name := line.Product.VendorName
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, vendorGroup{vendor: name})
		}
		groups[i].lines = append(groups[i].lines, line)
	}
	return groups
}

// maxDeclaredShippingCost ignores undeclared and negative costs and defaults to zero.
func maxDeclaredShippingCost(lines []catalog.CartLine) decimal.Decimal {
	best := decimal.Zero
	for _, line := range lines {
		cost := line.Product.ShippingCost
		if cost == nil || cost.IsNegative() {
			continue
		}
		if cost.GreaterThan(best) {
			best = *cost
		}
	}
	return best
}
