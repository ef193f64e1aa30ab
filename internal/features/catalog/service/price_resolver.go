package service

import (
	"time"

	"kmerzone/internal/features/catalog/domain"

	"github.com/shopspring/decimal"
)

// PriceSource names the rule that produced a unit price.
type PriceSource string

const (
	PriceSourceVariant   PriceSource = "variant"
	PriceSourceFlashSale PriceSource = "flash_sale"
	PriceSourcePromotion PriceSource = "promotion"
	PriceSourceBase      PriceSource = "base"
)

// PriceResolution is a resolved unit price and where it came from.
type PriceResolution struct {
	Price       decimal.Decimal `json:"price"`
	Source      PriceSource     `json:"source"`
	FlashSaleID string          `json:"flash_sale_id,omitempty"`
}

// Resolve computes the effective unit price of a cart line at now.
//
// Precedence: a priced variant matching the selection exactly, then the first
// sale in activeSales that contains now and holds an approved entry for the
// product, then an active promotion, then the base price. A selection that
// matches no variant falls through silently. Promotion windows compare calendar
// dates of now in now's location.
func Resolve(line domain.CartLine, activeSales []domain.FlashSale, now time.Time) PriceResolution {
	product := line.Product

	if detail, ok := product.MatchVariant(line.SelectedVariant); ok && detail.Price != nil {
		return PriceResolution{Price: *detail.Price, Source: PriceSourceVariant}
	}

	for i := range activeSales {
		sale := &activeSales[i]
		if !sale.ActiveAt(now) {
			continue
		}
		if price, ok := sale.ApprovedPrice(product.ID); ok {
			return PriceResolution{Price: price, Source: PriceSourceFlashSale, FlashSaleID: sale.ID}
		}
	}

	if product.Promotion.ActiveOn(product.BasePrice, domain.DateOf(now)) {
		return PriceResolution{Price: product.Promotion.Price, Source: PriceSourcePromotion}
	}

	return PriceResolution{Price: product.BasePrice, Source: PriceSourceBase}
}

// ResolvePrice returns only the unit price computed by Resolve.
func ResolvePrice(line domain.CartLine, activeSales []domain.FlashSale, now time.Time) decimal.Decimal {
	return Resolve(line, activeSales, now).Price
}

// LineTotal is the resolved unit price times quantity.
func LineTotal(line domain.CartLine, activeSales []domain.FlashSale, now time.Time) decimal.Decimal {
	return ResolvePrice(line, activeSales, now).Mul(decimal.NewFromInt(int64(line.Quantity)))
}
