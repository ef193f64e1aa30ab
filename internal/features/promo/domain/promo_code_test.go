package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestPromoCode_Discount(t *testing.T) {
	tests := []struct {
		name     string
		kind     DiscountKind
		value    int64
		subtotal int64
		want     int64
	}{
		{"TenPercent", KindPercentage, 10, 10000, 1000},
		{"FixedUnderSubtotal", KindFixed, 2000, 10000, 2000},
		{"FixedClampedToSubtotal", KindFixed, 5000, 3000, 3000},
		{"FullPercentage", KindPercentage, 100, 4200, 4200},
		{"ZeroSubtotal", KindFixed, 5000, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PromoCode{Kind: tt.kind, Value: dec(tt.value)}
			got := p.Discount(dec(tt.subtotal))
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestPromoCode_Guards(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	minimum := dec(5000)
	two := 2

	p := PromoCode{ExpiresAt: &past, MinPurchase: &minimum, MaxUses: &two, Uses: 2}
	assert.True(t, p.Expired(now))
	assert.False(t, p.Expired(past), "expiry instant itself has not passed")
	assert.True(t, p.BelowMinimum(dec(4999)))
	assert.False(t, p.BelowMinimum(dec(5000)))
	assert.True(t, p.Exhausted())

	open := PromoCode{}
	assert.False(t, open.Expired(now))
	assert.False(t, open.BelowMinimum(dec(0)))
	assert.False(t, open.Exhausted())
}

func TestPromoCode_Validate(t *testing.T) {
	valid := PromoCode{Code: "RENTREE", Seller: "A", Kind: KindPercentage, Value: dec(15)}
	assert.NoError(t, valid.Validate())

	tooMuch := valid
	tooMuch.Value = dec(101)
	assert.ErrorIs(t, tooMuch.Validate(), ErrInvalidPromoCode)

	badKind := valid
	badKind.Kind = "bogo"
	assert.ErrorIs(t, badKind.Validate(), ErrInvalidPromoCode)

	zero := 0
	noUses := valid
	noUses.MaxUses = &zero
	assert.ErrorIs(t, noUses.Validate(), ErrInvalidPromoCode)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "RENTREE2026", Normalize("  rentree2026 "))
}

func TestRejection(t *testing.T) {
	var err error = Reject("X", ReasonExpired)
	assert.ErrorIs(t, err, ErrRejected)

	r, ok := AsRejection(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonExpired, r.Reason)
}
