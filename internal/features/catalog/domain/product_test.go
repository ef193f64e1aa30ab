package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(s string) *Date {
	d := MustDate(s)
	return &d
}

func TestPromotion_ActiveOn(t *testing.T) {
	base := decimal.NewFromInt(5000)
	today := MustDate("2026-10-15")

	tests := []struct {
		name  string
		promo *Promotion
		want  bool
	}{
		{"NilPromotion", nil, false},
		{"NoBounds", &Promotion{Price: decimal.NewFromInt(4000)}, false},
		{"StartOnlyReached", &Promotion{Price: decimal.NewFromInt(4000), Start: datePtr("2026-10-15")}, true},
		{"StartOnlyInFuture", &Promotion{Price: decimal.NewFromInt(4000), Start: datePtr("2026-10-16")}, false},
		{"EndOnlyNotPassed", &Promotion{Price: decimal.NewFromInt(4000), End: datePtr("2026-10-15")}, true},
		{"EndOnlyPassed", &Promotion{Price: decimal.NewFromInt(4000), End: datePtr("2026-10-14")}, false},
		{"BothInside", &Promotion{Price: decimal.NewFromInt(4000), Start: datePtr("2026-10-01"), End: datePtr("2026-10-31")}, true},
		{"BothOutside", &Promotion{Price: decimal.NewFromInt(4000), Start: datePtr("2026-11-01"), End: datePtr("2026-11-30")}, false},
		{"PriceNotLower", &Promotion{Price: decimal.NewFromInt(5000), Start: datePtr("2026-10-01")}, false},
		{"PriceHigher", &Promotion{Price: decimal.NewFromInt(6000), Start: datePtr("2026-10-01")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.promo.ActiveOn(base, today))
		})
	}
}

func TestVariantDetail_Matches(t *testing.T) {
	detail := VariantDetail{Options: map[string]string{"Size": "M", "Color": "Red"}}

	assert.True(t, detail.Matches(map[string]string{"Color": "Red", "Size": "M"}))
	assert.False(t, detail.Matches(map[string]string{"Size": "M"}), "subset is not a match")
	assert.False(t, detail.Matches(map[string]string{"Size": "M", "Color": "Red", "Fit": "Slim"}), "superset is not a match")
	assert.False(t, detail.Matches(map[string]string{"Size": "L", "Color": "Red"}))
	assert.False(t, detail.Matches(map[string]string{"Size": "M", "Colour": "Red"}))
}

func TestProduct_MatchVariant(t *testing.T) {
	price := decimal.NewFromInt(7000)
	p := Product{VariantDetails: []VariantDetail{
		{Options: map[string]string{"Size": "S"}, Stock: 3},
		{Options: map[string]string{"Size": "L"}, Stock: 1, Price: &price},
	}}

	d, ok := p.MatchVariant(map[string]string{"Size": "L"})
	require.True(t, ok)
	assert.True(t, d.Price.Equal(price))

	_, ok = p.MatchVariant(nil)
	assert.False(t, ok)

	_, ok = p.MatchVariant(map[string]string{"Size": "XL"})
	assert.False(t, ok)
}

func TestProduct_Validate(t *testing.T) {
	valid := Product{ID: "p1", VendorName: "A", BasePrice: decimal.NewFromInt(100)}
	assert.NoError(t, valid.Validate())

	missingVendor := valid
	missingVendor.VendorName = ""
	assert.ErrorIs(t, missingVendor.Validate(), ErrInvalidProduct)

	inverted := valid
	inverted.Promotion = &Promotion{Price: decimal.NewFromInt(50), Start: datePtr("2026-02-01"), End: datePtr("2026-01-01")}
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidProduct)
}

func TestDate_JSON(t *testing.T) {
	p := Promotion{Price: decimal.NewFromInt(10), Start: datePtr("2026-01-05")}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"start":"2026-01-05"`)

	var back Promotion
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, MustDate("2026-01-05"), *back.Start)
	assert.Nil(t, back.End)

	assert.Error(t, json.Unmarshal([]byte(`{"start":"05/01/2026"}`), &back))
}

func TestDateOf_UsesLocation(t *testing.T) {
	// 23:30 UTC on the 14th is already the 15th in Douala (UTC+1).
	utc := time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)
	wat := time.FixedZone("WAT", 3600)

	assert.Equal(t, MustDate("2026-10-14"), DateOf(utc))
	assert.Equal(t, MustDate("2026-10-15"), DateOf(utc.In(wat)))
}
