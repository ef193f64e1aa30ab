package adapters

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kmerzone/internal/core/database"
	"kmerzone/internal/features/promo/domain"
	"kmerzone/internal/features/promo/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]ports.PromoCodeStore {
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	return map[string]ports.PromoCodeStore{
		"Memory": NewMemoryStore(),
		"SQLite": NewSQLStore(db),
	}
}

func TestPromoCodeStores(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	expires := created.Add(30 * 24 * time.Hour)
	minimum := decimal.NewFromInt(5000)
	maxUses := 2

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			p := domain.PromoCode{
				Code: "AKWA10", Seller: "Boutique Akwa", Kind: domain.KindPercentage, Value: decimal.RequireFromString("12.5"),
				MinPurchase: &minimum, ExpiresAt: &expires, MaxUses: &maxUses, CreatedAt: created,
			}
			require.NoError(t, store.Create(ctx, p))
			assert.ErrorIs(t, store.Create(ctx, p), ports.ErrPromoCodeExists)

			got, err := store.Find(ctx, "AKWA10")
			require.NoError(t, err)
			assert.True(t, got.Value.Equal(decimal.RequireFromString("12.5")))
			assert.True(t, got.MinPurchase.Equal(minimum))
			assert.True(t, got.ExpiresAt.Equal(expires))
			assert.Equal(t, 2, *got.MaxUses)
			assert.True(t, got.CreatedAt.Equal(created))

			_, err = store.Find(ctx, "MISSING")
			assert.ErrorIs(t, err, ports.ErrPromoCodeNotFound)

			edited, err := store.Update(ctx, "AKWA10", func(p *domain.PromoCode) error {
				p.MinPurchase = nil
				return nil
			})
			require.NoError(t, err)
			assert.Nil(t, edited.MinPurchase)

			require.NoError(t, store.Redeem(ctx, "AKWA10"))
			_, err = store.Update(ctx, "AKWA10", func(*domain.PromoCode) error { return nil })
			assert.ErrorIs(t, err, domain.ErrPromoCodeLocked)

			require.NoError(t, store.Redeem(ctx, "AKWA10"))
			assert.ErrorIs(t, store.Redeem(ctx, "AKWA10"), ports.ErrUsageLimitReached)
			assert.ErrorIs(t, store.Redeem(ctx, "MISSING"), ports.ErrPromoCodeNotFound)

			got, _ = store.Find(ctx, "AKWA10")
			assert.Equal(t, 2, got.Uses)

			list, err := store.ListBySeller(ctx, "Boutique Akwa")
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestPromoCodeStores_ConcurrentRedemptionsRespectLimit(t *testing.T) {
	ctx := context.Background()
	limit := 5

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Create(ctx, domain.PromoCode{
				Code: "RUSH", Seller: "A", Kind: domain.KindFixed, Value: decimal.NewFromInt(100), MaxUses: &limit,
			}))

			var ok, refused atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := store.Redeem(ctx, "RUSH")
					switch {
					case err == nil:
						ok.Add(1)
					case errors.Is(err, ports.ErrUsageLimitReached):
						refused.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.EqualValues(t, limit, ok.Load())
			assert.EqualValues(t, 15, refused.Load())

			got, err := store.Find(ctx, "RUSH")
			require.NoError(t, err)
			assert.Equal(t, limit, got.Uses)
		})
	}
}

func TestMemoryStore_RedeemThen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Create(ctx, domain.PromoCode{Code: "X", Seller: "A", Kind: domain.KindFixed, Value: decimal.NewFromInt(1)}))

	boom := errors.New("boom")
	assert.ErrorIs(t, store.RedeemThen(ctx, "X", func() error { return boom }), boom)
	p, _ := store.Find(ctx, "X")
	assert.Zero(t, p.Uses, "failed commit does not count")

	require.NoError(t, store.RedeemThen(ctx, "X", func() error { return nil }))
	p, _ = store.Find(ctx, "X")
	assert.Equal(t, 1, p.Uses)
}
