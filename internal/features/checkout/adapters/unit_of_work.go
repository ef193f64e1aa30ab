package adapters

import (
	"context"

	"kmerzone/internal/core/database"
	ordersadapters "kmerzone/internal/features/orders/adapters"
	orders "kmerzone/internal/features/orders/domain"
	promoadapters "kmerzone/internal/features/promo/adapters"
)

// MemoryUnitOfWork implements ports.UnitOfWork for the memory store driver.
// The order is inserted while the promo store holds its counter lock, so a
// failed insert never consumes a use and a spent code never gains an order.
type MemoryUnitOfWork struct {
	orders *ordersadapters.MemoryRepository
	promos *promoadapters.MemoryStore
}

// NewMemoryUnitOfWork creates a MemoryUnitOfWork.
func NewMemoryUnitOfWork(repo *ordersadapters.MemoryRepository, promos *promoadapters.MemoryStore) *MemoryUnitOfWork {
	return &MemoryUnitOfWork{orders: repo, promos: promos}
}

// PlaceOrder implements ports.UnitOfWork.
func (u *MemoryUnitOfWork) PlaceOrder(ctx context.Context, o orders.Order, promoCode string) error {
	if promoCode == "" {
		return u.orders.Create(ctx, o)
	}
	return u.promos.RedeemThen(ctx, promoCode, func() error {
		return u.orders.Create(ctx, o)
	})
}

// SQLUnitOfWork implements ports.UnitOfWork with one database transaction.
type SQLUnitOfWork struct {
	db *database.DB
}

// NewSQLUnitOfWork creates a SQLUnitOfWork.
func NewSQLUnitOfWork(db *database.DB) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db}
}

// PlaceOrder implements ports.UnitOfWork.
func (u *SQLUnitOfWork) PlaceOrder(ctx context.Context, o orders.Order, promoCode string) error {
	return u.db.WithTx(ctx, func(tx database.Executor) error {
		if promoCode != "" {
			if err := promoadapters.RedeemTx(ctx, tx, promoCode); err != nil {
				return err
			}
		}
		return ordersadapters.InsertTx(ctx, tx, o)
	})
}
