package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"kmerzone/internal/core/database"
	"kmerzone/internal/features/orders/domain"
	"kmerzone/internal/features/orders/ports"
)

// SQLRepository implements ports.OrderRepository on the orders and order_products tables.
type SQLRepository struct {
	db *database.DB
}

// NewSQLRepository creates a repository backed by db.
func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create implements ports.OrderRepository.
func (r *SQLRepository) Create(ctx context.Context, o domain.Order) error {
	return r.db.WithTx(ctx, func(tx database.Executor) error {
		return InsertTx(ctx, tx, o)
	})
}

// InsertTx writes o and its product index through ex, which may be a transaction.
func InsertTx(ctx context.Context, ex database.Executor, o domain.Order) error {
	if o.Version == 0 {
		o.Version = 1
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}

	_, err = ex.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, tracking_number, status, created_at, version, document) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.CustomerID, o.TrackingNumber, string(o.Status), database.FormatTime(o.CreatedAt), o.Version, string(doc))
	if database.IsUniqueViolation(err) {
		return ports.ErrOrderExists
	}
	if err != nil {
		return err
	}

	for _, productID := range o.ProductIDs() {
		if _, err := ex.ExecContext(ctx,
			`INSERT INTO order_products (order_id, product_id) VALUES (?, ?)`, o.ID, productID); err != nil {
			return err
		}
	}
	return nil
}

// Get implements ports.OrderRepository.
func (r *SQLRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	o, _, err := r.load(ctx, `SELECT version, document FROM orders WHERE id = ?`, id)
	return o, err
}

// GetByTrackingNumber implements ports.OrderRepository.
func (r *SQLRepository) GetByTrackingNumber(ctx context.Context, number string) (domain.Order, error) {
	o, _, err := r.load(ctx, `SELECT version, document FROM orders WHERE tracking_number = ?`, number)
	return o, err
}

func (r *SQLRepository) load(ctx context.Context, query string, arg string) (domain.Order, int64, error) {
	o, version, err := database.LoadDocument[domain.Order](ctx, r.db, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, 0, ports.ErrOrderNotFound
	}
	return o, version, err
}

// ListByCustomer implements ports.OrderRepository.
func (r *SQLRepository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return database.ScanDocuments[domain.Order](ctx, r.db,
		`SELECT document FROM orders WHERE customer_id = ? ORDER BY created_at, id`, customerID)
}

// Update implements ports.OrderRepository with an optimistic version check.
func (r *SQLRepository) Update(ctx context.Context, id string, fn func(*domain.Order) error) (domain.Order, error) {
	var out domain.Order
	err := database.Retry(ctx, database.DefaultAttempts, func() error {
		o, version, err := r.load(ctx, `SELECT version, document FROM orders WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if err := fn(&o); err != nil {
			return err
		}
		o.Version = version + 1

		doc, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("encode order: %w", err)
		}
		if err := database.ExecVersioned(ctx, r.db,
			`UPDATE orders SET status = ?, document = ?, version = ? WHERE id = ? AND version = ?`,
			string(o.Status), string(doc), o.Version, id, version); err != nil {
			return err
		}
		out = o
		return nil
	})
	if errors.Is(err, database.ErrStaleVersion) {
		return domain.Order{}, ports.ErrConflict
	}
	return out, err
}

// HasOpenOrders implements ports.OrderRepository.
func (r *SQLRepository) HasOpenOrders(ctx context.Context, productID string) (bool, error) {
	args := []any{productID}
	var marks []string
	for _, s := range domain.AllStatuses {
		if s.Terminal() {
			args = append(args, string(s))
			marks = append(marks, "?")
		}
	}

	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM order_products p JOIN orders o ON o.id = p.order_id
		 WHERE p.product_id = ? AND o.status NOT IN (`+strings.Join(marks, ", ")+`)`,
		args...).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
