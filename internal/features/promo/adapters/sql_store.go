package adapters

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kmerzone/internal/core/database"
	"kmerzone/internal/features/promo/domain"
	"kmerzone/internal/features/promo/ports"

	"github.com/shopspring/decimal"
)

const promoColumns = `code, seller, kind, value, min_purchase, expires_at, max_uses, uses, created_at`

// SQLStore implements ports.PromoCodeStore on the promo_codes table.
type SQLStore struct {
	db *database.DB
}

// NewSQLStore creates a store backed by db.
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPromo(row rowScanner) (domain.PromoCode, error) {
	var (
		p         domain.PromoCode
		kind      string
		value     string
		minimum   sql.NullString
		expiresAt sql.NullString
		maxUses   sql.NullInt64
		createdAt string
	)
	if err := row.Scan(&p.Code, &p.Seller, &kind, &value, &minimum, &expiresAt, &maxUses, &p.Uses, &createdAt); err != nil {
		return domain.PromoCode{}, err
	}

	p.Kind = domain.DiscountKind(kind)
	var err error
	if p.Value, err = decimal.NewFromString(value); err != nil {
		return domain.PromoCode{}, fmt.Errorf("decode value: %w", err)
	}
	if minimum.Valid {
		m, err := decimal.NewFromString(minimum.String)
		if err != nil {
			return domain.PromoCode{}, fmt.Errorf("decode min_purchase: %w", err)
		}
		p.MinPurchase = &m
	}
	if expiresAt.Valid {
		t, err := database.ParseTime(expiresAt.String)
		if err != nil {
			return domain.PromoCode{}, fmt.Errorf("decode expires_at: %w", err)
		}
		p.ExpiresAt = &t
	}
	if maxUses.Valid {
		n := int(maxUses.Int64)
		p.MaxUses = &n
	}
	if p.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return domain.PromoCode{}, fmt.Errorf("decode created_at: %w", err)
	}
	return p, nil
}

func nullableColumns(p domain.PromoCode) (minimum, expiresAt sql.NullString, maxUses sql.NullInt64) {
	if p.MinPurchase != nil {
		minimum = sql.NullString{String: p.MinPurchase.String(), Valid: true}
	}
	if p.ExpiresAt != nil {
		expiresAt = sql.NullString{String: database.FormatTime(*p.ExpiresAt), Valid: true}
	}
	if p.MaxUses != nil {
		maxUses = sql.NullInt64{Int64: int64(*p.MaxUses), Valid: true}
	}
	return minimum, expiresAt, maxUses
}

// Find implements ports.PromoCodeRegistry.
func (r *SQLStore) Find(ctx context.Context, code string) (domain.PromoCode, error) {
	p, err := scanPromo(r.db.QueryRowContext(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PromoCode{}, ports.ErrPromoCodeNotFound
	}
	return p, err
}

// Create implements ports.PromoCodeStore.
func (r *SQLStore) Create(ctx context.Context, p domain.PromoCode) error {
	minimum, expiresAt, maxUses := nullableColumns(p)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO promo_codes (`+promoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Code, p.Seller, string(p.Kind), p.Value.String(), minimum, expiresAt, maxUses, p.Uses, database.FormatTime(p.CreatedAt))
	if database.IsUniqueViolation(err) {
		return ports.ErrPromoCodeExists
	}
	return err
}

// Update implements ports.PromoCodeStore. The write is guarded by uses = 0 so a
// redemption racing the edit wins and the edit reports the code as locked.
func (r *SQLStore) Update(ctx context.Context, code string, fn func(*domain.PromoCode) error) (domain.PromoCode, error) {
	current, err := r.Find(ctx, code)
	if err != nil {
		return domain.PromoCode{}, err
	}
	if current.Uses > 0 {
		return domain.PromoCode{}, domain.ErrPromoCodeLocked
	}

	next := current.Clone()
	if err := fn(&next); err != nil {
		return domain.PromoCode{}, err
	}
	next.Code = current.Code
	next.Uses = current.Uses

	minimum, expiresAt, maxUses := nullableColumns(next)
	err = database.ExecVersioned(ctx, r.db,
		`UPDATE promo_codes SET seller = ?, kind = ?, value = ?, min_purchase = ?, expires_at = ?, max_uses = ?
		 WHERE code = ? AND uses = 0`,
		next.Seller, string(next.Kind), next.Value.String(), minimum, expiresAt, maxUses, code)
	if errors.Is(err, database.ErrStaleVersion) {
		return domain.PromoCode{}, domain.ErrPromoCodeLocked
	}
	if err != nil {
		return domain.PromoCode{}, err
	}
	return next, nil
}

// Redeem implements ports.PromoCodeStore.
func (r *SQLStore) Redeem(ctx context.Context, code string) error {
	return RedeemTx(ctx, r.db, code)
}

// RedeemTx counts one use through ex, which may be a transaction. The guard and
// the increment are a single statement.
func RedeemTx(ctx context.Context, ex database.Executor, code string) error {
	err := database.ExecVersioned(ctx, ex,
		`UPDATE promo_codes SET uses = uses + 1 WHERE code = ? AND (max_uses IS NULL OR uses < max_uses)`,
		code)
	if !errors.Is(err, database.ErrStaleVersion) {
		return err
	}

	var n int
	if err := ex.QueryRowContext(ctx, `SELECT COUNT(*) FROM promo_codes WHERE code = ?`, code).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrPromoCodeNotFound
	}
	return ports.ErrUsageLimitReached
}

// ListBySeller implements ports.PromoCodeStore.
func (r *SQLStore) ListBySeller(ctx context.Context, seller string) ([]domain.PromoCode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+promoColumns+` FROM promo_codes WHERE seller = ? ORDER BY code`, seller)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PromoCode
	for rows.Next() {
		p, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
