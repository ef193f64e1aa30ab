package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrStaleVersion is returned when a versioned row changed between read and write.
var ErrStaleVersion = errors.New("database: stale version")

// DefaultAttempts bounds optimistic read-modify-write retries.
const DefaultAttempts = 5

// Retry calls fn until it returns anything other than ErrStaleVersion,
// the context ends, or attempts are used up.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, ErrStaleVersion) {
			return err
		}
	}
	return err
}

// LoadDocument scans a (version, document) row and decodes the JSON document.
// A missing row yields sql.ErrNoRows.
func LoadDocument[T any](ctx context.Context, ex Executor, query string, args ...any) (T, int64, error) {
	var (
		v       T
		version int64
		doc     string
	)
	if err := ex.QueryRowContext(ctx, query, args...).Scan(&version, &doc); err != nil {
		return v, 0, err
	}
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return v, 0, fmt.Errorf("decode document: %w", err)
	}
	return v, version, nil
}

// ScanDocuments decodes the single document column of every row.
func ScanDocuments[T any](ctx context.Context, ex Executor, query string, args ...any) ([]T, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ExecVersioned runs an UPDATE guarded by its version predicate and reports
// ErrStaleVersion when no row matched.
func ExecVersioned(ctx context.Context, ex Executor, query string, args ...any) error {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleVersion
	}
	return nil
}
