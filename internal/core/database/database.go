package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kmerzone/internal/core/config"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Driver names registered by the imported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Executor is the subset of *sql.DB / *sql.Tx used by repositories.
// Queries are written with '?' placeholders and rewritten per dialect.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a connection pool together with its dialect.
type DB struct {
	pool   *sql.DB
	driver string
}

// Open connects to the database selected by cfg.StoreDriver and verifies it with a ping.
func Open(cfg *config.AppConfig) (*DB, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return OpenSQLite(cfg.Database.SQLitePath)
	case config.StorePostgres:
		return OpenPostgres(cfg.Database)
	default:
		return nil, fmt.Errorf("store driver %q has no SQL database", cfg.StoreDriver)
	}
}

// OpenSQLite opens a sqlite database. SQLite has a single writer, so the pool
// is pinned to one connection; this also keeps ":memory:" databases shared.
func OpenSQLite(dsn string) (*DB, error) {
	pool, err := sql.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pool.SetMaxOpenConns(1)

	return ping(&DB{pool: pool, driver: DriverSQLite})
}

// OpenPostgres opens a Postgres pool through lib/pq.
func OpenPostgres(cfg config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	pool, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pool.SetMaxOpenConns(20)
	pool.SetMaxIdleConns(10)
	pool.SetConnMaxLifetime(time.Hour)

	return ping(&DB{pool: pool, driver: DriverPostgres})
}

func ping(db *DB) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.pool.PingContext(ctx); err != nil {
		_ = db.pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return db, nil
}

// Driver reports the active dialect.
func (d *DB) Driver() string { return d.driver }

// Close closes the pool.
func (d *DB) Close() error { return d.pool.Close() }

// ExecContext implements Executor.
func (d *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.pool.ExecContext(ctx, Rebind(d.driver, query), args...)
}

// QueryContext implements Executor.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.pool.QueryContext(ctx, Rebind(d.driver, query), args...)
}

// QueryRowContext implements Executor.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return d.pool.QueryRowContext(ctx, Rebind(d.driver, query), args...)
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
// fn must only use the Executor it is given.
func (d *DB) WithTx(ctx context.Context, fn func(tx Executor) error) error {
	tx, err := d.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(txExecutor{tx: tx, driver: d.driver}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("tx commit: %w", err)
	}
	committed = true
	return nil
}

type txExecutor struct {
	tx     *sql.Tx
	driver string
}

func (t txExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, Rebind(t.driver, query), args...)
}

func (t txExecutor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, Rebind(t.driver, query), args...)
}

func (t txExecutor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, Rebind(t.driver, query), args...)
}

// Rebind rewrites '?' placeholders into the numbered form Postgres expects.
// Queries in this repository never contain a literal '?'.
func Rebind(driver, query string) string {
	if driver != DriverPostgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a primary-key or unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// timeLayout sorts lexicographically for UTC values, which lets range filters
// compare TEXT columns in both dialects.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in the sortable UTC layout used by every time column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// ParseTime reverses FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
