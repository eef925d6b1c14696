// Package db wraps a pgxpool.Pool and applies the gateway's embedded SQL
// migrations at startup. There is no ORM and no code-generated query layer
// here: every store package (pkg/store, pkg/etl, pkg/embedding, ...) writes
// its own SQL against DBTX, in the manner of wisbric-nightowl's hand-rolled
// Store types (pkg/runbook/store.go) rather than tarsy's Ent client.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"

	stdsql "database/sql"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for migrate
)

//go:embed migrations
var migrationsFS embed.FS

// DBTX is the minimal surface every store package depends on instead of a
// concrete *pgxpool.Pool or *pgxpool.Tx, so stores work unchanged inside a
// transaction (pattern grounded in wisbric-nightowl's internal/db.DBTX).
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client owns the pool and exposes it as a DBTX plus transaction helpers.
type Client struct {
	Pool *pgxpool.Pool
}

// New opens a pgx connection pool against databaseURL, sized per
// maxOpenConns/maxIdleConns, pings it, and applies embedded migrations.
func New(ctx context.Context, databaseURL string, maxOpenConns, maxIdleConns int) (*Client, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = int32(maxOpenConns)
	if maxIdleConns > 0 && int32(maxIdleConns) < poolCfg.MinConns {
		poolCfg.MinConns = int32(maxIdleConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("opening connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}

	return &Client{Pool: pool}, nil
}

// Close releases every pooled connection.
func (c *Client) Close() {
	c.Pool.Close()
}

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise (and on panic, via the deferred Rollback no-op after
// Commit).
func (c *Client) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := c.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// runMigrations applies every embedded *.sql migration using a short-lived
// database/sql handle; golang-migrate needs database/sql, not pgxpool, so
// this is separate from the pool used for application queries.
func runMigrations(databaseURL string) error {
	sqlDB, err := stdsql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "pgx", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}
