// Package repository is the Postgres-backed Channel Repository: the single
// module permitted to read or write organizations, employees, payment
// channels, work sessions, payment events, notifications, and balance
// corrections. All multi-row transitions run inside WithTransaction, which
// serializes per-channel writes via row-level locking.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/xahau-payroll/payroll-engine/internal/config"
	"github.com/xahau-payroll/payroll-engine/internal/payrollerr"
)

// executor unifies *sql.DB and *sql.Tx so repository methods can run against
// either a bare connection or an open transaction.
type executor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repository is the top-level handle; outside a transaction its methods run
// directly against the pooled *sql.DB.
type Repository struct {
	db *sql.DB
}

// Open connects to Postgres per cfg, configures the pool, verifies
// connectivity, and creates the schema if it does not already exist.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Repository, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &Repository{db: db}
	if err := r.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return r, nil
}

// Close closes the underlying connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id BIGSERIAL PRIMARY KEY,
		escrow_wallet TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS employees (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		worker_wallet TEXT NOT NULL,
		hourly_rate NUMERIC(28,8) NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS payment_channels (
		id BIGSERIAL PRIMARY KEY,
		channel_id TEXT UNIQUE,
		organization_id BIGINT NOT NULL REFERENCES organizations(id),
		employee_id BIGINT NOT NULL REFERENCES employees(id),
		hourly_rate NUMERIC(28,8) NOT NULL,
		escrow_funded_amount NUMERIC(28,8) NOT NULL,
		off_chain_accumulated_balance NUMERIC(28,8) NOT NULL DEFAULT 0,
		on_chain_balance NUMERIC(28,8) NOT NULL DEFAULT 0,
		legacy_accumulated_balance NUMERIC(28,8),
		settle_delay_seconds BIGINT NOT NULL,
		cancel_after_ripple_time BIGINT,
		expiration_ripple_time BIGINT,
		last_ledger_sync TIMESTAMPTZ,
		status TEXT NOT NULL,
		closure_tx_hash TEXT,
		public_key TEXT NOT NULL,
		imported BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		closed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS work_sessions (
		id BIGSERIAL PRIMARY KEY,
		employee_id BIGINT NOT NULL REFERENCES employees(id),
		channel_id BIGINT NOT NULL REFERENCES payment_channels(id),
		clock_in TIMESTAMPTZ NOT NULL,
		clock_out TIMESTAMPTZ,
		hours NUMERIC(28,6),
		status TEXT NOT NULL,
		closing_reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		channel_id BIGINT NOT NULL REFERENCES payment_channels(id),
		tx_hash TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount_drops BIGINT NOT NULL,
		result_code TEXT NOT NULL,
		ledger_index BIGINT NOT NULL DEFAULT 0,
		observed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGSERIAL PRIMARY KEY,
		recipient_party TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS balance_corrections (
		id BIGSERIAL PRIMARY KEY,
		channel_id BIGINT NOT NULL REFERENCES payment_channels(id),
		previous_balance NUMERIC(28,8) NOT NULL,
		new_balance NUMERIC(28,8) NOT NULL,
		reason TEXT NOT NULL,
		corrected_by TEXT NOT NULL,
		corrected_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Tx is a Repository bound to an open transaction. All row-level locking
// (SELECT ... FOR UPDATE) methods are only exposed here: callers must be
// inside a transaction to take a lock, matching §5's "serialized via
// row-level locking for the entire transition computation".
type Tx struct {
	tx *sql.Tx
}

// WithTransaction runs fn inside a new transaction, committing on success
// and rolling back on error or panic, following the teacher's recover/
// rollback/commit shape for transactional work.
func (r *Repository) WithTransaction(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, beginErr := r.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return fmt.Errorf("failed to begin transaction: %w", beginErr)
	}

	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			sqlTx.Rollback()
			return
		}
		err = sqlTx.Commit()
	}()

	err = fn(&Tx{tx: sqlTx})
	return err
}

// lockErrFrom converts a lock-acquisition failure (Postgres surfaces these
// as a generic driver error under NOWAIT, or the caller observes
// sql.ErrNoRows after a SKIP LOCKED read) into the typed RowLockedError.
func lockErrFrom(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &payrollerr.RowLockedError{}
	}
	return err
}
