/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/acronis/go-mlbroker/netutil"
)

// DB is the subset of *pgxpool.Pool used by the journal.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

var _ DB = (*pgxpool.Pool)(nil)

const createTableSQL = `CREATE TABLE IF NOT EXISTS broker_job_outcomes (
	id          UUID PRIMARY KEY,
	destination TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	status_code INTEGER,
	error       TEXT,
	queued_at   TIMESTAMPTZ NOT NULL,
	sent_at     TIMESTAMPTZ,
	finished_at TIMESTAMPTZ NOT NULL
)`

const insertRecordSQL = `INSERT INTO broker_job_outcomes
	(id, destination, outcome, status_code, error, queued_at, sent_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

// Open creates a PostgreSQL connection pool and checks that the database is reachable.
func Open(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns) //nolint:gosec // max conns is a small number
	if len(cfg.DNSServers) != 0 {
		resolver := netutil.NewRoundRobinResolver(cfg.DNSServers, netutil.DefaultDNSDialTimeout)
		poolCfg.ConnConfig.LookupFunc = resolver.LookupHost
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the job outcomes table if it doesn't exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create broker_job_outcomes table: %w", err)
	}
	return nil
}

// isRetryableError reports whether a failed insert may succeed if repeated.
// Server-side errors are retried only for connection, resource and transaction rollback classes.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return true
	}
	if len(pgErr.Code) < 2 {
		return false
	}
	switch pgErr.Code[:2] {
	case "08", "40", "53", "57":
		return true
	}
	return false
}
