// Package postgres implements the relational schemas this copilot owns
// (§6): health_assessments, issues, metrics_snapshots, and the
// behaviour_profiles metadata row (full JSON bodies live in the object
// store, keyed by s3_key).
package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

// NewConnConfig parses connString and forces DescribeExec query
// execution mode rather than pgx's CacheStatement default. Schema
// migrations applied while this process holds open connections
// invalidate cached prepared-statement plans under CacheStatement
// ("cached plan must not change result type"); DescribeExec re-describes
// every query instead of caching it, at a small per-query cost, and
// still resolves JSONB parameter OIDs correctly.
func NewConnConfig(connString string) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}
	cfg.DefaultQueryExecMode = pgx.QueryExecModeDescribeExec
	return cfg, nil
}

// Open builds a *sqlx.DB against connString using the pgx stdlib
// driver and NewConnConfig's connection settings.
func Open(connString string) (*sqlx.DB, error) {
	cfg, err := NewConnConfig(connString)
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(stdlib.OpenDB(*cfg), "pgx"), nil
}
