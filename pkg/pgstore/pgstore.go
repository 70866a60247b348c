// Package pgstore reads survey snapshot tables from PostgreSQL and writes
// the result tables back, the same adapter pair sqlitestore provides for
// SQLite. Queries run against an existing snapshot schema; only the result
// tables are created on open.
package pgstore

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
)

// Config holds connection settings for the PostgreSQL store.
type Config struct {
	// DSN is the postgres:// connection string.
	DSN string
	// PoolMin and PoolMax bound the connection pool.
	PoolMin int
	PoolMax int
}

// DefaultConfig returns pool settings sized for the pipeline's modest
// connection needs (one scan plus one writer at a time).
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:     dsn,
		PoolMin: 1,
		PoolMax: 4,
	}
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DSN is required")
	}
	if c.PoolMin < 0 || c.PoolMax < 1 || c.PoolMin > c.PoolMax {
		return fmt.Errorf("invalid pool bounds: min %d, max %d", c.PoolMin, c.PoolMax)
	}
	return nil
}

// Store wraps a pgx connection pool over the survey database.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates the connection pool, pings the server, and creates the
// result tables if absent.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logging.WithPhase("pg_open")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MinConns = int32(cfg.PoolMin)
	poolConfig.MaxConns = int32(cfg.PoolMax)
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Second
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.createResultSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create result schema: %w", err)
	}

	log.Info().
		Int("pool_max", cfg.PoolMax).
		Msg("opened PostgreSQL store")

	return s, nil
}

func (s *Store) createResultSchema(ctx context.Context) error {
	createSummary := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s
		)
	`, SummaryTable, summaryColumnDDL())

	createAgg := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			mukey TEXT NOT NULL,
			method TEXT NOT NULL,
			comppct DOUBLE PRECISION,
			value DOUBLE PRECISION,
			label TEXT,
			seq DOUBLE PRECISION
		)
	`, AggTable)

	if _, err := s.pool.Exec(ctx, createSummary); err != nil {
		return fmt.Errorf("create %s table: %w", SummaryTable, err)
	}
	if _, err := s.pool.Exec(ctx, createAgg); err != nil {
		return fmt.Errorf("create %s table: %w", AggTable, err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool, waiting for connections to be returned.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Pool exposes the underlying pool for maintenance queries.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// nanToNil converts an engine float to its column value: NaN stores as
// NULL. pgx maps a nil *float64 to NULL.
func nanToNil(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// nilToNaN converts a scanned nullable float to the engine's convention.
func nilToNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// emptyIfNil converts a scanned nullable text to its zero value.
func emptyIfNil(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
