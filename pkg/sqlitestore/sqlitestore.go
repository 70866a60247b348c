// Package sqlitestore reads survey snapshot tables from a SQLite database
// and writes the result tables back.
//
// The store is not a schema manager for the snapshot side: it SELECTs from
// existing tables with the ordering the engine requires and maps SQL NULL
// to NaN on scan. Only the result tables are created on open. Writes go
// through multi-row INSERT batches inside explicit transactions.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
)

// Config holds configuration for the SQLite store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
	// Synchronous sets the SQLite synchronous pragma.
	// "NORMAL" is the default (good balance of safety and speed).
	// "OFF" for maximum speed (unsafe on crash).
	// "FULL" for maximum safety.
	Synchronous string
	// MmapSize is the mmap size in bytes (default 256MB).
	MmapSize int64
	// CacheSizeKB is the cache size in KB (default 256MB).
	CacheSizeKB int
}

// DefaultConfig returns a default configuration tuned for performance.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:      dbPath,
		Synchronous: "NORMAL",
		MmapSize:    268435456, // 256MB
		CacheSizeKB: 262144,    // 256MB
	}
}

// Validate checks configuration values and returns an error for invalid
// settings.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DBPath is required")
	}
	switch c.Synchronous {
	case "", "OFF", "NORMAL", "FULL":
		// Valid values
	default:
		return fmt.Errorf("invalid Synchronous value %q: must be OFF, NORMAL, or FULL", c.Synchronous)
	}
	if c.MmapSize < 0 {
		return fmt.Errorf("MmapSize must be non-negative, got %d", c.MmapSize)
	}
	if c.CacheSizeKB < 0 {
		return fmt.Errorf("CacheSizeKB must be non-negative, got %d", c.CacheSizeKB)
	}
	return nil
}

// Store wraps a SQLite database holding survey snapshots and result tables.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Open opens a SQLite database and creates the result tables if absent.
func Open(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logging.WithPhase("sqlite_open")

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA synchronous=%s", cfg.Synchronous),
		"PRAGMA temp_store=MEMORY",
		fmt.Sprintf("PRAGMA mmap_size=%d", cfg.MmapSize),
		"PRAGMA page_size=32768",
		fmt.Sprintf("PRAGMA cache_size=-%d", cfg.CacheSizeKB),
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute pragma %q: %w", pragma, err)
		}
	}

	if err := createResultSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create result schema: %w", err)
	}

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("synchronous", cfg.Synchronous).
		Msg("opened SQLite store")

	return &Store{db: db, cfg: cfg}, nil
}

func createResultSchema(db *sql.DB) error {
	createSummary := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s
		)
	`, SummaryTable, summaryColumnDDL())

	createAgg := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			mukey TEXT NOT NULL,
			method TEXT NOT NULL,
			comppct REAL,
			value REAL,
			label TEXT,
			seq REAL
		)
	`, AggTable)

	if _, err := db.Exec(createSummary); err != nil {
		return fmt.Errorf("create %s table: %w", SummaryTable, err)
	}
	if _, err := db.Exec(createAgg); err != nil {
		return fmt.Errorf("create %s table: %w", AggTable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// nf converts a nullable SQL float to the engine's NaN convention.
func nf(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// ns converts a nullable SQL string to its zero value when NULL.
func ns(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

// arg converts an engine float to its SQL value: NaN stores as NULL.
func arg(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
