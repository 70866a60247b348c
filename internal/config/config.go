// Package config reads the environment-driven defaults behind the CLI
// flags. Every key is prefixed SSURGOAGG_; flags override whatever the
// environment supplies.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/eunmann/ssurgo-agg-db/pkg/membudget"
)

// Config holds the environment-level application configuration.
type Config struct {
	Log      LogConfig
	Database DatabaseConfig
	Build    BuildConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Debug bool
	// Human forces pretty console output; otherwise the CLI decides from
	// the terminal.
	Human bool
}

// DatabaseConfig holds the snapshot database connections.
type DatabaseConfig struct {
	// SQLitePath is the default SQLite snapshot database path.
	SQLitePath string
	// PostgresDSN is the postgres:// connection string, empty when
	// PostgreSQL is not in play.
	PostgresDSN string
	PoolMin     int
	PoolMax     int
}

// BuildConfig holds pipeline tuning defaults.
type BuildConfig struct {
	Workers int
	// MemBudget is a human-readable size ("8GB"); empty means a budget
	// sized from system RAM.
	MemBudget string
	// TmpDir is where sort runs and temp artifacts land; empty means the
	// system temp directory.
	TmpDir string
}

// Load reads configuration from SSURGOAGG_-prefixed environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SSURGOAGG")

	v.SetDefault("LOG_DEBUG", false)
	v.SetDefault("LOG_HUMAN", false)
	v.SetDefault("SQLITE_PATH", "")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("PG_POOL_MIN", 1)
	v.SetDefault("PG_POOL_MAX", 4)
	v.SetDefault("WORKERS", 0)
	v.SetDefault("MEM_BUDGET", "")
	v.SetDefault("TMP_DIR", "")

	v.AutomaticEnv()

	cfg := &Config{
		Log: LogConfig{
			Debug: v.GetBool("LOG_DEBUG"),
			Human: v.GetBool("LOG_HUMAN"),
		},
		Database: DatabaseConfig{
			SQLitePath:  v.GetString("SQLITE_PATH"),
			PostgresDSN: v.GetString("POSTGRES_DSN"),
			PoolMin:     v.GetInt("PG_POOL_MIN"),
			PoolMax:     v.GetInt("PG_POOL_MAX"),
		},
		Build: BuildConfig{
			Workers:   v.GetInt("WORKERS"),
			MemBudget: v.GetString("MEM_BUDGET"),
			TmpDir:    v.GetString("TMP_DIR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("SSURGOAGG_PG_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("SSURGOAGG_PG_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("SSURGOAGG_PG_POOL_MIN must not exceed SSURGOAGG_PG_POOL_MAX")
	}
	if c.Build.Workers < 0 {
		return fmt.Errorf("SSURGOAGG_WORKERS must be non-negative")
	}
	if c.Build.MemBudget != "" {
		if _, err := membudget.ParseHumanSize(c.Build.MemBudget); err != nil {
			return fmt.Errorf("SSURGOAGG_MEM_BUDGET: %w", err)
		}
	}
	return nil
}

// Budget resolves the configured memory budget, falling back to a budget
// sized from system RAM.
func (c *Config) Budget() *membudget.Budget {
	if c.Build.MemBudget != "" {
		if n, err := membudget.ParseHumanSize(c.Build.MemBudget); err == nil {
			return membudget.New(membudget.Config{TotalBytes: n, Source: membudget.BudgetSourceEnv})
		}
	}
	return membudget.NewFromSystemRAM()
}
