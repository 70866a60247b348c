// Package valubuild orchestrates the map unit summary pipeline: load the
// per-run lookup tables, reduce every component's horizons to layer
// accumulators, then assemble one summary row per map unit from its
// components on a worker pool. It also carries the generic single-property
// aggregation path behind the aggregate command.
package valubuild

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/horizonagg"
	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
	"github.com/eunmann/ssurgo-agg-db/pkg/membudget"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Config tunes a summary build.
type Config struct {
	// Workers is the number of map unit assembly goroutines.
	Workers int
	// Density decides indeterminate dense-layer tests during root zone
	// truncation.
	Density depthcalc.DensityPolicy
	// Budget bounds group materialization. Nil means a budget sized from
	// system RAM.
	Budget *membudget.Budget
}

// DefaultConfig returns a build config sized for the current machine.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.NumCPU(),
		Density: depthcalc.IndeterminateRestrictive,
	}
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	return nil
}

// Sources supplies the row streams a build consumes. Each field opens a
// fresh reader; Components is opened twice (once for the lookup pass, once
// for the assembly pass), the rest once.
type Sources struct {
	Horizons     func() (survey.HorizonReader, error)
	Components   func() (survey.ComponentReader, error)
	Restrictions func() (survey.RestrictionReader, error)
	Interps      func() (survey.InterpReader, error)
	MapUnits     func() (survey.MapUnitReader, error)
	Textures     func() (survey.TextureReader, error)
	Fragments    func() (survey.FragmentReader, error)
}

func (s *Sources) validate() error {
	switch {
	case s.Horizons == nil:
		return fmt.Errorf("horizon source is required")
	case s.Components == nil:
		return fmt.Errorf("component source is required")
	case s.Restrictions == nil:
		return fmt.Errorf("restriction source is required")
	case s.Interps == nil:
		return fmt.Errorf("interp source is required")
	case s.MapUnits == nil:
		return fmt.Errorf("map unit source is required")
	case s.Textures == nil:
		return fmt.Errorf("texture source is required")
	case s.Fragments == nil:
		return fmt.Errorf("fragment source is required")
	}
	return nil
}

// Stats reports what a build processed.
type Stats struct {
	Horizons      int64
	Components    int64
	MapUnits      int64
	PrunedInterps int
	Elapsed       time.Duration
}

// Run executes the full summary pipeline, writing one row per map unit to
// sink. The sink is not closed; the caller owns it.
func Run(ctx context.Context, src Sources, sink survey.SummaryWriter, cfg Config) (Stats, error) {
	var stats Stats
	if err := cfg.Validate(); err != nil {
		return stats, fmt.Errorf("invalid config: %w", err)
	}
	if err := src.validate(); err != nil {
		return stats, err
	}
	budget := cfg.Budget
	if budget == nil {
		budget = membudget.NewFromSystemRAM()
	}

	log := logging.WithPhase("valu_build")
	start := time.Now()

	lookups, pruned, err := loadLookups(ctx, src)
	if err != nil {
		return stats, fmt.Errorf("load lookups: %w", err)
	}
	stats.PrunedInterps = pruned

	summaries, horizons, err := summarizeHorizons(ctx, src, lookups, cfg.Density, budget)
	if err != nil {
		return stats, fmt.Errorf("summarize horizons: %w", err)
	}
	stats.Horizons = horizons
	log.Info().
		Int64("horizons", horizons).
		Int("components", len(summaries)).
		Dur("elapsed", time.Since(start)).
		Msg("horizon pass complete")

	asm := &assembler{
		lookups:   lookups,
		summaries: summaries,
	}
	mapUnits, components, err := assembleMapUnits(ctx, src, asm, sink, cfg.Workers, budget)
	if err != nil {
		return stats, fmt.Errorf("assemble map units: %w", err)
	}
	stats.MapUnits = mapUnits
	stats.Components = components
	stats.Elapsed = time.Since(start)

	logging.PhaseComplete(log, "valu_build", stats.Elapsed).
		Int64("map_units", stats.MapUnits).
		Int64("components", stats.Components).
		Int64("horizons", stats.Horizons).
		Log("summary build complete")

	return stats, nil
}

// assembler carries the read-only state shared by assembly workers.
type assembler struct {
	lookups   *survey.Lookups
	summaries map[string]horizonagg.Summary
}
