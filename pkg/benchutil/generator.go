// Package benchutil provides synthetic survey data generation for
// benchmarks and testing.
package benchutil

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// GeneratorConfig configures synthetic survey generation.
type GeneratorConfig struct {
	// NumMapUnits is the number of map units to generate.
	NumMapUnits int
	// ComponentsPerUnit is the average number of components per map unit.
	ComponentsPerUnit int
	// HorizonsPerComponent is the average number of horizons per component.
	HorizonsPerComponent int
	// MissingRate is the probability (0.0-1.0) that any one measured
	// property is unpopulated (NaN) on a generated horizon.
	MissingRate float64
	// Seed for reproducible generation. 0 = use default seed.
	Seed int64
}

// DefaultConfig returns a reasonable default configuration.
func DefaultConfig(numMapUnits int) GeneratorConfig {
	return GeneratorConfig{
		NumMapUnits:          numMapUnits,
		ComponentsPerUnit:    4,
		HorizonsPerComponent: 5,
		MissingRate:          0.1,
		Seed:                 BenchmarkSeed,
	}
}

// Generator generates synthetic survey rows. Rows come out already in the
// order the engine requires: components by (mukey, pct desc), horizons by
// (cokey, top).
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a new data generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Generate returns synthetic components and horizons for every map unit.
func (g *Generator) Generate() ([]survey.Component, []survey.Horizon) {
	var comps []survey.Component
	var horizons []survey.Horizon

	for mu := 0; mu < g.cfg.NumMapUnits; mu++ {
		mukey := fmt.Sprintf("mu%06d", mu)
		n := 1 + g.rng.Intn(g.cfg.ComponentsPerUnit*2-1)

		pcts := g.splitPercent(n)
		for c := 0; c < n; c++ {
			cokey := fmt.Sprintf("%s-co%02d", mukey, c)
			comp := survey.Component{
				MuKey:         mukey,
				CoKey:         cokey,
				Pct:           pcts[c],
				Name:          fmt.Sprintf("Series %d", g.rng.Intn(500)),
				Kind:          "Series",
				MajorFlag:     c == 0,
				DrainageClass: "Well drained",
			}
			if g.rng.Float64() < 0.05 {
				comp.Kind = survey.KindMiscellaneous
				comp.Name = "Rock outcrop"
			}
			comps = append(comps, comp)
			horizons = append(horizons, g.generateHorizons(cokey)...)
		}
	}

	return comps, horizons
}

// generateHorizons produces an ordered, non-overlapping profile.
func (g *Generator) generateHorizons(cokey string) []survey.Horizon {
	n := 1 + g.rng.Intn(g.cfg.HorizonsPerComponent*2-1)
	horizons := make([]survey.Horizon, 0, n)

	top := 0.0
	for i := 0; i < n; i++ {
		thickness := 5 + float64(g.rng.Intn(40))
		h := survey.Horizon{
			CoKey:  cokey,
			ChKey:  fmt.Sprintf("%s-hz%02d", cokey, i),
			Master: "A",
			Depth:  survey.DepthInterval{Top: top, Bottom: top + thickness},
			Sand:   g.maybe(20 + g.rng.Float64()*50),
			OM:     g.maybe(0.2 + g.rng.Float64()*4),
			Db:     g.maybe(1.1 + g.rng.Float64()*0.6),
			EC:     g.maybe(g.rng.Float64() * 4),
			PH:     g.maybe(4.5 + g.rng.Float64()*3),
			AWC:    g.maybe(0.05 + g.rng.Float64()*0.2),
		}
		if i > 0 {
			h.Master = "B"
		}
		if !math.IsNaN(h.Sand) {
			h.Clay = g.maybe(math.Min(100-h.Sand, g.rng.Float64()*40))
			if !math.IsNaN(h.Clay) {
				h.Silt = 100 - h.Sand - h.Clay
			} else {
				h.Silt = math.NaN()
			}
		} else {
			h.Clay = math.NaN()
			h.Silt = math.NaN()
		}
		horizons = append(horizons, h)
		top += thickness
	}

	return horizons
}

// splitPercent divides 100 percent across n components, largest first.
func (g *Generator) splitPercent(n int) []float64 {
	weights := make([]float64, n)
	sum := 0.0
	for i := range weights {
		weights[i] = 1 + g.rng.Float64()*9
		sum += weights[i]
	}
	pcts := make([]float64, n)
	for i := range pcts {
		pcts[i] = math.Round(weights[i] / sum * 100)
	}
	// largest first to match component source ordering
	for i := 1; i < n; i++ {
		for j := i; j > 0 && pcts[j] > pcts[j-1]; j-- {
			pcts[j], pcts[j-1] = pcts[j-1], pcts[j]
		}
	}
	return pcts
}

// maybe returns v, or NaN at the configured missing rate.
func (g *Generator) maybe(v float64) float64 {
	if g.rng.Float64() < g.cfg.MissingRate {
		return math.NaN()
	}
	return v
}
