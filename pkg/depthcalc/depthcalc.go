// Package depthcalc implements the depth-interval arithmetic the
// aggregation engine is built on: intersection thickness between a fixed
// layer and a horizon, NaN-preserving accumulation of (thickness, value)
// pairs, and the water storage, organic carbon, and fragment volume
// formulas applied per horizon slice.
//
// NaN stands for "no data" throughout. Accumulators start NaN and flip to
// numeric on the first real contribution; NaN plus NaN stays NaN rather
// than collapsing to zero.
package depthcalc

import (
	"math"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Overlap returns the thickness of the intersection of a fixed layer and a
// horizon interval. Pairs that do not intersect, or touch only at an edge,
// return NaN rather than 0 so accumulation can tell "no overlap" apart from
// a contribution that was measured as zero.
func Overlap(layer, horizon survey.DepthInterval) float64 {
	t := math.Min(layer.Bottom, horizon.Bottom) - math.Max(layer.Top, horizon.Top)
	if t <= 0 {
		return math.NaN()
	}
	return t
}

// AddNaN adds two quantities where NaN means "no data": NaN+NaN stays NaN,
// a single known side wins outright, two known sides add normally.
func AddNaN(base, add float64) float64 {
	if math.IsNaN(add) {
		return base
	}
	if math.IsNaN(base) {
		return add
	}
	return base + add
}

// PropertyFunc converts an overlap thickness in cm into a property amount.
// NaN thickness must map to NaN.
type PropertyFunc func(thickness float64) float64

// AWS returns the available water storage formula for one horizon: overlap
// thickness in cm times the horizon's water capacity fraction, scaled to mm.
func AWS(awc float64) PropertyFunc {
	return func(t float64) float64 {
		return t * awc * 10
	}
}

// SOC returns the organic carbon formula for one horizon: grams of carbon
// under one square meter contributed by t cm of this soil. Rock fragments
// are assumed to hold no carbon; 1.724 converts organic matter percent to
// organic carbon (van Bemmelen factor).
func SOC(om, db, fragVol float64) PropertyFunc {
	return func(t float64) float64 {
		return t * (100 - fragVol) * om / 1.724 * db
	}
}

// FragRowVolume returns the fragment volume carried by one fragment record:
// the representative value when present, otherwise the midpoint of the low
// and high estimates.
func FragRowVolume(rv, low, high float64) float64 {
	if !math.IsNaN(rv) {
		return rv
	}
	return (low + high) / 2
}

// Cell pairs the accumulated overlap thickness with the accumulated
// property amount for one depth layer. Both fields start NaN and become
// numeric once any horizon contributes.
type Cell struct {
	Thickness float64
	Value     float64
}

// NaNCell returns a cell holding no data.
func NaNCell() Cell {
	return Cell{Thickness: math.NaN(), Value: math.NaN()}
}

// Add folds another cell in, each field independently under AddNaN.
func (c *Cell) Add(o Cell) {
	c.Thickness = AddNaN(c.Thickness, o.Thickness)
	c.Value = AddNaN(c.Value, o.Value)
}

// Scale returns the cell with both fields multiplied by f. NaN stays NaN.
func (c Cell) Scale(f float64) Cell {
	return Cell{Thickness: c.Thickness * f, Value: c.Value * f}
}

// HasData reports whether either field holds a number.
func (c Cell) HasData() bool {
	return !math.IsNaN(c.Thickness) || !math.IsNaN(c.Value)
}

// Accumulate folds the overlap of one horizon with a single window into the
// cell, deriving the value from the overlap thickness.
func (c *Cell) Accumulate(window, horizon survey.DepthInterval, f PropertyFunc) {
	t := Overlap(window, horizon)
	c.Add(Cell{Thickness: t, Value: f(t)})
}

// LayerAccum accumulates one property over the standard depth layers.
type LayerAccum [survey.NumStandardLayers]Cell

// NewLayerAccum returns an accumulator with every layer empty.
func NewLayerAccum() LayerAccum {
	var a LayerAccum
	for i := range a {
		a[i] = NaNCell()
	}
	return a
}

// Accumulate folds one horizon into every standard layer it overlaps.
func (a *LayerAccum) Accumulate(horizon survey.DepthInterval, f PropertyFunc) {
	for i, layer := range survey.StandardLayers {
		t := Overlap(layer, horizon)
		a[i].Add(Cell{Thickness: t, Value: f(t)})
	}
}

// AddScaled folds another accumulator in with both fields of every layer
// weighted by factor.
func (a *LayerAccum) AddScaled(o LayerAccum, factor float64) {
	for i := range a {
		a[i].Add(o[i].Scale(factor))
	}
}

// HasData reports whether any layer holds a number.
func (a LayerAccum) HasData() bool {
	for i := range a {
		if a[i].HasData() {
			return true
		}
	}
	return false
}
