package horizonagg

import (
	"math"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Unpopulated is the category bucket horizons with no categorical value
// fall under in dominant-category mode.
const Unpopulated = "unpopulated"

// WeightedMean aggregates a numeric horizon property over caller-specified
// layers as a thickness-weighted mean.
type WeightedMean struct {
	layers []survey.DepthInterval
	cells  []depthcalc.Cell
}

// NewWeightedMean returns an aggregator over the given layers.
func NewWeightedMean(layers []survey.DepthInterval) *WeightedMean {
	w := &WeightedMean{
		layers: layers,
		cells:  make([]depthcalc.Cell, len(layers)),
	}
	for i := range w.cells {
		w.cells[i] = depthcalc.NaNCell()
	}
	return w
}

// Observe folds one horizon in. A NaN value contributes overlap thickness
// but no value, keeping the layer's weight honest for horizons that were
// measured but not for this property.
func (w *WeightedMean) Observe(h survey.DepthInterval, value float64) {
	for i, layer := range w.layers {
		t := depthcalc.Overlap(layer, h)
		w.cells[i].Add(depthcalc.Cell{Thickness: t, Value: t * value})
	}
}

// Mean returns the weighted mean for layer i, NaN when the layer saw no
// value or no thickness.
func (w *WeightedMean) Mean(i int) float64 {
	c := w.cells[i]
	if math.IsNaN(c.Thickness) || c.Thickness == 0 {
		return math.NaN()
	}
	return c.Value / c.Thickness
}

// Cell returns layer i's raw accumulator.
func (w *WeightedMean) Cell(i int) depthcalc.Cell {
	return w.cells[i]
}

// ExtremeKind selects which end Extreme keeps.
type ExtremeKind int

const (
	// MinValue keeps the smallest observed value per layer.
	MinValue ExtremeKind = iota
	// MaxValue keeps the largest.
	MaxValue
)

// Extreme keeps the extreme property value among horizons overlapping each
// layer. Horizons with no value for the property are skipped.
type Extreme struct {
	layers []survey.DepthInterval
	kind   ExtremeKind
	best   []float64
}

// NewExtreme returns an aggregator over the given layers.
func NewExtreme(layers []survey.DepthInterval, kind ExtremeKind) *Extreme {
	e := &Extreme{
		layers: layers,
		kind:   kind,
		best:   make([]float64, len(layers)),
	}
	for i := range e.best {
		e.best[i] = math.NaN()
	}
	return e
}

// Observe folds one horizon in.
func (e *Extreme) Observe(h survey.DepthInterval, value float64) {
	if math.IsNaN(value) {
		return
	}
	for i, layer := range e.layers {
		if math.IsNaN(depthcalc.Overlap(layer, h)) {
			continue
		}
		switch {
		case math.IsNaN(e.best[i]):
			e.best[i] = value
		case e.kind == MinValue && value < e.best[i]:
			e.best[i] = value
		case e.kind == MaxValue && value > e.best[i]:
			e.best[i] = value
		}
	}
}

// Value returns the extreme for layer i, NaN when no overlapping horizon
// carried the property.
func (e *Extreme) Value(i int) float64 {
	return e.best[i]
}

// DominantCategory picks, per layer, the categorical value covering the
// most overlap thickness. Ties go to the category seen first, which is
// deterministic because horizons arrive ordered by depth.
type DominantCategory struct {
	layers []survey.DepthInterval
	sums   []map[string]float64
	order  [][]string
}

// NewDominantCategory returns an aggregator over the given layers.
func NewDominantCategory(layers []survey.DepthInterval) *DominantCategory {
	d := &DominantCategory{
		layers: layers,
		sums:   make([]map[string]float64, len(layers)),
		order:  make([][]string, len(layers)),
	}
	for i := range d.sums {
		d.sums[i] = make(map[string]float64)
	}
	return d
}

// Observe folds one horizon in. An empty category is bucketed under
// Unpopulated.
func (d *DominantCategory) Observe(h survey.DepthInterval, category string) {
	if category == "" {
		category = Unpopulated
	}
	for i, layer := range d.layers {
		t := depthcalc.Overlap(layer, h)
		if math.IsNaN(t) {
			continue
		}
		if _, seen := d.sums[i][category]; !seen {
			d.order[i] = append(d.order[i], category)
		}
		d.sums[i][category] += t
	}
}

// Dominant returns the winning category and its summed thickness for layer
// i. ok is false when the layer saw no horizon.
func (d *DominantCategory) Dominant(i int) (category string, thickness float64, ok bool) {
	for _, cat := range d.order[i] {
		t := d.sums[i][cat]
		if !ok || t > thickness {
			category, thickness, ok = cat, t, true
		}
	}
	return category, thickness, ok
}
