package muagg

import "math"

// InterpMethod selects which end of the rating range represents the map
// unit when reducing rule-based interpretation ratings.
type InterpMethod int

const (
	// LeastLimiting reports the rating of the component best suited to
	// the rated use.
	LeastLimiting InterpMethod = iota
	// MostLimiting reports the rating of the component worst suited.
	MostLimiting
)

// RuleType states what direction the rating scale runs.
type RuleType int

const (
	// Limitation rules rate severity: higher is worse.
	Limitation RuleType = iota
	// Suitability rules rate fitness: higher is better.
	Suitability
)

// FuzzyFilter selects which components count toward the reported percent
// once a rating is chosen.
type FuzzyFilter int

const (
	// FilterByClass counts components sharing the chosen rating class.
	FilterByClass FuzzyFilter = iota
	// FilterByValue counts components matching the exact fuzzy value.
	FilterByValue
)

// pickMax is the fixed method-by-rule-type table: whether the reduction
// takes the numeric maximum of the component ratings.
var pickMax = map[InterpMethod]map[RuleType]bool{
	LeastLimiting: {Limitation: false, Suitability: true},
	MostLimiting:  {Limitation: true, Suitability: false},
}

// InterpReduce selects one component rating for the map unit per method
// and rule type, then sums the percent of components agreeing with it
// under the fuzzy filter. Components without a rating are compared at
// nullRating so they order predictably instead of crashing the reduction.
// ok is false when no component contributed.
func InterpReduce(rows []Rated, method InterpMethod, rule RuleType, filter FuzzyFilter, nullRating float64) (winner Rated, pct float64, ok bool) {
	wantMax := pickMax[method][rule]

	effective := func(r *Rated) float64 {
		if math.IsNaN(r.Value) {
			return nullRating
		}
		return r.Value
	}

	var best float64
	for i := range rows {
		r := &rows[i]
		if !r.contributes() {
			continue
		}
		v := effective(r)
		switch {
		case !ok:
			winner, best, ok = *r, v, true
		case wantMax && v > best:
			winner, best = *r, v
		case !wantMax && v < best:
			winner, best = *r, v
		}
	}
	if !ok {
		return Rated{}, 0, false
	}

	for i := range rows {
		r := &rows[i]
		if !r.contributes() {
			continue
		}
		switch filter {
		case FilterByClass:
			if r.Class == winner.Class {
				pct += r.Comp.Pct
			}
		case FilterByValue:
			if effective(r) == best {
				pct += r.Comp.Pct
			}
		}
	}
	return winner, pct, true
}
