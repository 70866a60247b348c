package muagg

import (
	"math"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Rated is one component carrying the value under reduction. Value is NaN
// when the component has no numeric value; Class is empty when it has no
// categorical one. Classes optionally holds a whole value set for percent
// present; when nil, Class alone is consulted.
type Rated struct {
	Comp    survey.Component
	Value   float64
	Class   string
	Classes []string
}

// contributes reports whether the component takes part in any sum. A
// missing or zero percent composition excludes it everywhere.
func (r *Rated) contributes() bool {
	return !math.IsNaN(r.Comp.Pct) && r.Comp.Pct > 0
}

// TieBreak selects which side wins a dominant-condition percent tie.
type TieBreak int

const (
	// Higher awards ties to the category with the larger ordinal.
	Higher TieBreak = iota
	// Lower awards ties to the category with the smaller ordinal.
	Lower
)

// WeightedAverage returns the percent-weighted mean of the component
// values and the percent that contributed. Components without a value are
// left out of both sums; a zero recorded value still counts.
func WeightedAverage(rows []Rated) (value, pct float64) {
	var sum, pctSum float64
	for i := range rows {
		r := &rows[i]
		if !r.contributes() || math.IsNaN(r.Value) {
			continue
		}
		sum += r.Value * r.Comp.Pct
		pctSum += r.Comp.Pct
	}
	if pctSum == 0 {
		return math.NaN(), 0
	}
	return sum / pctSum, pctSum
}

// DominantCondition groups components by class, sums percent per class,
// and returns the class with the greatest total. A percent tie goes to the
// class whose ordinal sequence wins under tie. ok is false when no
// component contributed.
func DominantCondition(rows []Rated, seq *DomainSequence, tie TieBreak) (class string, pct float64, ok bool) {
	type group struct {
		class string
		pct   float64
		seq   int
	}
	byClass := make(map[string]int)
	var groups []group
	for i := range rows {
		r := &rows[i]
		if !r.contributes() {
			continue
		}
		gi, seen := byClass[r.Class]
		if !seen {
			gi = len(groups)
			byClass[r.Class] = gi
			groups = append(groups, group{class: r.Class, seq: seq.Lookup(r.Class)})
		}
		groups[gi].pct += r.Comp.Pct
	}
	if len(groups) == 0 {
		return "", 0, false
	}

	best := groups[0]
	for _, g := range groups[1:] {
		switch {
		case g.pct > best.pct:
			best = g
		case g.pct == best.pct:
			if tie == Higher && g.seq > best.seq {
				best = g
			}
			if tie == Lower && g.seq < best.seq {
				best = g
			}
		}
	}
	return best.class, best.pct, true
}

// DominantComponent returns the contributing component with the largest
// percent composition. An exact percent tie keeps the earlier component
// unless it is a miscellaneous area and the challenger is not. ok is false
// when no component contributed.
func DominantComponent(rows []Rated) (dom survey.Component, ok bool) {
	for i := range rows {
		r := &rows[i]
		if !r.contributes() {
			continue
		}
		switch {
		case !ok, r.Comp.Pct > dom.Pct:
			dom, ok = r.Comp, true
		case r.Comp.Pct == dom.Pct && dom.Miscellaneous() && !r.Comp.Miscellaneous():
			dom = r.Comp
		}
	}
	return dom, ok
}

// Minimum returns the smallest distinct component value and the summed
// percent of the components sharing it. ok is false when no component
// carried a value.
func Minimum(rows []Rated) (value, pct float64, ok bool) {
	return extremum(rows, false)
}

// Maximum is Minimum's counterpart for the largest value.
func Maximum(rows []Rated) (value, pct float64, ok bool) {
	return extremum(rows, true)
}

func extremum(rows []Rated, wantMax bool) (value, pct float64, ok bool) {
	pctByValue := make(map[float64]float64)
	for i := range rows {
		r := &rows[i]
		if !r.contributes() || math.IsNaN(r.Value) {
			continue
		}
		pctByValue[r.Value] += r.Comp.Pct
		switch {
		case !ok:
			value, ok = r.Value, true
		case wantMax && r.Value > value:
			value = r.Value
		case !wantMax && r.Value < value:
			value = r.Value
		}
	}
	if !ok {
		return math.NaN(), 0, false
	}
	return value, pctByValue[value], true
}

// PercentPresent sums the percent of components whose class set contains
// target. Map units with no qualifying component report (0, ""), never a
// null row.
func PercentPresent(rows []Rated, target string) (pct float64, label string) {
	for i := range rows {
		r := &rows[i]
		if !r.contributes() || !r.hasClass(target) {
			continue
		}
		pct += r.Comp.Pct
	}
	if pct == 0 {
		return 0, ""
	}
	return pct, target
}

func (r *Rated) hasClass(target string) bool {
	if r.Classes != nil {
		for _, c := range r.Classes {
			if c == target {
				return true
			}
		}
		return false
	}
	return r.Class != "" && r.Class == target
}
