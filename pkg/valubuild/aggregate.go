package valubuild

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/eunmann/ssurgo-agg-db/pkg/groupstream"
	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
	"github.com/eunmann/ssurgo-agg-db/pkg/muagg"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Method selects the component-to-map-unit reduction of the aggregate
// command.
type Method int

const (
	MethodWeightedAverage Method = iota
	MethodDominantCondition
	MethodDominantComponent
	MethodMinimum
	MethodMaximum
	MethodPercentPresent
	MethodLeastLimiting
	MethodMostLimiting
)

var methodNames = map[Method]string{
	MethodWeightedAverage:   "wtavg",
	MethodDominantCondition: "domcond",
	MethodDominantComponent: "domcomp",
	MethodMinimum:           "min",
	MethodMaximum:           "max",
	MethodPercentPresent:    "pctpresent",
	MethodLeastLimiting:     "leastlimiting",
	MethodMostLimiting:      "mostlimiting",
}

func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod resolves a method flag value.
func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown aggregation method %q", s)
}

// RateFunc attaches the value under reduction to one component. The
// returned row's Comp field is overwritten by the runner.
type RateFunc func(survey.Component) muagg.Rated

// AggConfig tunes one run of the aggregate command.
type AggConfig struct {
	Method Method

	// Target is the class PercentPresent counts.
	Target string

	// Tie picks the winning side of a dominant-condition percent tie.
	Tie muagg.TieBreak
	// Domain supplies category ordinals for the tie-break. Nil means an
	// empty domain that coins ordinals in first-seen order.
	Domain *muagg.DomainSequence

	// Rule, Filter, and NullRating shape the interpretation reductions.
	Rule       muagg.RuleType
	Filter     muagg.FuzzyFilter
	NullRating float64
}

// Aggregate reduces every map unit in the component stream to one result
// row. Empty groups still produce a row: a map unit with no contributing
// component emits the method's null result, never an error.
func Aggregate(ctx context.Context, open func() (survey.ComponentReader, error), rate RateFunc, cfg AggConfig, sink survey.ResultWriter) (int64, error) {
	comps, err := open()
	if err != nil {
		return 0, fmt.Errorf("open components: %w", err)
	}
	defer comps.Close()

	log := logging.WithPhase("aggregate")
	start := time.Now()

	domain := cfg.Domain
	if domain == nil {
		domain = muagg.NewDomainSequence(nil, log)
	}

	var rows int64
	err = groupstream.Each(
		func() (survey.Component, error) {
			if err := ctx.Err(); err != nil {
				return survey.Component{}, err
			}
			return comps.Read()
		},
		func(c survey.Component) string { return c.MuKey },
		func(g groupstream.Group[survey.Component]) error {
			rated := make([]muagg.Rated, len(g.Rows))
			for i, c := range g.Rows {
				rated[i] = rate(c)
				rated[i].Comp = c
			}
			res := reduceGroup(g.Key, rated, cfg, domain)
			if err := sink.Write(res); err != nil {
				return fmt.Errorf("write result for %s: %w", g.Key, err)
			}
			rows++
			return nil
		},
	)
	if err != nil {
		return rows, err
	}

	logging.PhaseComplete(log, "aggregate", time.Since(start)).
		Str("method", cfg.Method.String()).
		Int64("map_units", rows).
		Log("aggregation complete")

	return rows, nil
}

// reduceGroup applies the configured method to one map unit's rated rows.
func reduceGroup(muKey string, rated []muagg.Rated, cfg AggConfig, domain *muagg.DomainSequence) survey.AggResult {
	res := survey.AggResult{
		MuKey: muKey,
		Value: math.NaN(),
		Seq:   math.NaN(),
	}

	switch cfg.Method {
	case MethodWeightedAverage:
		res.Value, res.Pct = muagg.WeightedAverage(rated)

	case MethodDominantCondition:
		if class, pct, ok := muagg.DominantCondition(rated, domain, cfg.Tie); ok {
			res.Label = class
			res.Pct = pct
			res.Seq = float64(domain.Lookup(class))
		}

	case MethodDominantComponent:
		if dom, ok := muagg.DominantComponent(rated); ok {
			res.Label = dom.CoKey
			res.Pct = dom.Pct
		}

	case MethodMinimum:
		if v, pct, ok := muagg.Minimum(rated); ok {
			res.Value = v
			res.Pct = pct
		}

	case MethodMaximum:
		if v, pct, ok := muagg.Maximum(rated); ok {
			res.Value = v
			res.Pct = pct
		}

	case MethodPercentPresent:
		res.Pct, res.Label = muagg.PercentPresent(rated, cfg.Target)

	case MethodLeastLimiting, MethodMostLimiting:
		method := muagg.LeastLimiting
		if cfg.Method == MethodMostLimiting {
			method = muagg.MostLimiting
		}
		if winner, pct, ok := muagg.InterpReduce(rated, method, cfg.Rule, cfg.Filter, cfg.NullRating); ok {
			res.Value = winner.Value
			res.Label = winner.Class
			res.Pct = pct
		}
	}

	return res
}
