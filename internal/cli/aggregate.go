package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/eunmann/ssurgo-agg-db/internal/config"
	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
	"github.com/eunmann/ssurgo-agg-db/pkg/muagg"
	"github.com/eunmann/ssurgo-agg-db/pkg/parquetio"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
	"github.com/eunmann/ssurgo-agg-db/pkg/valubuild"
)

// cropProperties maps the interpretation property names to the commodity
// index whose fuzzy rating they aggregate.
var cropProperties = map[string]int{
	"nccpi-corn":        survey.CropCorn,
	"nccpi-soybeans":    survey.CropSoybeans,
	"nccpi-cotton":      survey.CropCotton,
	"nccpi-smallgrains": survey.CropSmallGrains,
	"nccpi-overall":     survey.CropOverall,
}

// componentProperties maps class property names to their component field.
var componentProperties = map[string]func(survey.Component) muagg.Rated{
	"comppct": func(c survey.Component) muagg.Rated {
		return muagg.Rated{Value: c.Pct}
	},
	"drainagecl": func(c survey.Component) muagg.Rated {
		return muagg.Rated{Value: math.NaN(), Class: c.DrainageClass}
	},
	"hydricrating": func(c survey.Component) muagg.Rated {
		return muagg.Rated{Value: math.NaN(), Class: c.HydricRating}
	},
	"compkind": func(c survey.Component) muagg.Rated {
		return muagg.Rated{Value: math.NaN(), Class: c.Kind}
	},
	"compname": func(c survey.Component) muagg.Rated {
		return muagg.Rated{Value: math.NaN(), Class: c.Name}
	},
	"taxorder": func(c survey.Component) muagg.Rated {
		return muagg.Rated{Value: math.NaN(), Class: c.TaxOrder}
	},
	"taxsubgrp": func(c survey.Component) muagg.Rated {
		return muagg.Rated{Value: math.NaN(), Class: c.TaxSubgroup}
	},
}

func runAggregate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("aggregate", flag.ContinueOnError)
	var stores storeFlags
	stores.register(fs, cfg)
	method := fs.String("method", "wtavg", "aggregation method: wtavg, domcond, domcomp, min, max, pctpresent, leastlimiting, mostlimiting")
	property := fs.String("property", "", "component property to reduce (e.g. comppct, drainagecl, nccpi-overall)")
	target := fs.String("target", "", "class counted by pctpresent")
	tieLower := fs.Bool("tie-lower", false, "break dominant-condition ties toward the lower ordinal")
	suitability := fs.Bool("suitability", false, "treat the interpretation scale as suitability (higher is better)")
	byValue := fs.Bool("filter-by-value", false, "count exact fuzzy value matches instead of rating class matches")
	nullRating := fs.Float64("null-rating", math.NaN(), "rating substituted for components without one")
	outPath := fs.String("out", "", "parquet result artifact path")
	toDB := fs.Bool("to-db", false, "write results into the selected store")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *property == "" {
		return errors.New("-property is required")
	}
	if *outPath == "" && !*toDB {
		return errors.New("an output is required: set -out and/or -to-db")
	}

	m, err := valubuild.ParseMethod(*method)
	if err != nil {
		return err
	}
	if err := checkMethodProperty(m, *property); err != nil {
		return err
	}
	if m == valubuild.MethodPercentPresent && *target == "" {
		return errors.New("pctpresent needs -target")
	}

	in, err := openInput(ctx, cfg, stores)
	if err != nil {
		return err
	}
	defer in.close()

	if *toDB && in.resultSink == nil {
		return errors.New("-to-db needs a writable store: use -db or -dsn")
	}

	rate, err := resolveProperty(ctx, *property, in)
	if err != nil {
		return err
	}

	acfg := valubuild.AggConfig{
		Method:     m,
		Target:     *target,
		NullRating: *nullRating,
	}
	if *tieLower {
		acfg.Tie = muagg.Lower
	}
	if *suitability {
		acfg.Rule = muagg.Suitability
	}
	if *byValue {
		acfg.Filter = muagg.FilterByValue
	}

	var sinks multiResultWriter
	if *outPath != "" {
		w, err := parquetio.NewResultFileWriter(*outPath)
		if err != nil {
			return err
		}
		sinks = append(sinks, w)
	}
	if *toDB {
		w, err := in.resultSink(m.String())
		if err != nil {
			return err
		}
		sinks = append(sinks, w)
	}

	start := time.Now()
	rows, err := valubuild.Aggregate(ctx, in.src.Components, rate, acfg, survey.ResultWriter(sinks))
	if err != nil {
		sinks.Close()
		return fmt.Errorf("aggregate: %w", err)
	}
	if err := sinks.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	log := logging.WithPhase("aggregate")
	logging.PhaseComplete(log, "aggregate", time.Since(start)).
		Str("method", m.String()).
		Str("property", *property).
		Int64("map_units", rows).
		Log("aggregation complete")
	return nil
}

// checkMethodProperty rejects method/property type mismatches before any
// store is opened: value reductions need a numeric property, condition
// reductions a categorical one.
func checkMethodProperty(m valubuild.Method, property string) error {
	_, numeric := cropProperties[property]
	numeric = numeric || property == "comppct"
	_, categorical := componentProperties[property]
	if !numeric && !categorical {
		return fmt.Errorf("unknown property %q", property)
	}

	switch m {
	case valubuild.MethodWeightedAverage, valubuild.MethodMinimum, valubuild.MethodMaximum,
		valubuild.MethodLeastLimiting, valubuild.MethodMostLimiting:
		if !numeric {
			return fmt.Errorf("method %s needs a numeric property, %q is categorical", m, property)
		}
	case valubuild.MethodDominantCondition, valubuild.MethodPercentPresent:
		if numeric {
			return fmt.Errorf("method %s needs a categorical property, %q is numeric", m, property)
		}
	}
	return nil
}

// resolveProperty turns a property name into a rating function. The
// nccpi-* properties read the interpretation stream once up front; the
// rest rate straight off component fields.
func resolveProperty(ctx context.Context, property string, in *input) (valubuild.RateFunc, error) {
	if rate, ok := componentProperties[property]; ok {
		return rate, nil
	}
	crop, ok := cropProperties[property]
	if !ok {
		return nil, fmt.Errorf("unknown property %q", property)
	}

	lk, err := loadNCCPI(ctx, in.src.Interps)
	if err != nil {
		return nil, err
	}
	return func(c survey.Component) muagg.Rated {
		r := muagg.Rated{Value: math.NaN()}
		if vec, ok := lk.NCCPI[c.CoKey]; ok {
			r.Value = vec[crop]
		}
		return r
	}, nil
}

func loadNCCPI(ctx context.Context, open func() (survey.InterpReader, error)) (*survey.Lookups, error) {
	r, err := open()
	if err != nil {
		return nil, fmt.Errorf("open interps: %w", err)
	}
	defer r.Close()

	lk := survey.NewLookups()
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ci, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read interps: %w", err)
		}
		lk.AddInterp(ci)
	}
	lk.PruneIncompleteInterps()
	return lk, nil
}
