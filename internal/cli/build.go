package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/eunmann/ssurgo-agg-db/internal/config"
	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
	"github.com/eunmann/ssurgo-agg-db/pkg/parquetio"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
	"github.com/eunmann/ssurgo-agg-db/pkg/valubuild"
)

func runBuild(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	var stores storeFlags
	stores.register(fs, cfg)
	outPath := fs.String("out", "", "parquet summary artifact path")
	toDB := fs.Bool("to-db", false, "write the summary table into the selected store")
	workers := fs.Int("workers", cfg.Build.Workers, "map unit assembly goroutines (0 = one per CPU)")
	lenient := fs.Bool("lenient-density", false, "treat undecidable dense layers as rooting-permissive")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outPath == "" && !*toDB {
		return errors.New("an output is required: set -out and/or -to-db")
	}

	in, err := openInput(ctx, cfg, stores)
	if err != nil {
		return err
	}
	defer in.close()

	if *toDB && in.summarySink == nil {
		return errors.New("-to-db needs a writable store: use -db or -dsn")
	}

	bcfg := valubuild.DefaultConfig()
	if *workers > 0 {
		bcfg.Workers = *workers
	}
	if *lenient {
		bcfg.Density = depthcalc.IndeterminateLenient
	}
	bcfg.Budget = cfg.Budget()

	var sinks multiSummaryWriter
	if *outPath != "" {
		w, err := parquetio.NewSummaryFileWriter(*outPath)
		if err != nil {
			return err
		}
		sinks = append(sinks, w)
	}
	if *toDB {
		w, err := in.summarySink()
		if err != nil {
			return err
		}
		sinks = append(sinks, w)
	}

	start := time.Now()
	stats, err := valubuild.Run(ctx, in.src, survey.SummaryWriter(sinks), bcfg)
	if err != nil {
		sinks.Close()
		return fmt.Errorf("build: %w", err)
	}
	if err := sinks.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	log := logging.WithPhase("build")
	logging.PhaseComplete(log, "build", time.Since(start)).
		Int64("map_units", stats.MapUnits).
		Int64("components", stats.Components).
		Int64("horizons", stats.Horizons).
		Int("pruned_interps", stats.PrunedInterps).
		Log("summary build complete")
	return nil
}
