package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/eunmann/ssurgo-agg-db/internal/config"
	"github.com/eunmann/ssurgo-agg-db/pkg/extsort"
	"github.com/eunmann/ssurgo-agg-db/pkg/fileutil"
	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
	"github.com/eunmann/ssurgo-agg-db/pkg/parquetio"
)

func runSort(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sort", flag.ContinueOnError)
	inPath := fs.String("in", "", "unordered horizon snapshot (parquet)")
	outPath := fs.String("out", "", "sorted horizon snapshot to write (parquet)")
	tmpDir := fs.String("tmp", cfg.Build.TmpDir, "directory for sort run files")
	maxRows := fs.Int("max-rows", 0, "max rows buffered per run (0 = sized from RAM)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("-in is required")
	}
	if *outPath == "" {
		return errors.New("-out is required")
	}

	scfg := extsort.DefaultConfig()
	if *tmpDir != "" {
		scfg.TmpDir = *tmpDir
	}
	if *maxRows > 0 {
		scfg.MaxRowsPerRun = *maxRows
	}

	src, err := parquetio.OpenHorizons(*inPath)
	if err != nil {
		return fmt.Errorf("open horizons: %w", err)
	}

	start := time.Now()
	sorter := extsort.NewSorter(scfg)
	defer sorter.Cleanup()

	if err := sorter.AddRows(ctx, src); err != nil {
		src.Close()
		return fmt.Errorf("read horizons: %w", err)
	}
	if err := src.Close(); err != nil {
		return fmt.Errorf("close input: %w", err)
	}

	sorted, err := sorter.Sorted(ctx)
	if err != nil {
		return fmt.Errorf("merge runs: %w", err)
	}
	defer sorted.Close()

	// Write beside the final path so the rename is atomic; a killed sort
	// never leaves a truncated artifact.
	var rows int64
	err = fileutil.WriteTmpThenMove(filepath.Dir(*outPath), *outPath, func(tmpPath string) error {
		out, err := parquetio.NewHorizonFileWriter(tmpPath)
		if err != nil {
			return err
		}
		if err := out.WriteAll(sorted); err != nil {
			out.Close()
			return fmt.Errorf("write sorted snapshot: %w", err)
		}
		rows = out.Count()
		return out.Close()
	})
	if err != nil {
		return err
	}

	log := logging.WithPhase("sort")
	logging.PhaseComplete(log, "sort", time.Since(start)).
		Int64("rows", rows).
		Int("runs", sorter.RunCount()).
		Str("out", *outPath).
		Log("snapshot sorted")
	return nil
}
