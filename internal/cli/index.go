package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/eunmann/ssurgo-agg-db/internal/config"
	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
	"github.com/eunmann/ssurgo-agg-db/pkg/muindex"
	"github.com/eunmann/ssurgo-agg-db/pkg/parquetio"
)

func runIndex(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	artifact := fs.String("artifact", "", "summary artifact to index (parquet)")
	outDir := fs.String("out", "", "directory for index files")
	verify := fs.Bool("verify", false, "verify an existing index instead of building")
	dir := fs.String("dir", "", "index directory to verify")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verify {
		if *dir == "" {
			return errors.New("-verify needs -dir")
		}
		return verifyIndex(*dir)
	}
	if *artifact == "" {
		return errors.New("-artifact is required")
	}
	if *outDir == "" {
		return errors.New("-out is required")
	}
	return buildIndex(ctx, *artifact, *outDir)
}

func buildIndex(ctx context.Context, artifact, outDir string) error {
	start := time.Now()

	keys, err := parquetio.SummaryKeys(artifact)
	if err != nil {
		return fmt.Errorf("read artifact keys: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b := muindex.NewBuilder()
	for _, k := range keys {
		if err := b.Add(k); err != nil {
			return fmt.Errorf("add key %q: %w", k, err)
		}
	}
	if err := b.Build(outDir); err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	log := logging.WithPhase("index")
	logging.PhaseComplete(log, "index_build", time.Since(start)).
		Int("keys", b.Count()).
		Str("out", outDir).
		Log("index built")
	return nil
}

func verifyIndex(dir string) error {
	start := time.Now()

	ix, err := muindex.Open(dir)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer ix.Close()

	if err := ix.Verify(); err != nil {
		return fmt.Errorf("verify index: %w", err)
	}

	log := logging.WithPhase("index")
	logging.PhaseComplete(log, "index_verify", time.Since(start)).
		Uint64("keys", ix.Count()).
		Str("dir", dir).
		Log("index verified")
	return nil
}
