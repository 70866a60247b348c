// Package cli implements the command-line interface for ssurgo-agg.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eunmann/ssurgo-agg-db/internal/config"
	"github.com/eunmann/ssurgo-agg-db/internal/logctx"
	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
	"github.com/eunmann/ssurgo-agg-db/pkg/memdiag"
)

const usage = `usage: ssurgo-agg <command> [options]

commands:
  build      run the full map unit summary pipeline
  aggregate  reduce one component property to one row per map unit
  sort       sort a horizon snapshot into (cokey, top depth) order
  index      build or verify the map unit key index over a summary artifact
  publish    upload result artifacts to S3`

// Run executes the CLI with the given arguments.
func Run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Log.Debug, cfg.Log.Human)

	// No-op unless SSURGOAGG_MEM_DEBUG=1.
	memdiag.StartGlobal()
	defer memdiag.StopGlobal()

	if len(args) == 0 {
		return errors.New(usage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Downstream phases pull this logger back out with logctx.FromContext,
	// so every row of output carries the command that produced it.
	ctx = logctx.WithLogger(ctx, logging.L().With().Str("command", args[0]).Logger())

	switch args[0] {
	case "build":
		return runBuild(ctx, cfg, args[1:])
	case "aggregate":
		return runAggregate(ctx, cfg, args[1:])
	case "sort":
		return runSort(ctx, cfg, args[1:])
	case "index":
		return runIndex(ctx, cfg, args[1:])
	case "publish":
		return runPublish(ctx, cfg, args[1:])
	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
}
