package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/eunmann/ssurgo-agg-db/internal/config"
	"github.com/eunmann/ssurgo-agg-db/pkg/parquetio"
	"github.com/eunmann/ssurgo-agg-db/pkg/pgstore"
	"github.com/eunmann/ssurgo-agg-db/pkg/sqlitestore"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
	"github.com/eunmann/ssurgo-agg-db/pkg/valubuild"
)

// storeFlags selects the snapshot store a command reads. Exactly one of
// the three must end up set; -db and -dsn default from the environment
// config so a configured store needs no flag at all.
type storeFlags struct {
	sqlite   string
	dsn      string
	snapshot string
}

func (f *storeFlags) register(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&f.sqlite, "db", cfg.Database.SQLitePath, "SQLite snapshot database path")
	fs.StringVar(&f.dsn, "dsn", cfg.Database.PostgresDSN, "PostgreSQL connection string")
	fs.StringVar(&f.snapshot, "snapshot", "", "directory of parquet snapshot tables")
}

func (f *storeFlags) validate() error {
	n := 0
	for _, v := range []string{f.sqlite, f.dsn, f.snapshot} {
		if v != "" {
			n++
		}
	}
	if n == 0 {
		return errors.New("a snapshot store is required: set -db, -dsn, or -snapshot")
	}
	if n > 1 {
		return errors.New("-db, -dsn, and -snapshot are mutually exclusive")
	}
	return nil
}

// input bundles the row sources of the selected store with its result
// table sinks. The sink constructors are nil for stores that cannot host
// result tables (a parquet snapshot directory is read-only input).
type input struct {
	src         valubuild.Sources
	summarySink func() (survey.SummaryWriter, error)
	resultSink  func(method string) (survey.ResultWriter, error)
	close       func() error
}

func openInput(ctx context.Context, cfg *config.Config, f storeFlags) (*input, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	switch {
	case f.sqlite != "":
		return openSQLiteInput(f.sqlite)
	case f.dsn != "":
		return openPostgresInput(ctx, cfg, f.dsn)
	default:
		return openSnapshotInput(f.snapshot)
	}
}

func openSQLiteInput(path string) (*input, error) {
	st, err := sqlitestore.Open(sqlitestore.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return &input{
		src: valubuild.Sources{
			Horizons:     func() (survey.HorizonReader, error) { return st.Horizons() },
			Components:   func() (survey.ComponentReader, error) { return st.Components() },
			Restrictions: func() (survey.RestrictionReader, error) { return st.Restrictions() },
			Interps:      func() (survey.InterpReader, error) { return st.Interps() },
			MapUnits:     func() (survey.MapUnitReader, error) { return st.MapUnits() },
			Textures:     func() (survey.TextureReader, error) { return st.Textures() },
			Fragments:    func() (survey.FragmentReader, error) { return st.Fragments() },
		},
		summarySink: func() (survey.SummaryWriter, error) { return st.NewSummaryWriter() },
		resultSink:  func(method string) (survey.ResultWriter, error) { return st.NewResultWriter(method) },
		close:       st.Close,
	}, nil
}

func openPostgresInput(ctx context.Context, cfg *config.Config, dsn string) (*input, error) {
	st, err := pgstore.Open(ctx, pgstore.Config{
		DSN:     dsn,
		PoolMin: cfg.Database.PoolMin,
		PoolMax: cfg.Database.PoolMax,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	return &input{
		src: valubuild.Sources{
			Horizons:     func() (survey.HorizonReader, error) { return st.Horizons(ctx) },
			Components:   func() (survey.ComponentReader, error) { return st.Components(ctx) },
			Restrictions: func() (survey.RestrictionReader, error) { return st.Restrictions(ctx) },
			Interps:      func() (survey.InterpReader, error) { return st.Interps(ctx) },
			MapUnits:     func() (survey.MapUnitReader, error) { return st.MapUnits(ctx) },
			Textures:     func() (survey.TextureReader, error) { return st.Textures(ctx) },
			Fragments:    func() (survey.FragmentReader, error) { return st.Fragments(ctx) },
		},
		summarySink: func() (survey.SummaryWriter, error) { return st.NewSummaryWriter(ctx) },
		resultSink:  func(method string) (survey.ResultWriter, error) { return st.NewResultWriter(ctx, method) },
		close:       func() error { st.Close(); return nil },
	}, nil
}

// Snapshot table file names follow the SSURGO tabular names, matching the
// columns the parquet sources expect.
func openSnapshotInput(dir string) (*input, error) {
	table := func(name string) string {
		return filepath.Join(dir, name+".parquet")
	}
	return &input{
		src: valubuild.Sources{
			Horizons:     func() (survey.HorizonReader, error) { return parquetio.OpenHorizons(table("chorizon")) },
			Components:   func() (survey.ComponentReader, error) { return parquetio.OpenComponents(table("component")) },
			Restrictions: func() (survey.RestrictionReader, error) { return parquetio.OpenRestrictions(table("corestrictions")) },
			Interps:      func() (survey.InterpReader, error) { return parquetio.OpenInterps(table("cointerp")) },
			MapUnits:     func() (survey.MapUnitReader, error) { return parquetio.OpenMapUnits(table("mapunit")) },
			Textures:     func() (survey.TextureReader, error) { return parquetio.OpenTextures(table("chtexturegrp")) },
			Fragments:    func() (survey.FragmentReader, error) { return parquetio.OpenFragments(table("chfrags")) },
		},
		close: func() error { return nil },
	}, nil
}

// multiSummaryWriter fans one summary stream out to every sink.
type multiSummaryWriter []survey.SummaryWriter

func (m multiSummaryWriter) Write(s survey.MapUnitSummary) error {
	for _, w := range m {
		if err := w.Write(s); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSummaryWriter) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// multiResultWriter fans one result stream out to every sink.
type multiResultWriter []survey.ResultWriter

func (m multiResultWriter) Write(r survey.AggResult) error {
	for _, w := range m {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func (m multiResultWriter) Close() error {
	var first error
	for _, w := range m {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
