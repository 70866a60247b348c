package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Result table names, shared with the SQLite adapter.
const (
	SummaryTable = "mu_summary"
	AggTable     = "mu_agg"
)

// batchRows is how many queued INSERTs go to the server per round trip.
const batchRows = 500

// summaryColumns returns the summary table columns in insert order: the
// original VALU table names, so downstream queries port unchanged.
func summaryColumns() []string {
	cols := []string{"mukey"}
	for i := 0; i < survey.NumStandardLayers; i++ {
		cols = append(cols, "aws"+survey.LayerTag(i))
	}
	for i := 0; i < survey.NumStandardLayers; i++ {
		cols = append(cols, "tk"+survey.LayerTag(i)+"a")
	}
	cols = append(cols, "musumcpcta")
	for i := 0; i < survey.NumStandardLayers; i++ {
		cols = append(cols, "soc"+survey.LayerTag(i))
	}
	for i := 0; i < survey.NumStandardLayers; i++ {
		cols = append(cols, "tk"+survey.LayerTag(i)+"s")
	}
	cols = append(cols,
		"musumcpcts",
		"nccpi3corn", "nccpi3soy", "nccpi3cot", "nccpi3sg", "nccpi3all",
		"pctearthmc",
		"rootznemc", "rootznaws", "droughty",
		"pwsl1pomu", "musumcpct",
		"domcokey", "domcomppct",
	)
	return cols
}

// summaryColumnDDL renders the CREATE TABLE column list.
func summaryColumnDDL() string {
	cols := summaryColumns()
	parts := make([]string, len(cols))
	for i, c := range cols {
		switch c {
		case "mukey":
			parts[i] = "mukey TEXT PRIMARY KEY"
		case "domcokey":
			parts[i] = "domcokey TEXT"
		default:
			parts[i] = c + " DOUBLE PRECISION"
		}
	}
	return strings.Join(parts, ",\n\t\t\t")
}

// summaryArgs appends one summary row's values in summaryColumns order.
// Output rounding is applied here, at the sink.
func summaryArgs(dst []interface{}, s survey.MapUnitSummary) []interface{} {
	s = s.Rounded()

	dst = append(dst, s.MuKey)
	for i := 0; i < survey.NumStandardLayers; i++ {
		dst = append(dst, nanToNil(s.AWS[i]))
	}
	for i := 0; i < survey.NumStandardLayers; i++ {
		dst = append(dst, nanToNil(s.AWSThick[i]))
	}
	dst = append(dst, nanToNil(s.AWSCompPct))
	for i := 0; i < survey.NumStandardLayers; i++ {
		dst = append(dst, nanToNil(s.SOC[i]))
	}
	for i := 0; i < survey.NumStandardLayers; i++ {
		dst = append(dst, nanToNil(s.SOCThick[i]))
	}
	dst = append(dst,
		nanToNil(s.SOCCompPct),
		nanToNil(s.NCCPI[survey.CropCorn]),
		nanToNil(s.NCCPI[survey.CropSoybeans]),
		nanToNil(s.NCCPI[survey.CropCotton]),
		nanToNil(s.NCCPI[survey.CropSmallGrains]),
		nanToNil(s.NCCPI[survey.CropOverall]),
		nanToNil(s.EarthyMajorPct),
		nanToNil(s.RootZoneDepth),
		nanToNil(s.RootZoneAWS),
		nanToNil(s.Droughty),
		nanToNil(s.PWSL),
		nanToNil(s.CompPctSum),
		s.DominantKey,
		nanToNil(s.DominantPct),
	)
	return dst
}

// insertSQL renders a single-row parameterized INSERT for a table.
func insertSQL(table string, cols []string) string {
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(params, ", "))
}

// batchInserter queues rows into a pgx batch and sends them to the server
// in rounds, all inside one transaction.
type batchInserter struct {
	ctx   context.Context
	tx    pgx.Tx
	sql   string
	batch *pgx.Batch
	total int64
}

func newBatchInserter(ctx context.Context, s *Store, table string, cols []string) (*batchInserter, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &batchInserter{
		ctx:   ctx,
		tx:    tx,
		sql:   insertSQL(table, cols),
		batch: &pgx.Batch{},
	}, nil
}

// add queues one row's args (already in column order).
func (b *batchInserter) add(args []interface{}) error {
	b.batch.Queue(b.sql, args...)
	if b.batch.Len() >= batchRows {
		return b.flush()
	}
	return nil
}

func (b *batchInserter) flush() error {
	if b.batch.Len() == 0 {
		return nil
	}
	n := b.batch.Len()
	if err := b.tx.SendBatch(b.ctx, b.batch).Close(); err != nil {
		return fmt.Errorf("send insert batch: %w", err)
	}
	b.total += int64(n)
	b.batch = &pgx.Batch{}
	return nil
}

// close flushes the remainder and commits.
func (b *batchInserter) close() error {
	if err := b.flush(); err != nil {
		b.abort()
		return err
	}
	if err := b.tx.Commit(b.ctx); err != nil {
		return fmt.Errorf("commit inserts: %w", err)
	}
	b.tx = nil
	return nil
}

// abort rolls the transaction back, discarding uncommitted rows.
func (b *batchInserter) abort() {
	if b.tx != nil {
		_ = b.tx.Rollback(b.ctx)
		b.tx = nil
	}
}

// SummaryTableWriter streams map unit summaries into the summary table.
type SummaryTableWriter struct {
	b      *batchInserter
	args   []interface{}
	closed bool
}

// NewSummaryWriter starts a transactional writer into the summary table.
func (s *Store) NewSummaryWriter(ctx context.Context) (*SummaryTableWriter, error) {
	b, err := newBatchInserter(ctx, s, SummaryTable, summaryColumns())
	if err != nil {
		return nil, err
	}
	return &SummaryTableWriter{b: b}, nil
}

// Write queues one summary row.
func (w *SummaryTableWriter) Write(sum survey.MapUnitSummary) error {
	w.args = summaryArgs(w.args[:0], sum)
	return w.b.add(w.args)
}

// Count returns the number of rows sent or queued so far.
func (w *SummaryTableWriter) Count() int64 {
	return w.b.total + int64(w.b.batch.Len())
}

// Close flushes remaining rows and commits the transaction.
func (w *SummaryTableWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.b.close()
}

// Abort discards all uncommitted rows.
func (w *SummaryTableWriter) Abort() {
	w.closed = true
	w.b.abort()
}

// ResultTableWriter streams generic aggregation results into the agg
// table, tagged with the method that produced them.
type ResultTableWriter struct {
	b      *batchInserter
	method string
	closed bool
}

var aggColumns = []string{"mukey", "method", "comppct", "value", "label", "seq"}

// NewResultWriter starts a transactional writer into the agg table. Method
// names the reducer that produced the rows.
func (s *Store) NewResultWriter(ctx context.Context, method string) (*ResultTableWriter, error) {
	b, err := newBatchInserter(ctx, s, AggTable, aggColumns)
	if err != nil {
		return nil, err
	}
	return &ResultTableWriter{b: b, method: method}, nil
}

// Write queues one result row.
func (w *ResultTableWriter) Write(r survey.AggResult) error {
	return w.b.add([]interface{}{
		r.MuKey, w.method, nanToNil(r.Pct), nanToNil(r.Value), r.Label, nanToNil(r.Seq),
	})
}

// Count returns the number of rows sent or queued so far.
func (w *ResultTableWriter) Count() int64 {
	return w.b.total + int64(w.b.batch.Len())
}

// Close flushes remaining rows and commits the transaction.
func (w *ResultTableWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.b.close()
}

// Abort discards all uncommitted rows.
func (w *ResultTableWriter) Abort() {
	w.closed = true
	w.b.abort()
}
