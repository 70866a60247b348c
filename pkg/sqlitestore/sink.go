package sqlitestore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Result table names.
const (
	SummaryTable = "mu_summary"
	AggTable     = "mu_agg"
)

// maxSQLVars keeps multi-row batches under SQLite's host parameter limit.
const maxSQLVars = 900

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
			parts[i] = c + " REAL"
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
		dst = append(dst, arg(s.AWS[i]))
	}
	for i := 0; i < survey.NumStandardLayers; i++ {
		dst = append(dst, arg(s.AWSThick[i]))
	}
	dst = append(dst, arg(s.AWSCompPct))
	for i := 0; i < survey.NumStandardLayers; i++ {
		dst = append(dst, arg(s.SOC[i]))
	}
	for i := 0; i < survey.NumStandardLayers; i++ {
		dst = append(dst, arg(s.SOCThick[i]))
	}
	dst = append(dst,
		arg(s.SOCCompPct),
		arg(s.NCCPI[survey.CropCorn]),
		arg(s.NCCPI[survey.CropSoybeans]),
		arg(s.NCCPI[survey.CropCotton]),
		arg(s.NCCPI[survey.CropSmallGrains]),
		arg(s.NCCPI[survey.CropOverall]),
		arg(s.EarthyMajorPct),
		arg(s.RootZoneDepth),
		arg(s.RootZoneAWS),
		arg(s.Droughty),
		arg(s.PWSL),
		arg(s.CompPctSum),
		s.DominantKey,
		arg(s.DominantPct),
	)
	return dst
}

// batchInserter accumulates rows and writes them as multi-row INSERTs
// inside a single transaction, sized to stay under the SQLite host
// parameter limit.
type batchInserter struct {
	db        *sql.DB
	table     string
	cols      []string
	batchRows int

	tx      *sql.Tx
	stmt    *sql.Stmt // multi-row statement for full batches
	pending []interface{}
	rows    int
	total   int64
}

func newBatchInserter(db *sql.DB, table string, cols []string) (*batchInserter, error) {
	batchRows := maxSQLVars / len(cols)
	if batchRows < 1 {
		batchRows = 1
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	b := &batchInserter{
		db:        db,
		table:     table,
		cols:      cols,
		batchRows: batchRows,
		tx:        tx,
		pending:   make([]interface{}, 0, batchRows*len(cols)),
	}

	stmt, err := tx.Prepare(b.insertSQL(batchRows))
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare batch insert: %w", err)
	}
	b.stmt = stmt

	return b, nil
}

func (b *batchInserter) insertSQL(rows int) string {
	oneRow := "(" + strings.Repeat("?,", len(b.cols)-1) + "?)"
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(b.cols, ", "))
	sb.WriteString(") VALUES ")
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(oneRow)
	}
	return sb.String()
}

// add queues one row's args (already in column order).
func (b *batchInserter) add(args []interface{}) error {
	b.pending = append(b.pending, args...)
	b.rows++
	if b.rows >= b.batchRows {
		return b.flushFull()
	}
	return nil
}

func (b *batchInserter) flushFull() error {
	if _, err := b.stmt.Exec(b.pending...); err != nil {
		return fmt.Errorf("insert batch into %s: %w", b.table, err)
	}
	b.total += int64(b.rows)
	b.pending = b.pending[:0]
	b.rows = 0
	return nil
}

// close flushes the remainder row by row and commits.
func (b *batchInserter) close() error {
	if b.rows > 0 {
		if _, err := b.tx.Exec(b.insertSQL(b.rows), b.pending...); err != nil {
			b.abort()
			return fmt.Errorf("insert remainder into %s: %w", b.table, err)
		}
		b.total += int64(b.rows)
		b.rows = 0
		b.pending = b.pending[:0]
	}

	b.stmt.Close()
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("commit %s inserts: %w", b.table, err)
	}
	b.tx = nil
	return nil
}

// abort rolls the transaction back, discarding uncommitted rows.
func (b *batchInserter) abort() {
	if b.stmt != nil {
		b.stmt.Close()
		b.stmt = nil
	}
	if b.tx != nil {
		_ = b.tx.Rollback()
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
func (s *Store) NewSummaryWriter() (*SummaryTableWriter, error) {
	b, err := newBatchInserter(s.db, SummaryTable, summaryColumns())
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

// Count returns the number of rows committed or queued so far.
func (w *SummaryTableWriter) Count() int64 {
	return w.b.total + int64(w.b.rows)
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
func (s *Store) NewResultWriter(method string) (*ResultTableWriter, error) {
	b, err := newBatchInserter(s.db, AggTable, aggColumns)
	if err != nil {
		return nil, err
	}
	return &ResultTableWriter{b: b, method: method}, nil
}

// Write queues one result row.
func (w *ResultTableWriter) Write(r survey.AggResult) error {
	return w.b.add([]interface{}{
		r.MuKey, w.method, arg(r.Pct), arg(r.Value), r.Label, arg(r.Seq),
	})
}

// Count returns the number of rows committed or queued so far.
func (w *ResultTableWriter) Count() int64 {
	return w.b.total + int64(w.b.rows)
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
