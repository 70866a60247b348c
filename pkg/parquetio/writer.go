package parquetio

import (
	"fmt"
	"math"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// opt converts a float to its nullable column value: NaN stores as null.
func opt(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// summaryRow is the parquet layout of one map unit summary, using the
// column names of the original VALU table so downstream tooling reads it
// unchanged.
type summaryRow struct {
	Mukey string `parquet:"mukey"`

	Aws0_5     *float64 `parquet:"aws0_5,optional"`
	Aws5_20    *float64 `parquet:"aws5_20,optional"`
	Aws20_50   *float64 `parquet:"aws20_50,optional"`
	Aws50_100  *float64 `parquet:"aws50_100,optional"`
	Aws100_150 *float64 `parquet:"aws100_150,optional"`
	Aws150_999 *float64 `parquet:"aws150_999,optional"`
	Aws0_20    *float64 `parquet:"aws0_20,optional"`
	Aws0_30    *float64 `parquet:"aws0_30,optional"`
	Aws0_100   *float64 `parquet:"aws0_100,optional"`
	Aws0_150   *float64 `parquet:"aws0_150,optional"`
	Aws0_999   *float64 `parquet:"aws0_999,optional"`

	Tk0_5a     *float64 `parquet:"tk0_5a,optional"`
	Tk5_20a    *float64 `parquet:"tk5_20a,optional"`
	Tk20_50a   *float64 `parquet:"tk20_50a,optional"`
	Tk50_100a  *float64 `parquet:"tk50_100a,optional"`
	Tk100_150a *float64 `parquet:"tk100_150a,optional"`
	Tk150_999a *float64 `parquet:"tk150_999a,optional"`
	Tk0_20a    *float64 `parquet:"tk0_20a,optional"`
	Tk0_30a    *float64 `parquet:"tk0_30a,optional"`
	Tk0_100a   *float64 `parquet:"tk0_100a,optional"`
	Tk0_150a   *float64 `parquet:"tk0_150a,optional"`
	Tk0_999a   *float64 `parquet:"tk0_999a,optional"`

	Musumcpcta *float64 `parquet:"musumcpcta,optional"`

	Soc0_5     *float64 `parquet:"soc0_5,optional"`
	Soc5_20    *float64 `parquet:"soc5_20,optional"`
	Soc20_50   *float64 `parquet:"soc20_50,optional"`
	Soc50_100  *float64 `parquet:"soc50_100,optional"`
	Soc100_150 *float64 `parquet:"soc100_150,optional"`
	Soc150_999 *float64 `parquet:"soc150_999,optional"`
	Soc0_20    *float64 `parquet:"soc0_20,optional"`
	Soc0_30    *float64 `parquet:"soc0_30,optional"`
	Soc0_100   *float64 `parquet:"soc0_100,optional"`
	Soc0_150   *float64 `parquet:"soc0_150,optional"`
	Soc0_999   *float64 `parquet:"soc0_999,optional"`

	Tk0_5s     *float64 `parquet:"tk0_5s,optional"`
	Tk5_20s    *float64 `parquet:"tk5_20s,optional"`
	Tk20_50s   *float64 `parquet:"tk20_50s,optional"`
	Tk50_100s  *float64 `parquet:"tk50_100s,optional"`
	Tk100_150s *float64 `parquet:"tk100_150s,optional"`
	Tk150_999s *float64 `parquet:"tk150_999s,optional"`
	Tk0_20s    *float64 `parquet:"tk0_20s,optional"`
	Tk0_30s    *float64 `parquet:"tk0_30s,optional"`
	Tk0_100s   *float64 `parquet:"tk0_100s,optional"`
	Tk0_150s   *float64 `parquet:"tk0_150s,optional"`
	Tk0_999s   *float64 `parquet:"tk0_999s,optional"`

	Musumcpcts *float64 `parquet:"musumcpcts,optional"`

	Nccpi3corn *float64 `parquet:"nccpi3corn,optional"`
	Nccpi3soy  *float64 `parquet:"nccpi3soy,optional"`
	Nccpi3cot  *float64 `parquet:"nccpi3cot,optional"`
	Nccpi3sg   *float64 `parquet:"nccpi3sg,optional"`
	Nccpi3all  *float64 `parquet:"nccpi3all,optional"`
	Pctearthmc *float64 `parquet:"pctearthmc,optional"`

	Rootznemc *float64 `parquet:"rootznemc,optional"`
	Rootznaws *float64 `parquet:"rootznaws,optional"`
	Droughty  *float64 `parquet:"droughty,optional"`

	Pwsl1pomu *float64 `parquet:"pwsl1pomu,optional"`
	Musumcpct *float64 `parquet:"musumcpct,optional"`

	Domcokey   string   `parquet:"domcokey,optional"`
	Domcomppct *float64 `parquet:"domcomppct,optional"`
}

func toSummaryRow(s survey.MapUnitSummary) summaryRow {
	s = s.Rounded()

	row := summaryRow{Mukey: s.MuKey}

	aws := [survey.NumStandardLayers]**float64{
		&row.Aws0_5, &row.Aws5_20, &row.Aws20_50, &row.Aws50_100,
		&row.Aws100_150, &row.Aws150_999, &row.Aws0_20, &row.Aws0_30,
		&row.Aws0_100, &row.Aws0_150, &row.Aws0_999,
	}
	tka := [survey.NumStandardLayers]**float64{
		&row.Tk0_5a, &row.Tk5_20a, &row.Tk20_50a, &row.Tk50_100a,
		&row.Tk100_150a, &row.Tk150_999a, &row.Tk0_20a, &row.Tk0_30a,
		&row.Tk0_100a, &row.Tk0_150a, &row.Tk0_999a,
	}
	soc := [survey.NumStandardLayers]**float64{
		&row.Soc0_5, &row.Soc5_20, &row.Soc20_50, &row.Soc50_100,
		&row.Soc100_150, &row.Soc150_999, &row.Soc0_20, &row.Soc0_30,
		&row.Soc0_100, &row.Soc0_150, &row.Soc0_999,
	}
	tks := [survey.NumStandardLayers]**float64{
		&row.Tk0_5s, &row.Tk5_20s, &row.Tk20_50s, &row.Tk50_100s,
		&row.Tk100_150s, &row.Tk150_999s, &row.Tk0_20s, &row.Tk0_30s,
		&row.Tk0_100s, &row.Tk0_150s, &row.Tk0_999s,
	}
	for i := 0; i < survey.NumStandardLayers; i++ {
		*aws[i] = opt(s.AWS[i])
		*tka[i] = opt(s.AWSThick[i])
		*soc[i] = opt(s.SOC[i])
		*tks[i] = opt(s.SOCThick[i])
	}

	row.Musumcpcta = opt(s.AWSCompPct)
	row.Musumcpcts = opt(s.SOCCompPct)

	row.Nccpi3corn = opt(s.NCCPI[survey.CropCorn])
	row.Nccpi3soy = opt(s.NCCPI[survey.CropSoybeans])
	row.Nccpi3cot = opt(s.NCCPI[survey.CropCotton])
	row.Nccpi3sg = opt(s.NCCPI[survey.CropSmallGrains])
	row.Nccpi3all = opt(s.NCCPI[survey.CropOverall])
	row.Pctearthmc = opt(s.EarthyMajorPct)

	row.Rootznemc = opt(s.RootZoneDepth)
	row.Rootznaws = opt(s.RootZoneAWS)
	row.Droughty = opt(s.Droughty)

	row.Pwsl1pomu = opt(s.PWSL)
	row.Musumcpct = opt(s.CompPctSum)

	row.Domcokey = s.DominantKey
	row.Domcomppct = opt(s.DominantPct)

	return row
}

// SummaryFileWriter streams map unit summaries to a parquet file.
type SummaryFileWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[summaryRow]
	count  int64
	closed bool
}

// NewSummaryFileWriter creates a summary artifact writer at the given path.
func NewSummaryFileWriter(path string) (*SummaryFileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create summary file: %w", err)
	}
	return &SummaryFileWriter{
		file:   f,
		writer: parquet.NewGenericWriter[summaryRow](f),
	}, nil
}

// Write appends one summary row; output rounding is applied here.
func (w *SummaryFileWriter) Write(s survey.MapUnitSummary) error {
	rows := [1]summaryRow{toSummaryRow(s)}
	if _, err := w.writer.Write(rows[:]); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of rows written.
func (w *SummaryFileWriter) Count() int64 {
	return w.count
}

// Close flushes the parquet footer and closes the file.
func (w *SummaryFileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close summary file: %w", err)
	}
	return nil
}

// resultRow is the parquet layout of one generic aggregation result.
type resultRow struct {
	Mukey string   `parquet:"mukey"`
	Pct   *float64 `parquet:"comppct,optional"`
	Value *float64 `parquet:"value,optional"`
	Label string   `parquet:"label,optional"`
	Seq   *float64 `parquet:"seq,optional"`
}

// ResultFileWriter streams generic aggregation results to a parquet file.
type ResultFileWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[resultRow]
	count  int64
	closed bool
}

// NewResultFileWriter creates an aggregation artifact writer at the path.
func NewResultFileWriter(path string) (*ResultFileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create result file: %w", err)
	}
	return &ResultFileWriter{
		file:   f,
		writer: parquet.NewGenericWriter[resultRow](f),
	}, nil
}

// Write appends one result row.
func (w *ResultFileWriter) Write(r survey.AggResult) error {
	rows := [1]resultRow{{
		Mukey: r.MuKey,
		Pct:   opt(r.Pct),
		Value: opt(r.Value),
		Label: r.Label,
		Seq:   opt(r.Seq),
	}}
	if _, err := w.writer.Write(rows[:]); err != nil {
		return fmt.Errorf("write result row: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of rows written.
func (w *ResultFileWriter) Count() int64 {
	return w.count
}

// Close flushes the parquet footer and closes the file.
func (w *ResultFileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close result file: %w", err)
	}
	return nil
}
