package parquetio

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// horizonRow is the parquet layout of one chorizon snapshot row, using the
// same column names the sources read so a sorted snapshot round-trips.
type horizonRow struct {
	Cokey  string   `parquet:"cokey"`
	Chkey  string   `parquet:"chkey"`
	Master string   `parquet:"desgnmaster,optional"`
	Top    *float64 `parquet:"hzdept_r,optional"`
	Bottom *float64 `parquet:"hzdepb_r,optional"`
	Sand   *float64 `parquet:"sandtotal_r,optional"`
	Silt   *float64 `parquet:"silttotal_r,optional"`
	Clay   *float64 `parquet:"claytotal_r,optional"`
	OM     *float64 `parquet:"om_r,optional"`
	Db     *float64 `parquet:"dbthirdbar_r,optional"`
	EC     *float64 `parquet:"ec_r,optional"`
	PH     *float64 `parquet:"ph1to1h2o_r,optional"`
	AWC    *float64 `parquet:"awc_r,optional"`
}

// HorizonFileWriter streams horizon rows to a parquet file readable by
// OpenHorizons. The sort command uses it to persist engine-ordered
// snapshots.
type HorizonFileWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[horizonRow]
	count  int64
	closed bool
}

// NewHorizonFileWriter creates a horizon snapshot writer at the given path.
func NewHorizonFileWriter(path string) (*HorizonFileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create horizon file: %w", err)
	}
	return &HorizonFileWriter{
		file:   f,
		writer: parquet.NewGenericWriter[horizonRow](f),
	}, nil
}

// Write appends one horizon row.
func (w *HorizonFileWriter) Write(h survey.Horizon) error {
	rows := [1]horizonRow{{
		Cokey:  h.CoKey,
		Chkey:  h.ChKey,
		Master: h.Master,
		Top:    opt(h.Depth.Top),
		Bottom: opt(h.Depth.Bottom),
		Sand:   opt(h.Sand),
		Silt:   opt(h.Silt),
		Clay:   opt(h.Clay),
		OM:     opt(h.OM),
		Db:     opt(h.Db),
		EC:     opt(h.EC),
		PH:     opt(h.PH),
		AWC:    opt(h.AWC),
	}}
	if _, err := w.writer.Write(rows[:]); err != nil {
		return fmt.Errorf("write horizon row: %w", err)
	}
	w.count++
	return nil
}

// WriteAll drains a horizon reader into the file.
func (w *HorizonFileWriter) WriteAll(r survey.HorizonReader) error {
	for {
		h, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := w.Write(h); err != nil {
			return err
		}
	}
}

// Count returns the number of rows written.
func (w *HorizonFileWriter) Count() int64 {
	return w.count
}

// Close flushes the parquet footer and closes the file.
func (w *HorizonFileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close horizon file: %w", err)
	}
	return nil
}
