// Package parquetio reads survey snapshot tables from parquet files and
// writes result artifacts back to parquet.
//
// Sources detect their columns from the parquet schema by field name, so a
// snapshot can carry extra columns in any order. Numeric columns are
// nullable; null scans to NaN, matching the engine's missing-value
// convention. Writers declare optional columns and store NaN as null.
package parquetio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// tableReader streams parquet rows one row group at a time, mapping leaf
// columns by field name.
type tableReader struct {
	file     *os.File // backing file; temp when buffered from a stream
	isTemp   bool
	pq       *parquet.File
	cols     map[string]int
	rowGrps  []parquet.RowGroup
	curGrp   int
	curRows  parquet.Rows
	rowBuf   []parquet.Row
	bufIdx   int
	bufLen   int
}

// openTable opens a parquet file from disk.
func openTable(path string) (*tableReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pq, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	return newTableReader(f, false, pq), nil
}

// openTableFromStream buffers a non-seekable stream to a temp file, then
// opens it; parquet requires random access. The stream is closed.
func openTableFromStream(r io.ReadCloser) (*tableReader, error) {
	tempFile, err := os.CreateTemp("", "ssurgo-snapshot-*.parquet")
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	written, err := io.Copy(tempFile, r)
	r.Close()
	if err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, fmt.Errorf("buffer parquet data: %w", err)
	}

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	pq, err := parquet.OpenFile(tempFile, written)
	if err != nil {
		tempFile.Close()
		os.Remove(tempFile.Name())
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	return newTableReader(tempFile, true, pq), nil
}

func newTableReader(f *os.File, isTemp bool, pq *parquet.File) *tableReader {
	cols := make(map[string]int)
	for i, field := range pq.Schema().Fields() {
		cols[field.Name()] = i
	}

	return &tableReader{
		file:    f,
		isTemp:  isTemp,
		pq:      pq,
		cols:    cols,
		rowGrps: pq.RowGroups(),
		curGrp:  -1,
		rowBuf:  make([]parquet.Row, 1024),
	}
}

// col returns the column index for a schema field, -1 when absent.
func (r *tableReader) col(name string) int {
	if i, ok := r.cols[name]; ok {
		return i
	}
	return -1
}

// require resolves column indexes, failing if any named column is missing.
func (r *tableReader) require(names ...string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = r.col(name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("parquet schema missing %q column", name)
		}
	}
	return idx, nil
}

// next returns the next row, reading ahead a row group at a time.
// Returns io.EOF after the last row.
func (r *tableReader) next() (parquet.Row, error) {
	for {
		if r.bufIdx < r.bufLen {
			row := r.rowBuf[r.bufIdx]
			r.bufIdx++
			return row, nil
		}

		if r.curRows != nil {
			n, err := r.curRows.ReadRows(r.rowBuf)
			if n > 0 {
				r.bufIdx = 0
				r.bufLen = n
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("read parquet rows: %w", err)
			}
			r.curRows.Close()
			r.curRows = nil
		}

		r.curGrp++
		if r.curGrp >= len(r.rowGrps) {
			return nil, io.EOF
		}
		r.curRows = r.rowGrps[r.curGrp].Rows()
	}
}

// Close releases resources, removing the temp file when the reader was
// buffered from a stream.
func (r *tableReader) Close() error {
	if r.curRows != nil {
		r.curRows.Close()
		r.curRows = nil
	}
	if r.file == nil {
		return nil
	}
	name := r.file.Name()
	err := r.file.Close()
	r.file = nil
	if r.isTemp {
		os.Remove(name)
	}
	return err
}
