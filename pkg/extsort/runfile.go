package extsort

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// RunFile format:
//
// Header (16 bytes):
//   Magic:   4 bytes  (0x53525448 = "SRTH")
//   Version: 4 bytes  (1)
//   Count:   8 bytes  (number of horizon records)
//
// Records (variable length each):
//   CoKeyLen:  2 bytes  (uint16)
//   CoKey:     N bytes
//   ChKeyLen:  2 bytes  (uint16)
//   ChKey:     N bytes
//   MasterLen: 2 bytes  (uint16)
//   Master:    N bytes
//   Props:     10 * 8 bytes (float64 bits: top, bottom, sand, silt, clay,
//              om, db, ec, ph, awc)
//
// Floats are stored as raw IEEE-754 bits so NaN (missing value) round-trips
// exactly.

const (
	runFileMagic   = 0x53525448 // "SRTH"
	runFileVersion = 1
	runFileHeader  = 16

	numHorizonFloats = 10
)

// RunFileWriter writes sorted horizon rows to a temporary run file.
type RunFileWriter struct {
	file   *os.File
	writer *bufio.Writer
	count  uint64
	path   string
	buf    []byte // reusable buffer for encoding
	closed bool
}

// NewRunFileWriter creates a new run file writer at the given path.
func NewRunFileWriter(path string, bufferSize int) (*RunFileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create run file: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = 4 * 1024 * 1024 // 4MB default
	}

	w := &RunFileWriter{
		file:   f,
		writer: bufio.NewWriterSize(f, bufferSize),
		path:   path,
		buf:    make([]byte, 256), // initial buffer
	}

	header := make([]byte, runFileHeader)
	binary.LittleEndian.PutUint32(header[0:4], runFileMagic)
	binary.LittleEndian.PutUint32(header[4:8], runFileVersion)
	binary.LittleEndian.PutUint64(header[8:16], 0) // count placeholder

	if _, err := w.writer.Write(header); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write header: %w", err)
	}

	return w, nil
}

func putString(buf []byte, s string) int {
	binary.LittleEndian.PutUint16(buf, uint16(len(s)))
	copy(buf[2:], s)
	return 2 + len(s)
}

// Write writes a single horizon row to the run file.
func (w *RunFileWriter) Write(h *survey.Horizon) error {
	recordSize := 2 + len(h.CoKey) + 2 + len(h.ChKey) + 2 + len(h.Master) +
		numHorizonFloats*8

	if len(w.buf) < recordSize {
		w.buf = make([]byte, recordSize*2)
	}

	offset := 0
	offset += putString(w.buf[offset:], h.CoKey)
	offset += putString(w.buf[offset:], h.ChKey)
	offset += putString(w.buf[offset:], h.Master)

	props := [numHorizonFloats]float64{
		h.Depth.Top, h.Depth.Bottom,
		h.Sand, h.Silt, h.Clay, h.OM, h.Db, h.EC, h.PH, h.AWC,
	}
	for _, v := range props {
		binary.LittleEndian.PutUint64(w.buf[offset:], math.Float64bits(v))
		offset += 8
	}

	if _, err := w.writer.Write(w.buf[:offset]); err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	w.count++
	return nil
}

// WriteAll writes a slice of horizon rows to the run file.
func (w *RunFileWriter) WriteAll(rows []survey.Horizon) error {
	for i := range rows {
		if err := w.Write(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// sortHorizons sorts rows into engine order: component key ascending, then
// top depth ascending. The sort is stable so equal keys keep input order.
func sortHorizons(rows []survey.Horizon) {
	slices.SortStableFunc(rows, func(a, b survey.Horizon) int {
		if a.CoKey != b.CoKey {
			if a.CoKey < b.CoKey {
				return -1
			}
			return 1
		}
		switch {
		case a.Depth.Top < b.Depth.Top:
			return -1
		case a.Depth.Top > b.Depth.Top:
			return 1
		}
		return 0
	})
}

// WriteSorted sorts the rows into engine order and writes them to the run
// file.
func (w *RunFileWriter) WriteSorted(rows []survey.Horizon) error {
	sortHorizons(rows)
	return w.WriteAll(rows)
}

// Count returns the number of records written.
func (w *RunFileWriter) Count() uint64 {
	return w.count
}

// Path returns the path to the run file.
func (w *RunFileWriter) Path() string {
	return w.path
}

// Close flushes the buffer, updates the header, and closes the file.
func (w *RunFileWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush: %w", err)
	}

	if _, err := w.file.Seek(8, 0); err != nil {
		w.file.Close()
		return fmt.Errorf("seek: %w", err)
	}

	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], w.count)
	if _, err := w.file.Write(countBuf[:]); err != nil {
		w.file.Close()
		return fmt.Errorf("update header: %w", err)
	}

	return w.file.Close()
}

// RunFileReader reads horizon rows from a run file.
type RunFileReader struct {
	file   *os.File
	reader *bufio.Reader
	count  uint64
	read   uint64
	path   string
	buf    []byte // reusable buffer for decoding
	closed bool
}

// OpenRunFile opens a run file for reading.
func OpenRunFile(path string, bufferSize int) (*RunFileReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run file: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = 4 * 1024 * 1024 // 4MB default
	}

	r := &RunFileReader{
		file:   f,
		reader: bufio.NewReaderSize(f, bufferSize),
		path:   path,
		buf:    make([]byte, 256),
	}

	header := make([]byte, runFileHeader)
	if _, err := io.ReadFull(r.reader, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}

	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != runFileMagic {
		f.Close()
		return nil, fmt.Errorf("invalid magic: got %x, want %x", magic, runFileMagic)
	}

	version := binary.LittleEndian.Uint32(header[4:8])
	if version != runFileVersion {
		f.Close()
		return nil, fmt.Errorf("unsupported version: %d", version)
	}

	r.count = binary.LittleEndian.Uint64(header[8:16])

	return r, nil
}

func (r *RunFileReader) readString() (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r.reader, lenBuf[:]); err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint16(lenBuf[:]))
	if len(r.buf) < n {
		r.buf = make([]byte, n*2)
	}
	if _, err := io.ReadFull(r.reader, r.buf[:n]); err != nil {
		return "", err
	}
	return string(r.buf[:n]), nil
}

// Read reads the next horizon row from the run file.
// Returns io.EOF when all records have been read.
func (r *RunFileReader) Read() (survey.Horizon, error) {
	var h survey.Horizon
	if r.read >= r.count {
		return h, io.EOF
	}

	var err error
	if h.CoKey, err = r.readString(); err != nil {
		return h, fmt.Errorf("read cokey: %w", err)
	}
	if h.ChKey, err = r.readString(); err != nil {
		return h, fmt.Errorf("read chkey: %w", err)
	}
	if h.Master, err = r.readString(); err != nil {
		return h, fmt.Errorf("read master: %w", err)
	}

	var propBuf [numHorizonFloats * 8]byte
	if _, err := io.ReadFull(r.reader, propBuf[:]); err != nil {
		return h, fmt.Errorf("read properties: %w", err)
	}

	var props [numHorizonFloats]float64
	for i := range props {
		props[i] = math.Float64frombits(binary.LittleEndian.Uint64(propBuf[i*8:]))
	}
	h.Depth.Top, h.Depth.Bottom = props[0], props[1]
	h.Sand, h.Silt, h.Clay = props[2], props[3], props[4]
	h.OM, h.Db, h.EC, h.PH, h.AWC = props[5], props[6], props[7], props[8], props[9]

	r.read++
	return h, nil
}

// Count returns the total number of records in the file.
func (r *RunFileReader) Count() uint64 {
	return r.count
}

// ReadCount returns the number of records read so far.
func (r *RunFileReader) ReadCount() uint64 {
	return r.read
}

// Path returns the path to the run file.
func (r *RunFileReader) Path() string {
	return r.path
}

// Close closes the run file.
func (r *RunFileReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// Remove closes and removes the run file.
func (r *RunFileReader) Remove() error {
	if err := r.Close(); err != nil {
		return err
	}
	return os.Remove(r.path)
}
