package extsort

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Sorter performs an external merge sort on horizon rows.
//
// Call AddRows one or more times to feed input, then Sorted to obtain a
// reader over the globally sorted stream. Cleanup removes any temporary
// run files and must be called even on failure.
type Sorter struct {
	cfg      Config
	buffer   []survey.Horizon
	runFiles []string
	runNum   int
}

// NewSorter creates a new external sorter.
func NewSorter(cfg Config) *Sorter {
	if cfg.MaxRowsPerRun <= 0 {
		cfg.MaxRowsPerRun = DefaultConfig().MaxRowsPerRun
	}
	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}
	return &Sorter{
		cfg:    cfg,
		buffer: make([]survey.Horizon, 0, min(cfg.MaxRowsPerRun, 64*1024)),
	}
}

// AddRows drains a horizon reader into the sorter, spilling sorted runs
// whenever the in-memory buffer fills. The reader is not closed.
func (s *Sorter) AddRows(ctx context.Context, reader survey.HorizonReader) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		h, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read horizon: %w", err)
		}

		s.buffer = append(s.buffer, h)

		if len(s.buffer) >= s.cfg.MaxRowsPerRun {
			if err := s.spill(); err != nil {
				return err
			}
		}
	}
}

// Add buffers a single horizon row, spilling a sorted run when the buffer
// fills.
func (s *Sorter) Add(h survey.Horizon) error {
	s.buffer = append(s.buffer, h)
	if len(s.buffer) >= s.cfg.MaxRowsPerRun {
		return s.spill()
	}
	return nil
}

// spill sorts the buffered rows and writes them as a run file.
func (s *Sorter) spill() error {
	if len(s.buffer) == 0 {
		return nil
	}

	runPath := filepath.Join(s.cfg.TmpDir, fmt.Sprintf("hzrun_%06d.bin", s.runNum))
	s.runNum++

	w, err := NewRunFileWriter(runPath, s.cfg.RunFileBufferSize)
	if err != nil {
		return err
	}

	if err := w.WriteSorted(s.buffer); err != nil {
		w.Close()
		os.Remove(runPath)
		return err
	}
	if err := w.Close(); err != nil {
		os.Remove(runPath)
		return err
	}

	s.runFiles = append(s.runFiles, runPath)
	s.buffer = s.buffer[:0]
	return nil
}

// RunCount returns the number of run files spilled so far.
func (s *Sorter) RunCount() int {
	return len(s.runFiles)
}

// Sorted flushes any buffered rows and returns a reader over all added
// rows in (component key, top depth) order. The reader implements
// survey.HorizonReader; Close it when done. The sorter must not be reused
// after Sorted.
func (s *Sorter) Sorted(ctx context.Context) (survey.HorizonReader, error) {
	// Everything fit in memory: sort in place and skip the file round-trip.
	if len(s.runFiles) == 0 {
		sortHorizons(s.buffer)
		return &memReader{ctx: ctx, rows: s.buffer}, nil
	}

	if err := s.spill(); err != nil {
		return nil, err
	}

	m, err := NewMergeIterator(s.runFiles, s.cfg.RunFileBufferSize)
	if err != nil {
		return nil, err
	}
	return &mergeReader{ctx: ctx, m: m}, nil
}

// Cleanup removes all temporary run files.
func (s *Sorter) Cleanup() error {
	var firstErr error
	for _, path := range s.runFiles {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}
	s.runFiles = nil
	return firstErr
}

// mergeReader adapts a MergeIterator to survey.HorizonReader, checking for
// cancellation between rows.
type mergeReader struct {
	ctx context.Context
	m   *MergeIterator
}

func (r *mergeReader) Read() (survey.Horizon, error) {
	if err := r.ctx.Err(); err != nil {
		return survey.Horizon{}, err
	}
	return r.m.Next()
}

func (r *mergeReader) Close() error {
	return r.m.Close()
}

// memReader serves the fully in-memory case.
type memReader struct {
	ctx  context.Context
	rows []survey.Horizon
	next int
}

func (r *memReader) Read() (survey.Horizon, error) {
	if err := r.ctx.Err(); err != nil {
		return survey.Horizon{}, err
	}
	if r.next >= len(r.rows) {
		return survey.Horizon{}, io.EOF
	}
	h := r.rows[r.next]
	r.next++
	return h, nil
}

func (r *memReader) Close() error {
	r.rows = nil
	return nil
}
