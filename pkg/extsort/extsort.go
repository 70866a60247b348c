// Package extsort externally sorts horizon snapshots into the order the
// aggregation engine requires.
//
// The engine consumes horizon rows grouped by component key with horizons
// in top-depth order, and never re-sorts. Survey snapshots exported from
// other tools do not always arrive that way. The sorter buffers rows to a
// bounded memory threshold, spills sorted runs to temporary files in a
// little-endian binary format, and k-way merges the runs with a heap into
// a single (component key, top depth) ordered stream.
//
// Duplicate keys are not merged; horizons are distinct rows and the merge
// is stable across runs.
package extsort

import (
	"os"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
	"github.com/eunmann/ssurgo-agg-db/pkg/sysmem"
)

// Config holds configuration for the external sorter.
type Config struct {
	// TmpDir is the directory for temporary run files.
	// If empty, os.TempDir() is used.
	TmpDir string

	// MaxRowsPerRun is the maximum number of horizon rows buffered in
	// memory before spilling a sorted run. Default: scaled from system
	// RAM, clamped to [100k, 4M].
	MaxRowsPerRun int

	// RunFileBufferSize is the buffer size for reading/writing run files.
	// Default: 4MB.
	RunFileBufferSize int
}

// Approximate in-memory footprint of one buffered horizon row: the struct
// plus its key strings.
const approxRowBytes = 200

// DefaultConfig returns a Config with sensible defaults based on the
// current machine: the run buffer targets ~10% of total RAM.
func DefaultConfig() Config {
	memResult := sysmem.Total()
	rows := int(memResult.TotalBytes / 10 / approxRowBytes)

	const minRows = 100_000
	const maxRows = 4_000_000
	if rows < minRows {
		rows = minRows
	} else if rows > maxRows {
		rows = maxRows
	}

	return Config{
		TmpDir:            os.TempDir(),
		MaxRowsPerRun:     rows,
		RunFileBufferSize: 4 * 1024 * 1024,
	}
}

// Less reports whether horizon a sorts before b in engine order:
// component key ascending, then top depth ascending.
func Less(a, b *survey.Horizon) bool {
	if a.CoKey != b.CoKey {
		return a.CoKey < b.CoKey
	}
	return a.Depth.Top < b.Depth.Top
}
