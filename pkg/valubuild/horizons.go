package valubuild

import (
	"context"
	"fmt"
	"io"
	"unsafe"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/groupstream"
	"github.com/eunmann/ssurgo-agg-db/pkg/horizonagg"
	"github.com/eunmann/ssurgo-agg-db/pkg/membudget"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// horizonBytes is the reservation charged per buffered horizon row.
const horizonBytes = uint64(unsafe.Sizeof(survey.Horizon{}))

// summarizeHorizons runs the horizon pass: one pass over the ordered
// horizon stream, reducing each component's group to its layer accumulators
// and root zone cell. Group buffers are charged against the run budget so a
// pathological component cannot exhaust memory.
func summarizeHorizons(
	ctx context.Context,
	src Sources,
	lookups *survey.Lookups,
	policy depthcalc.DensityPolicy,
	budget *membudget.Budget,
) (map[string]horizonagg.Summary, int64, error) {
	horizons, err := src.Horizons()
	if err != nil {
		return nil, 0, fmt.Errorf("open horizons: %w", err)
	}
	defer horizons.Close()

	summarizer := horizonagg.NewSummarizer(lookups, policy)
	summaries := make(map[string]horizonagg.Summary)
	var rows int64

	scanner := groupstream.NewScanner(
		func() (survey.Horizon, error) {
			if err := ctx.Err(); err != nil {
				return survey.Horizon{}, err
			}
			return horizons.Read()
		},
		func(h survey.Horizon) string { return h.CoKey },
	)
	for {
		g, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rows, err
		}

		reserve := uint64(len(g.Rows)) * horizonBytes
		if err := budget.Reserve(reserve); err != nil {
			return nil, rows, fmt.Errorf("component %s: %w", g.Key, err)
		}
		summaries[g.Key] = summarizer.Summarize(g.Key, g.Rows)
		budget.Release(reserve)
		rows += int64(len(g.Rows))
	}

	return summaries, rows, nil
}
