package valubuild

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/eunmann/ssurgo-agg-db/pkg/groupstream"
	"github.com/eunmann/ssurgo-agg-db/pkg/membudget"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// componentBytes is the reservation charged per buffered component row.
const componentBytes = uint64(unsafe.Sizeof(survey.Component{})) + 64

// muJob is one materialized map unit group handed to a worker.
type muJob struct {
	key     string
	comps   []survey.Component
	reserve uint64
}

// assembleMapUnits streams map unit groups from the component source to a
// worker pool and writes each assembled summary to the sink. Map units are
// independent, so workers run them in parallel; the sink sees rows in
// completion order, not input order.
func assembleMapUnits(
	ctx context.Context,
	src Sources,
	asm *assembler,
	sink survey.SummaryWriter,
	workers int,
	budget *membudget.Budget,
) (mapUnits, components int64, err error) {
	comps, err := src.Components()
	if err != nil {
		return 0, 0, fmt.Errorf("open components: %w", err)
	}
	defer comps.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan muJob, workers)
	results := make(chan survey.MapUnitSummary, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobs:
					if !ok {
						return
					}
					sum := asm.assemble(job.key, job.comps)
					budget.Release(job.reserve)
					select {
					case results <- sum:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	// The producer walks the ordered stream; the pool drains it. Closing
	// jobs after the last group lets the workers exit; closing results
	// after the pool unblocks the writer below.
	var produceErr error
	var produced int64
	go func() {
		defer close(jobs)
		scanner := groupstream.NewScanner(
			func() (survey.Component, error) {
				if err := ctx.Err(); err != nil {
					return survey.Component{}, err
				}
				return comps.Read()
			},
			func(c survey.Component) string { return c.MuKey },
		)
		for {
			g, err := scanner.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				produceErr = err
				cancel()
				return
			}
			reserve := uint64(len(g.Rows)) * componentBytes
			if reserve > budget.Total() {
				produceErr = fmt.Errorf("map unit %s: group of %d components exceeds memory budget", g.Key, len(g.Rows))
				cancel()
				return
			}
			// Blocking on the budget must stay cancellable: workers that
			// exit on cancel never release their queued reservations.
			for !budget.ReserveWithTimeout(reserve, 100*time.Millisecond) {
				if ctx.Err() != nil {
					return
				}
			}
			produced += int64(len(g.Rows))
			job := muJob{key: g.Key, comps: g.Rows, reserve: reserve}
			select {
			case jobs <- job:
			case <-ctx.Done():
				budget.Release(reserve)
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for sum := range results {
		mapUnits++
		if err := sink.Write(sum); err != nil {
			cancel()
			// unblock the pool before reporting
			for range results {
			}
			return mapUnits, components, fmt.Errorf("write summary: %w", err)
		}
	}

	// results is closed, so the pool and the producer are both done and
	// their variables are safe to read.
	components = produced
	if produceErr != nil {
		return mapUnits, components, produceErr
	}
	if err := ctx.Err(); err != nil {
		return mapUnits, components, err
	}
	return mapUnits, components, nil
}
