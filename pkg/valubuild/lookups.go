package valubuild

import (
	"context"
	"fmt"
	"io"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/logging"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// loadLookups streams the side tables into a Lookups set: restriction
// depths, commodity ratings, component flags, wet-phase map units, organic
// textures, and fragment volumes. Returns the number of components whose
// incomplete rating vectors were pruned.
func loadLookups(ctx context.Context, src Sources) (*survey.Lookups, int, error) {
	log := logging.WithPhase("load_lookups")
	l := survey.NewLookups()

	restrictions, err := src.Restrictions()
	if err != nil {
		return nil, 0, fmt.Errorf("open restrictions: %w", err)
	}
	err = drain(ctx, restrictions.Read, restrictions.Close, func(r survey.Restriction) {
		l.AddRestriction(r)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read restrictions: %w", err)
	}

	interps, err := src.Interps()
	if err != nil {
		return nil, 0, fmt.Errorf("open interps: %w", err)
	}
	err = drain(ctx, interps.Read, interps.Close, func(ci survey.CropInterp) {
		l.AddInterp(ci)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read interps: %w", err)
	}
	pruned := l.PruneIncompleteInterps()
	if len(pruned) > 0 {
		log.Warn().
			Int("components", len(pruned)).
			Msg("pruned incomplete commodity rating vectors")
	}

	components, err := src.Components()
	if err != nil {
		return nil, 0, fmt.Errorf("open components: %w", err)
	}
	err = drain(ctx, components.Read, components.Close, func(c survey.Component) {
		l.AddComponent(&c)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read components: %w", err)
	}

	mapUnits, err := src.MapUnits()
	if err != nil {
		return nil, 0, fmt.Errorf("open map units: %w", err)
	}
	err = drain(ctx, mapUnits.Read, mapUnits.Close, func(mu survey.MapUnit) {
		l.AddMapUnit(mu)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read map units: %w", err)
	}

	textures, err := src.Textures()
	if err != nil {
		return nil, 0, fmt.Errorf("open textures: %w", err)
	}
	err = drain(ctx, textures.Read, textures.Close, func(tx survey.TextureRow) {
		l.AddTexture(tx)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read textures: %w", err)
	}

	fragments, err := src.Fragments()
	if err != nil {
		return nil, 0, fmt.Errorf("open fragments: %w", err)
	}
	err = drain(ctx, fragments.Read, fragments.Close, func(fr survey.FragmentRow) {
		l.AddFragVol(fr.ChKey, depthcalc.FragRowVolume(fr.RV, fr.Low, fr.High))
	})
	if err != nil {
		return nil, 0, fmt.Errorf("read fragments: %w", err)
	}

	log.Debug().
		Int("restricted_components", len(l.RootRestrictionDepth)).
		Int("rated_components", len(l.NCCPI)).
		Int("organic_horizons", len(l.OrganicHz)).
		Int("wet_phase_map_units", len(l.WetPhaseMukeys)).
		Msg("lookups loaded")

	return l, len(pruned), nil
}

// drain reads a row stream to io.EOF, closing it on every path.
func drain[T any](ctx context.Context, read func() (T, error), closeFn func() error, fn func(T)) error {
	defer closeFn()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fn(row)
	}
}
