// Package rootzone models the commodity crop root zone of one soil
// component. A resolver walks the component's horizons top to bottom,
// truncating the zone at salty, strongly acid, or overly dense horizons,
// and integrates available water storage over the depth window that
// survives. Horizon order matters: a restriction only shadows the horizons
// below it.
package rootzone

import (
	"math"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// DefaultBottomCm is the root zone floor used when no restriction record
// sits above it.
const DefaultBottomCm = 150

// Resolver accumulates the root zone water storage of one component.
// The zero value is not usable; construct with NewResolver.
type Resolver struct {
	majorEarthy bool
	exempt      bool
	policy      depthcalc.DensityPolicy

	// surface tracks the still-growing organic surface. Once a mineral
	// horizon arrives it is closed for good; later organic horizons are
	// treated as buried.
	surface   bool
	surfaceCm float64
	bottom    float64
	zone      depthcalc.Cell
}

// NewResolver returns a resolver for one component. Only major earthy
// components are scored; for all others the resolver observes horizons
// without effect and reports an unknown zone. exempt marks components
// whose organic surface is part of the scored soil (histic components).
// restrictionDepth is the shallowest root-limiting restriction, NaN when
// the component has none.
func NewResolver(majorEarthy, exempt bool, restrictionDepth float64, policy depthcalc.DensityPolicy) *Resolver {
	bottom := float64(DefaultBottomCm)
	if !math.IsNaN(restrictionDepth) {
		bottom = restrictionDepth
	}
	return &Resolver{
		majorEarthy: majorEarthy,
		exempt:      exempt,
		policy:      policy,
		surface:     !exempt,
		bottom:      bottom,
		zone:        depthcalc.NaNCell(),
	}
}

// Observe folds one horizon into the zone. Horizons must arrive ordered by
// top depth ascending. organic reports whether the horizon is organic
// material; organic horizons are exempt from the acidity and density
// triggers and, while the organic surface is still growing, raise the top
// of the zone instead of storing water.
func (r *Resolver) Observe(h *survey.Horizon, organic bool) {
	if !r.majorEarthy {
		return
	}
	if r.surface {
		if organic {
			r.surfaceCm += h.Depth.Thickness()
		} else {
			r.surface = false
		}
	}
	if h.Depth.Top >= r.bottom {
		return
	}

	salty := h.EC >= 12
	acid := !organic && h.PH > 0 && h.PH <= 3.5
	dense := !organic && depthcalc.CheckDensity(h.Db, h.Sand, h.Silt, h.Clay, r.policy)

	hz := h.Depth
	if salty || acid || dense {
		r.bottom = math.Min(h.Depth.Top, r.bottom)
		hz.Bottom = math.Min(hz.Bottom, r.bottom)
	}
	if !math.IsNaN(h.AWC) && !r.surface {
		window := survey.DepthInterval{Top: r.surfaceCm, Bottom: r.bottom}
		r.zone.Accumulate(window, hz, depthcalc.AWS(h.AWC))
	}
}

// Zone returns the accumulated root zone cell: thickness is the depth of
// soil inside the zone window, value the stored water in mm. Both are NaN
// when nothing qualified.
func (r *Resolver) Zone() depthcalc.Cell {
	return r.zone
}

// Bottom returns the current bottom of the zone in cm.
func (r *Resolver) Bottom() float64 {
	return r.bottom
}
