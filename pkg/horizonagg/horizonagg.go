// Package horizonagg reduces one component's ordered horizons to per-layer
// values. It carries the fixed summary pass used by the map unit summary
// build (water storage, organic carbon, root zone) and three generic
// reduction modes over caller-specified layers: thickness-weighted mean,
// absolute extreme, and dominant category.
package horizonagg

import (
	"math"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/rootzone"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// Summary is one component's layer-aggregated water storage and organic
// carbon plus its root zone cell.
type Summary struct {
	AWS      depthcalc.LayerAccum
	SOC      depthcalc.LayerAccum
	RootZone depthcalc.Cell
}

// Summarizer reduces horizon groups to Summaries against a fixed set of
// per-run lookups. Safe for concurrent use; the lookups are read-only.
type Summarizer struct {
	lookups *survey.Lookups
	policy  depthcalc.DensityPolicy
}

// NewSummarizer returns a summarizer over the given lookups. policy decides
// undecidable dense-layer tests during root zone truncation.
func NewSummarizer(l *survey.Lookups, policy depthcalc.DensityPolicy) *Summarizer {
	return &Summarizer{lookups: l, policy: policy}
}

// Summarize reduces one component's horizons, which must arrive ordered by
// top depth ascending.
//
// Water storage needs a populated water capacity; carbon needs organic
// matter and bulk density. Organic matter recorded for depths below a
// bedrock contact is excluded: fully when the contact sits at or above the
// horizon top, by clipping the carbon window otherwise.
func (s *Summarizer) Summarize(coKey string, horizons []survey.Horizon) Summary {
	sum := Summary{
		AWS: depthcalc.NewLayerAccum(),
		SOC: depthcalc.NewLayerAccum(),
	}
	rz := rootzone.NewResolver(
		s.lookups.MajorEarthy[coKey],
		s.lookups.HisticCokeys[coKey],
		restrictionOrNaN(s.lookups.RootRestrictionDepth, coKey),
		s.policy,
	)
	bedrock := s.lookups.BedrockDepth[coKey]

	for i := range horizons {
		h := &horizons[i]

		om := h.OM
		socDepth := h.Depth
		if bedrock > 0 && bedrock < h.Depth.Bottom {
			if bedrock <= h.Depth.Top {
				om = math.NaN()
			} else {
				socDepth.Bottom = bedrock
			}
		}

		if !math.IsNaN(h.AWC) {
			sum.AWS.Accumulate(h.Depth, depthcalc.AWS(h.AWC))
		}
		if !math.IsNaN(om) && !math.IsNaN(h.Db) && h.Db != 0 {
			frag := s.lookups.HorizonFragVol(h.ChKey)
			sum.SOC.Accumulate(socDepth, depthcalc.SOC(om, h.Db, frag))
		}

		rz.Observe(h, s.lookups.HorizonIsOrganic(h))
	}

	sum.RootZone = rz.Zone()
	return sum
}

func restrictionOrNaN(m map[string]float64, coKey string) float64 {
	if d, ok := m[coKey]; ok {
		return d
	}
	return math.NaN()
}
