package valubuild

import (
	"math"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/muagg"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

// droughtyThresholdMm is the root zone water storage at or below which a
// map unit counts as droughty.
const droughtyThresholdMm = 152

// waterSentinelPct marks a map unit as open water for the wetland
// percentage once its water components reach this share.
const waterSentinelPct = 80

// PWSLWater is the wetland percentage sentinel reported for open water.
const PWSLWater = 999

// assemble reduces one map unit's components to its summary row.
// Components without a percent composition contribute nothing anywhere.
func (a *assembler) assemble(muKey string, comps []survey.Component) survey.MapUnitSummary {
	out := survey.MapUnitSummary{
		MuKey:         muKey,
		NCCPI:         survey.NaNNCCPI(),
		RootZoneDepth: math.NaN(),
		RootZoneAWS:   math.NaN(),
		Droughty:      math.NaN(),
		PWSL:          math.NaN(),
	}

	awsLayers := depthcalc.NewLayerAccum()
	socLayers := depthcalc.NewLayerAccum()
	rootZone := depthcalc.NaNCell()
	var nccpi survey.NCCPI
	var ratedEarthy bool

	// PWSL runs on a presumption of null: only an explicit hydric rating
	// or a wetness signal flips it to a number.
	var pwslPct, waterPct float64
	pwslNull := true

	rated := make([]muagg.Rated, 0, len(comps))

	for i := range comps {
		c := &comps[i]
		if math.IsNaN(c.Pct) || c.Pct == 0 {
			continue
		}
		fraction := c.Pct / 100
		out.CompPctSum += c.Pct
		rated = append(rated, muagg.Rated{Comp: *c})

		if a.lookups.MajorEarthy[c.CoKey] {
			out.EarthyMajorPct += c.Pct
			if vec, ok := a.lookups.NCCPI[c.CoKey]; ok {
				ratedEarthy = true
				for crop := range vec {
					nccpi[crop] += vec[crop] * fraction
				}
			}
		}

		if sum, ok := a.summaries[c.CoKey]; ok {
			if sum.AWS.HasData() {
				awsLayers.AddScaled(sum.AWS, fraction)
				rootZone.Add(sum.RootZone.Scale(fraction))
				out.AWSCompPct += c.Pct
			}
			if sum.SOC.HasData() {
				socLayers.AddScaled(sum.SOC, fraction)
				out.SOCCompPct += c.Pct
			}
		}

		switch {
		case c.LooksLikeWater():
			waterPct += c.Pct
		case c.HydricRating == "Yes":
			pwslPct += c.Pct
			pwslNull = false
		case c.HydricRating == "Unranked" && a.wetnessSignal(muKey, c):
			pwslPct += c.Pct
			pwslNull = false
		case c.HydricRating == "" && survey.IsWetDrainageClass(c.DrainageClass):
			pwslPct += c.Pct
			pwslNull = false
		case c.HydricRating == "No":
			pwslNull = false
		}
	}

	for i := range awsLayers {
		out.AWS[i] = awsLayers[i].Value
		out.AWSThick[i] = awsLayers[i].Thickness
	}
	for i := range socLayers {
		out.SOC[i] = socLayers[i].Value
		out.SOCThick[i] = socLayers[i].Thickness
	}

	// NCCPI and the root zone are weighted averages over the major earthy
	// share, not the whole composition.
	if ratedEarthy && out.EarthyMajorPct > 0 {
		earthyFraction := out.EarthyMajorPct / 100
		for crop := range nccpi {
			out.NCCPI[crop] = nccpi[crop] / earthyFraction
		}
		out.RootZoneDepth = rootZone.Thickness / earthyFraction
		out.RootZoneAWS = rootZone.Value / earthyFraction
		switch {
		case out.RootZoneAWS <= droughtyThresholdMm:
			out.Droughty = 1
		case out.RootZoneAWS > droughtyThresholdMm:
			out.Droughty = 0
		}
	}

	switch {
	case waterPct >= waterSentinelPct:
		out.PWSL = PWSLWater
	case pwslNull || pwslPct == 0:
		// stays NaN
	default:
		out.PWSL = pwslPct
	}

	if dom, ok := muagg.DominantComponent(rated); ok {
		out.DominantKey = dom.CoKey
		out.DominantPct = dom.Pct
	} else {
		out.DominantPct = math.NaN()
	}

	return out
}

// wetnessSignal reports whether an unranked component shows any wetness
// marker: a wet drainage class, a wetness keyword in either phase, or a
// wet-phase map unit name.
func (a *assembler) wetnessSignal(muKey string, c *survey.Component) bool {
	return a.lookups.WetPhaseMukeys[muKey] ||
		survey.IsWetDrainageClass(c.DrainageClass) ||
		survey.HasWetnessPhaseKeyword(c.LocalPhase) ||
		survey.HasWetnessPhaseKeyword(c.OtherPhase)
}
