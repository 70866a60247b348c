// Package survey defines the row model shared by the aggregation engine and
// its storage adapters.
//
// Rows mirror the SSURGO tabular hierarchy: map units contain components,
// components contain horizons. Numeric fields use NaN for SQL NULL so the
// engine's missing-value propagation applies uniformly; adapters convert
// NULL to NaN on scan and NaN back to NULL on write.
package survey

import (
	"math"
	"strconv"
	"strings"
)

// DepthInterval is a depth range in centimeters measured from the soil
// surface. Top < Bottom for real horizons and layers.
type DepthInterval struct {
	Top    float64
	Bottom float64
}

// Thickness returns the interval thickness in centimeters.
func (d DepthInterval) Thickness() float64 {
	return d.Bottom - d.Top
}

// NumStandardLayers is the number of fixed depth layers the summary
// pipeline reports on.
const NumStandardLayers = 11

// StandardLayers are the fixed depth layers of the map unit summary table:
// six disjoint slices followed by five cumulative ranges. 999 stands in for
// "to the bottom of the described profile".
var StandardLayers = [NumStandardLayers]DepthInterval{
	{0, 5}, {5, 20}, {20, 50}, {50, 100}, {100, 150}, {150, 999},
	{0, 20}, {0, 30}, {0, 100}, {0, 150}, {0, 999},
}

// LayerTag returns the column-name fragment for a standard layer index,
// e.g. "0_5" or "150_999".
func LayerTag(i int) string {
	l := StandardLayers[i]
	return strconv.Itoa(int(l.Top)) + "_" + strconv.Itoa(int(l.Bottom))
}

// Horizon is one depth slice of a component's soil profile with the
// measured properties the engine aggregates. Missing values are NaN.
type Horizon struct {
	CoKey  string
	ChKey  string
	Master string // master horizon designator (A, B, O, ...)
	Depth  DepthInterval

	Sand float64 // percent of fine earth
	Silt float64
	Clay float64
	OM   float64 // organic matter percent
	Db   float64 // bulk density at 1/3 bar, g/cm^3
	EC   float64 // electrical conductivity, dS/m
	PH   float64 // pH in 1:1 water
	AWC  float64 // available water capacity, fraction of volume
}

// KindMiscellaneous is the component kind tag for miscellaneous areas
// (non-soil map unit components such as rock outcrop or water).
const KindMiscellaneous = "Miscellaneous area"

// Component is one soil (or miscellaneous area) occupying a percentage of
// a map unit.
type Component struct {
	MuKey string
	CoKey string
	Pct   float64 // percent composition, NaN when not populated

	Name          string
	Kind          string
	MajorFlag     bool // representative major component of its map unit
	LocalPhase    string
	OtherPhase    string
	HydricRating  string // "Yes", "No", "Unranked", or empty
	DrainageClass string
	TaxOrder      string
	TaxSubgroup   string
}

// Miscellaneous reports whether the component is a miscellaneous area.
func (c *Component) Miscellaneous() bool {
	return c.Kind == KindMiscellaneous
}

// MajorEarthy reports whether the component is a major component made of
// soil, the population scored for root zone depth and commodity ratings.
func (c *Component) MajorEarthy() bool {
	return c.MajorFlag && !c.Miscellaneous()
}

// Histic reports whether the component's organic surface counts as part of
// the scored soil: Histosols other than Folists, and soils with a histic
// epipedon in their subgroup.
func (c *Component) Histic() bool {
	sub := strings.ToLower(c.TaxSubgroup)
	if strings.EqualFold(c.TaxOrder, "Histosols") {
		return !strings.Contains(sub, "folist")
	}
	return strings.Contains(sub, "histic")
}

// LooksLikeWater reports whether the component is open water for the
// wetland percentage: a miscellaneous (or untagged) component whose name
// reads as water, excluding water-table phases and the Waterhill series.
func (c *Component) LooksLikeWater() bool {
	if c.Kind != "" && c.Kind != KindMiscellaneous {
		return false
	}
	name := strings.ToLower(c.Name)
	if !strings.HasPrefix(name, "water") &&
		!strings.Contains(name, " water") &&
		!strings.Contains(name, "swamp") {
		return false
	}
	if strings.Contains(name, "table") || name == "waterhill" {
		return false
	}
	return true
}

// Restriction is one root-restrictive layer recorded for a component.
type Restriction struct {
	CoKey string
	Kind  string
	Depth float64 // representative top depth, cm
}

// CropInterp is one commodity-crop productivity rating for a component.
type CropInterp struct {
	CoKey   string
	RuleKey string
	Rating  float64 // fuzzy rating 0..1, NaN when not populated
}

// Crop indexes into an NCCPI rating vector.
const (
	CropCorn = iota
	CropSoybeans
	CropCotton
	CropSmallGrains
	CropOverall
	NumCrops
)

// NCCPI holds the five commodity productivity ratings in output order:
// corn, soybeans, cotton, small grains, overall.
type NCCPI [NumCrops]float64

// NaNNCCPI returns a rating vector with every entry NaN.
func NaNNCCPI() NCCPI {
	var n NCCPI
	for i := range n {
		n[i] = math.NaN()
	}
	return n
}

// Rule keys of the national commodity crop productivity interpretations.
const (
	RuleKeySmallGrains = "37149"
	RuleKeyCotton      = "37150"
	RuleKeySoybeans    = "44492"
	RuleKeyOverall     = "54955"
	RuleKeyCorn        = "57994"
)

// CropForRule maps an interpretation rule key to its NCCPI index.
func CropForRule(ruleKey string) (int, bool) {
	switch ruleKey {
	case RuleKeyCorn:
		return CropCorn, true
	case RuleKeySoybeans:
		return CropSoybeans, true
	case RuleKeyCotton:
		return CropCotton, true
	case RuleKeySmallGrains:
		return CropSmallGrains, true
	case RuleKeyOverall:
		return CropOverall, true
	}
	return 0, false
}

// MapUnitSummary is one output row of the summary pipeline. Per standard
// layer it carries available water storage (mm), soil organic carbon
// (g/m^2), and the contributing thickness (cm) behind each. NaN marks
// values no component could populate.
type MapUnitSummary struct {
	MuKey string

	AWS        [NumStandardLayers]float64
	AWSThick   [NumStandardLayers]float64
	AWSCompPct float64 // summed percent of components contributing AWS

	SOC        [NumStandardLayers]float64
	SOCThick   [NumStandardLayers]float64
	SOCCompPct float64

	NCCPI          NCCPI
	EarthyMajorPct float64 // summed percent of major earthy components

	RootZoneDepth float64 // cm of profile contributing to the root zone
	RootZoneAWS   float64 // mm
	Droughty      float64 // 1, 0, or NaN when undetermined

	PWSL       float64 // percent potential wetland, 999 = open water
	CompPctSum float64 // summed percent of all components

	DominantKey string // component key of the dominant component
	DominantPct float64
}

// roundTo rounds half away from zero to the given number of decimals,
// passing NaN through.
func roundTo(v float64, decimals int) float64 {
	if math.IsNaN(v) {
		return v
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// Rounded returns a copy of the summary with output rounding applied: AWS
// 2 decimals, SOC value 0 and thickness 2, NCCPI 3, root zone values 2,
// PWSL integer percent. Sinks round here and nowhere earlier, so
// mid-pipeline precision is never lost.
func (s MapUnitSummary) Rounded() MapUnitSummary {
	out := s
	for i := 0; i < NumStandardLayers; i++ {
		out.AWS[i] = roundTo(s.AWS[i], 2)
		out.AWSThick[i] = roundTo(s.AWSThick[i], 2)
		out.SOC[i] = roundTo(s.SOC[i], 0)
		out.SOCThick[i] = roundTo(s.SOCThick[i], 2)
	}
	for i := range out.NCCPI {
		out.NCCPI[i] = roundTo(s.NCCPI[i], 3)
	}
	out.RootZoneDepth = roundTo(s.RootZoneDepth, 2)
	out.RootZoneAWS = roundTo(s.RootZoneAWS, 2)
	out.PWSL = roundTo(s.PWSL, 0)
	return out
}

// AggResult is one output row of a single-property aggregation: the reduced
// value (or class) for one map unit together with the percent composition
// that produced it.
type AggResult struct {
	MuKey string
	Pct   float64
	Value float64 // NaN for purely categorical methods
	Label string
	Seq   float64 // ordinal or count where the method defines one, else NaN
}
