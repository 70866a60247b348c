package valubuild

import (
	"math"
	"testing"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/horizonagg"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

func layerAccumWith(layer int, thickness, value float64) depthcalc.LayerAccum {
	a := depthcalc.NewLayerAccum()
	a[layer] = depthcalc.Cell{Thickness: thickness, Value: value}
	return a
}

func newTestAssembler() *assembler {
	return &assembler{
		lookups:   survey.NewLookups(),
		summaries: make(map[string]horizonagg.Summary),
	}
}

func TestAssembleWeightsComponentsByPercent(t *testing.T) {
	a := newTestAssembler()
	a.summaries["c1"] = horizonagg.Summary{
		AWS:      layerAccumWith(0, 5, 10),
		SOC:      depthcalc.NewLayerAccum(),
		RootZone: depthcalc.NaNCell(),
	}
	a.summaries["c2"] = horizonagg.Summary{
		AWS:      layerAccumWith(0, 5, 20),
		SOC:      depthcalc.NewLayerAccum(),
		RootZone: depthcalc.NaNCell(),
	}

	sum := a.assemble("m1", []survey.Component{
		{MuKey: "m1", CoKey: "c1", Pct: 60},
		{MuKey: "m1", CoKey: "c2", Pct: 40},
	})

	wantAWS := 0.6*10 + 0.4*20
	if math.Abs(sum.AWS[0]-wantAWS) > 1e-9 {
		t.Errorf("AWS[0] = %v, want %v", sum.AWS[0], wantAWS)
	}
	wantThick := 0.6*5 + 0.4*5
	if math.Abs(sum.AWSThick[0]-wantThick) > 1e-9 {
		t.Errorf("AWSThick[0] = %v, want %v", sum.AWSThick[0], wantThick)
	}
	if sum.AWSCompPct != 100 {
		t.Errorf("AWSCompPct = %v, want 100", sum.AWSCompPct)
	}
	if !math.IsNaN(sum.SOC[0]) {
		t.Errorf("SOC[0] = %v, want NaN with no carbon data", sum.SOC[0])
	}
	if sum.SOCCompPct != 0 {
		t.Errorf("SOCCompPct = %v, want 0", sum.SOCCompPct)
	}
	if sum.CompPctSum != 100 {
		t.Errorf("CompPctSum = %v, want 100", sum.CompPctSum)
	}
}

func TestAssembleSkipsUnpopulatedPercent(t *testing.T) {
	a := newTestAssembler()
	a.summaries["c1"] = horizonagg.Summary{
		AWS:      layerAccumWith(0, 5, 10),
		SOC:      depthcalc.NewLayerAccum(),
		RootZone: depthcalc.NaNCell(),
	}

	sum := a.assemble("m1", []survey.Component{
		{MuKey: "m1", CoKey: "c1", Pct: math.NaN()},
		{MuKey: "m1", CoKey: "c2", Pct: 0},
	})

	if !math.IsNaN(sum.AWS[0]) {
		t.Errorf("AWS[0] = %v, want NaN", sum.AWS[0])
	}
	if sum.CompPctSum != 0 {
		t.Errorf("CompPctSum = %v, want 0", sum.CompPctSum)
	}
	if sum.DominantKey != "" || !math.IsNaN(sum.DominantPct) {
		t.Errorf("dominant = (%q, %v), want none", sum.DominantKey, sum.DominantPct)
	}
}

func TestAssembleNCCPIandRootZone(t *testing.T) {
	a := newTestAssembler()
	a.lookups.MajorEarthy["c1"] = true
	a.lookups.NCCPI["c1"] = survey.NCCPI{0.5, 0.4, math.NaN(), 0.2, 0.5}
	a.summaries["c1"] = horizonagg.Summary{
		AWS:      layerAccumWith(0, 5, 10),
		SOC:      depthcalc.NewLayerAccum(),
		RootZone: depthcalc.Cell{Thickness: 150, Value: 225},
	}

	sum := a.assemble("m1", []survey.Component{
		{MuKey: "m1", CoKey: "c1", Pct: 80},
		{MuKey: "m1", CoKey: "c2", Pct: 20, Kind: survey.KindMiscellaneous},
	})

	// Weighted over the major earthy share: 0.8*x / 0.8 = x.
	if math.Abs(sum.NCCPI[survey.CropCorn]-0.5) > 1e-6 {
		t.Errorf("NCCPI corn = %v, want 0.5", sum.NCCPI[survey.CropCorn])
	}
	if !math.IsNaN(sum.NCCPI[survey.CropCotton]) {
		t.Errorf("NCCPI cotton = %v, want NaN", sum.NCCPI[survey.CropCotton])
	}
	if sum.EarthyMajorPct != 80 {
		t.Errorf("EarthyMajorPct = %v, want 80", sum.EarthyMajorPct)
	}
	if math.Abs(sum.RootZoneDepth-150) > 1e-6 {
		t.Errorf("RootZoneDepth = %v, want 150", sum.RootZoneDepth)
	}
	if math.Abs(sum.RootZoneAWS-225) > 1e-6 {
		t.Errorf("RootZoneAWS = %v, want 225", sum.RootZoneAWS)
	}
	if sum.Droughty != 0 {
		t.Errorf("Droughty = %v, want 0 for 225 mm", sum.Droughty)
	}
}

func TestAssembleDroughty(t *testing.T) {
	a := newTestAssembler()
	a.lookups.MajorEarthy["c1"] = true
	a.lookups.NCCPI["c1"] = survey.NaNNCCPI()
	a.summaries["c1"] = horizonagg.Summary{
		AWS:      layerAccumWith(0, 5, 10),
		SOC:      depthcalc.NewLayerAccum(),
		RootZone: depthcalc.Cell{Thickness: 100, Value: 120},
	}

	sum := a.assemble("m1", []survey.Component{{MuKey: "m1", CoKey: "c1", Pct: 100}})
	if sum.Droughty != 1 {
		t.Errorf("Droughty = %v, want 1 for 120 mm", sum.Droughty)
	}

	// No rated major earthy component leaves everything unknown.
	b := newTestAssembler()
	sum = b.assemble("m1", []survey.Component{{MuKey: "m1", CoKey: "c1", Pct: 100}})
	if !math.IsNaN(sum.Droughty) || !math.IsNaN(sum.RootZoneAWS) {
		t.Errorf("Droughty = %v, RootZoneAWS = %v, want NaN", sum.Droughty, sum.RootZoneAWS)
	}
}

func TestAssemblePWSL(t *testing.T) {
	tests := []struct {
		name  string
		comps []survey.Component
		want  float64
	}{
		{
			"hydric yes",
			[]survey.Component{
				{MuKey: "m1", CoKey: "c1", Pct: 55, HydricRating: "Yes"},
				{MuKey: "m1", CoKey: "c2", Pct: 45, HydricRating: "No"},
			},
			55,
		},
		{
			"null hydric with wet drainage",
			[]survey.Component{
				{MuKey: "m1", CoKey: "c1", Pct: 70, DrainageClass: "Poorly drained"},
			},
			70,
		},
		{
			"unranked with phase keyword",
			[]survey.Component{
				{MuKey: "m1", CoKey: "c1", Pct: 40, HydricRating: "Unranked", LocalPhase: "frequently flooded"},
			},
			40,
		},
		{
			"open water sentinel",
			[]survey.Component{
				{MuKey: "m1", CoKey: "c1", Pct: 85, Kind: survey.KindMiscellaneous, Name: "Water"},
				{MuKey: "m1", CoKey: "c2", Pct: 15, HydricRating: "No"},
			},
			PWSLWater,
		},
		{
			"water table phase is not water",
			[]survey.Component{
				{MuKey: "m1", CoKey: "c1", Pct: 100, Kind: survey.KindMiscellaneous, Name: "Water table"},
			},
			math.NaN(),
		},
		{
			"all unrated stays null",
			[]survey.Component{
				{MuKey: "m1", CoKey: "c1", Pct: 100, DrainageClass: "Well drained"},
			},
			math.NaN(),
		},
		{
			"all hydric no reports null",
			[]survey.Component{
				{MuKey: "m1", CoKey: "c1", Pct: 100, HydricRating: "No"},
			},
			math.NaN(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAssembler()
			sum := a.assemble("m1", tt.comps)
			if math.IsNaN(tt.want) {
				if !math.IsNaN(sum.PWSL) {
					t.Errorf("PWSL = %v, want NaN", sum.PWSL)
				}
				return
			}
			if sum.PWSL != tt.want {
				t.Errorf("PWSL = %v, want %v", sum.PWSL, tt.want)
			}
		})
	}
}

func TestAssemblePWSLWetPhaseMapUnit(t *testing.T) {
	a := newTestAssembler()
	a.lookups.WetPhaseMukeys["m1"] = true

	sum := a.assemble("m1", []survey.Component{
		{MuKey: "m1", CoKey: "c1", Pct: 65, HydricRating: "Unranked", DrainageClass: "Well drained"},
	})
	if sum.PWSL != 65 {
		t.Errorf("PWSL = %v, want 65 via wet-phase map unit", sum.PWSL)
	}
}

func TestAssembleDominantTiePrefersNonMiscellaneous(t *testing.T) {
	a := newTestAssembler()
	sum := a.assemble("m1", []survey.Component{
		{MuKey: "m1", CoKey: "c1", Pct: 50, Kind: survey.KindMiscellaneous},
		{MuKey: "m1", CoKey: "c2", Pct: 50, Kind: "Series"},
	})
	if sum.DominantKey != "c2" || sum.DominantPct != 50 {
		t.Errorf("dominant = (%q, %v), want (c2, 50)", sum.DominantKey, sum.DominantPct)
	}
}
