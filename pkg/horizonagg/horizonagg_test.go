package horizonagg

import (
	"math"
	"testing"

	"github.com/eunmann/ssurgo-agg-db/pkg/depthcalc"
	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

func testHorizons() []survey.Horizon {
	nan := math.NaN()
	return []survey.Horizon{
		{
			CoKey: "c1", ChKey: "h1", Master: "A",
			Depth: survey.DepthInterval{Top: 0, Bottom: 10},
			Sand:  40, Silt: 40, Clay: 20,
			OM: 2, Db: 1.3, EC: nan, PH: 6.5, AWC: 0.15,
		},
		{
			CoKey: "c1", ChKey: "h2", Master: "B",
			Depth: survey.DepthInterval{Top: 10, Bottom: 30},
			Sand:  40, Silt: 40, Clay: 20,
			OM: 1, Db: 1.4, EC: nan, PH: 6.5, AWC: nan,
		},
	}
}

func testLookups() *survey.Lookups {
	l := survey.NewLookups()
	l.MajorEarthy["c1"] = true
	l.FragVol["h2"] = 10
	return l
}

func TestSummarize(t *testing.T) {
	s := NewSummarizer(testLookups(), depthcalc.IndeterminateRestrictive)
	sum := s.Summarize("c1", testHorizons())

	// Layer index 6 is 0-20. Only h1 carries water capacity.
	aws := sum.AWS[6]
	if aws.Thickness != 10 || math.Abs(aws.Value-15) > 1e-6 {
		t.Errorf("AWS 0-20 = %+v, want 10cm / 15mm", aws)
	}

	soc := sum.SOC[6]
	wantSOC := 10*(100-0.0)*2/1.724*1.3 + 10*(100-10.0)*1/1.724*1.4
	if soc.Thickness != 20 || math.Abs(soc.Value-wantSOC) > 1e-4 {
		t.Errorf("SOC 0-20 = %+v, want 20cm / %v g", soc, wantSOC)
	}

	// Root zone: h1 stores inside 0-150, h2 has no water capacity.
	if sum.RootZone.Thickness != 10 || math.Abs(sum.RootZone.Value-15) > 1e-6 {
		t.Errorf("root zone = %+v, want 10cm / 15mm", sum.RootZone)
	}
}

func TestSummarizeBedrockClipsCarbon(t *testing.T) {
	l := testLookups()
	l.BedrockDepth["c1"] = 5
	s := NewSummarizer(l, depthcalc.IndeterminateRestrictive)
	sum := s.Summarize("c1", testHorizons())

	// h1's carbon window is clipped to 0-5; h2 sits entirely below the
	// contact so its organic matter is discarded.
	soc := sum.SOC[6]
	want := 5 * (100 - 0.0) * 2 / 1.724 * 1.3
	if math.Abs(soc.Value-want) > 1e-4 {
		t.Errorf("SOC 0-20 = %v, want %v (clipped at bedrock)", soc.Value, want)
	}
	if soc.Thickness != 5 {
		t.Errorf("SOC 0-20 thickness = %v, want 5", soc.Thickness)
	}

	// Water storage ignores the carbon clip.
	if aws := sum.AWS[6]; aws.Thickness != 10 {
		t.Errorf("AWS 0-20 thickness = %v, want 10", aws.Thickness)
	}
}

func TestSummarizeSkipsCarbonWithoutDensity(t *testing.T) {
	hzs := testHorizons()
	hzs[0].Db = 0
	hzs[1].Db = math.NaN()
	s := NewSummarizer(testLookups(), depthcalc.IndeterminateRestrictive)
	sum := s.Summarize("c1", hzs)
	if sum.SOC.HasData() {
		t.Errorf("SOC = %+v, want no data without bulk density", sum.SOC)
	}
}

func TestSummarizeMinorComponentHasNoRootZone(t *testing.T) {
	s := NewSummarizer(survey.NewLookups(), depthcalc.IndeterminateRestrictive)
	sum := s.Summarize("c9", testHorizons())
	if !math.IsNaN(sum.RootZone.Thickness) || !math.IsNaN(sum.RootZone.Value) {
		t.Errorf("root zone = %+v, want unknown for minor component", sum.RootZone)
	}
	// Layer summaries are still produced.
	if !sum.AWS.HasData() {
		t.Error("AWS summary missing for minor component")
	}
}

func TestWeightedMean(t *testing.T) {
	layers := []survey.DepthInterval{{Top: 0, Bottom: 20}, {Top: 20, Bottom: 50}}
	w := NewWeightedMean(layers)
	w.Observe(survey.DepthInterval{Top: 0, Bottom: 10}, 2)
	w.Observe(survey.DepthInterval{Top: 10, Bottom: 30}, 4)

	if got := w.Mean(0); math.Abs(got-3) > 1e-9 {
		t.Errorf("mean 0-20 = %v, want 3", got)
	}
	// 20-50 saw only the second horizon.
	if got := w.Mean(1); math.Abs(got-4) > 1e-9 {
		t.Errorf("mean 20-50 = %v, want 4", got)
	}
}

func TestWeightedMeanNaNValueKeepsWeight(t *testing.T) {
	layers := []survey.DepthInterval{{Top: 0, Bottom: 20}}
	w := NewWeightedMean(layers)
	w.Observe(survey.DepthInterval{Top: 0, Bottom: 10}, 2)
	w.Observe(survey.DepthInterval{Top: 10, Bottom: 20}, math.NaN())

	c := w.Cell(0)
	if c.Thickness != 20 || c.Value != 20 {
		t.Errorf("cell = %+v, want 20cm thickness, 20 value", c)
	}
	if got := w.Mean(0); math.Abs(got-1) > 1e-9 {
		t.Errorf("mean = %v, want 1", got)
	}
}

func TestWeightedMeanEmptyLayer(t *testing.T) {
	w := NewWeightedMean([]survey.DepthInterval{{Top: 100, Bottom: 150}})
	w.Observe(survey.DepthInterval{Top: 0, Bottom: 10}, 2)
	if got := w.Mean(0); !math.IsNaN(got) {
		t.Errorf("mean of untouched layer = %v, want NaN", got)
	}
}

func TestExtreme(t *testing.T) {
	layers := []survey.DepthInterval{{Top: 0, Bottom: 50}, {Top: 50, Bottom: 100}}

	min := NewExtreme(layers, MinValue)
	max := NewExtreme(layers, MaxValue)
	for _, obs := range []struct {
		h survey.DepthInterval
		v float64
	}{
		{survey.DepthInterval{Top: 0, Bottom: 20}, 5},
		{survey.DepthInterval{Top: 20, Bottom: 60}, 2},
		{survey.DepthInterval{Top: 60, Bottom: 100}, math.NaN()},
	} {
		min.Observe(obs.h, obs.v)
		max.Observe(obs.h, obs.v)
	}

	if got := min.Value(0); got != 2 {
		t.Errorf("min 0-50 = %v, want 2", got)
	}
	if got := max.Value(0); got != 5 {
		t.Errorf("max 0-50 = %v, want 5", got)
	}
	// 50-100 overlaps the 20-60 horizon; the NaN-valued one is skipped.
	if got := min.Value(1); got != 2 {
		t.Errorf("min 50-100 = %v, want 2", got)
	}
}

func TestDominantCategory(t *testing.T) {
	layers := []survey.DepthInterval{{Top: 0, Bottom: 100}}
	d := NewDominantCategory(layers)
	d.Observe(survey.DepthInterval{Top: 0, Bottom: 30}, "loam")
	d.Observe(survey.DepthInterval{Top: 30, Bottom: 85}, "clay")
	d.Observe(survey.DepthInterval{Top: 85, Bottom: 100}, "loam")

	cat, thick, ok := d.Dominant(0)
	if !ok || cat != "clay" || thick != 55 {
		t.Errorf("dominant = (%q, %v, %v), want (clay, 55, true)", cat, thick, ok)
	}
}

func TestDominantCategoryTieFirstSeen(t *testing.T) {
	layers := []survey.DepthInterval{{Top: 0, Bottom: 100}}
	d := NewDominantCategory(layers)
	d.Observe(survey.DepthInterval{Top: 0, Bottom: 50}, "loam")
	d.Observe(survey.DepthInterval{Top: 50, Bottom: 100}, "clay")

	cat, _, ok := d.Dominant(0)
	if !ok || cat != "loam" {
		t.Errorf("tied dominant = %q, want first-seen loam", cat)
	}
}

func TestDominantCategoryUnpopulated(t *testing.T) {
	layers := []survey.DepthInterval{{Top: 0, Bottom: 100}}
	d := NewDominantCategory(layers)
	d.Observe(survey.DepthInterval{Top: 0, Bottom: 60}, "")
	d.Observe(survey.DepthInterval{Top: 60, Bottom: 100}, "clay")

	cat, thick, ok := d.Dominant(0)
	if !ok || cat != Unpopulated || thick != 60 {
		t.Errorf("dominant = (%q, %v, %v), want (%q, 60, true)", cat, thick, ok, Unpopulated)
	}
}

func TestDominantCategoryEmptyLayer(t *testing.T) {
	d := NewDominantCategory([]survey.DepthInterval{{Top: 0, Bottom: 10}})
	if _, _, ok := d.Dominant(0); ok {
		t.Error("dominant of empty layer reports ok")
	}
}
