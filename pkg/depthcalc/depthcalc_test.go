package depthcalc

import (
	"math"
	"testing"

	"github.com/eunmann/ssurgo-agg-db/pkg/survey"
)

func TestOverlap(t *testing.T) {
	tests := []struct {
		name    string
		layer   survey.DepthInterval
		horizon survey.DepthInterval
		want    float64
	}{
		{"identical", survey.DepthInterval{Top: 0, Bottom: 150}, survey.DepthInterval{Top: 0, Bottom: 150}, 150},
		{"partial", survey.DepthInterval{Top: 0, Bottom: 20}, survey.DepthInterval{Top: 10, Bottom: 30}, 10},
		{"horizon inside layer", survey.DepthInterval{Top: 0, Bottom: 100}, survey.DepthInterval{Top: 20, Bottom: 50}, 30},
		{"layer inside horizon", survey.DepthInterval{Top: 20, Bottom: 50}, survey.DepthInterval{Top: 0, Bottom: 100}, 30},
		{"disjoint", survey.DepthInterval{Top: 0, Bottom: 5}, survey.DepthInterval{Top: 10, Bottom: 20}, math.NaN()},
		{"disjoint reversed", survey.DepthInterval{Top: 10, Bottom: 20}, survey.DepthInterval{Top: 0, Bottom: 5}, math.NaN()},
		{"edge touch", survey.DepthInterval{Top: 0, Bottom: 5}, survey.DepthInterval{Top: 5, Bottom: 20}, math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlap(tt.layer, tt.horizon)
			if math.IsNaN(tt.want) {
				if !math.IsNaN(got) {
					t.Errorf("Overlap() = %v, want NaN", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Overlap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddNaN(t *testing.T) {
	nan := math.NaN()
	if got := AddNaN(nan, nan); !math.IsNaN(got) {
		t.Errorf("NaN+NaN = %v, want NaN", got)
	}
	if got := AddNaN(nan, 5); got != 5 {
		t.Errorf("NaN+5 = %v, want 5", got)
	}
	if got := AddNaN(5, nan); got != 5 {
		t.Errorf("5+NaN = %v, want 5", got)
	}
	if got := AddNaN(3, 5); got != 8 {
		t.Errorf("3+5 = %v, want 8", got)
	}
}

func TestCellAdd(t *testing.T) {
	c := NaNCell()
	if c.HasData() {
		t.Fatal("empty cell reports data")
	}
	c.Add(Cell{Thickness: 10, Value: math.NaN()})
	if c.Thickness != 10 || !math.IsNaN(c.Value) {
		t.Errorf("cell = %+v, want thickness 10, value NaN", c)
	}
	if !c.HasData() {
		t.Error("cell with thickness reports no data")
	}
	c.Add(Cell{Thickness: 5, Value: 2})
	if c.Thickness != 15 || c.Value != 2 {
		t.Errorf("cell = %+v, want thickness 15, value 2", c)
	}
}

func TestCellScaleKeepsNaN(t *testing.T) {
	c := NaNCell()
	s := c.Scale(0.5)
	if !math.IsNaN(s.Thickness) || !math.IsNaN(s.Value) {
		t.Errorf("scaled empty cell = %+v, want NaN fields", s)
	}
	s = Cell{Thickness: 10, Value: 4}.Scale(0.5)
	if s.Thickness != 5 || s.Value != 2 {
		t.Errorf("scaled cell = %+v, want {5 2}", s)
	}
}

func TestAWSFormula(t *testing.T) {
	f := AWS(0.15)
	if got := f(20); got != 30 {
		t.Errorf("AWS(0.15)(20) = %v, want 30", got)
	}
	if got := f(math.NaN()); !math.IsNaN(got) {
		t.Errorf("AWS of NaN thickness = %v, want NaN", got)
	}
}

func TestSOCFormula(t *testing.T) {
	f := SOC(2, 1.3, 0)
	want := 10 * 100.0 * 2 / 1.724 * 1.3
	if got := f(10); math.Abs(got-want) > 1e-9 {
		t.Errorf("SOC(2,1.3,0)(10) = %v, want %v", got, want)
	}
	if got := f(math.NaN()); !math.IsNaN(got) {
		t.Errorf("SOC of NaN thickness = %v, want NaN", got)
	}
}

// Two horizons crossing the 0-20 layer: the layer cell must hold the sum of
// both carbon contributions and the full 20 cm of overlap.
func TestLayerAccumCarbonScenario(t *testing.T) {
	a := NewLayerAccum()
	a.Accumulate(survey.DepthInterval{Top: 0, Bottom: 10}, SOC(2, 1.3, 0))
	a.Accumulate(survey.DepthInterval{Top: 10, Bottom: 30}, SOC(1, 1.4, 10))

	// Index 6 is the 0-20 layer.
	cell := a[6]
	want := 10*(100-0.0)*2/1.724*1.3 + 10*(100-10.0)*1/1.724*1.4
	if math.Abs(cell.Value-want) > 1e-6 {
		t.Errorf("0-20 carbon = %v, want %v", cell.Value, want)
	}
	if cell.Thickness != 20 {
		t.Errorf("0-20 thickness = %v, want 20", cell.Thickness)
	}

	// The 100-150 layer saw neither horizon and must still be unknown.
	if a[4].HasData() {
		t.Errorf("100-150 cell = %+v, want no data", a[4])
	}
}

func TestLayerAccumOrderInvariance(t *testing.T) {
	h1 := survey.DepthInterval{Top: 0, Bottom: 10}
	h2 := survey.DepthInterval{Top: 10, Bottom: 30}

	a := NewLayerAccum()
	a.Accumulate(h1, AWS(0.1))
	a.Accumulate(h2, AWS(0.2))

	b := NewLayerAccum()
	b.Accumulate(h2, AWS(0.2))
	b.Accumulate(h1, AWS(0.1))

	for i := range a {
		if !cellsEqual(a[i], b[i]) {
			t.Errorf("layer %d differs by order: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestLayerAccumAddScaled(t *testing.T) {
	a := NewLayerAccum()
	a.Accumulate(survey.DepthInterval{Top: 0, Bottom: 5}, AWS(0.2))

	sum := NewLayerAccum()
	sum.AddScaled(a, 0.5)
	sum.AddScaled(a, 0.25)

	if got := sum[0].Value; math.Abs(got-7.5) > 1e-9 {
		t.Errorf("scaled 0-5 value = %v, want 7.5", got)
	}
	if got := sum[0].Thickness; math.Abs(got-3.75) > 1e-9 {
		t.Errorf("scaled 0-5 thickness = %v, want 3.75", got)
	}
	// Layers the source never touched stay unknown through scaling.
	if sum[5].HasData() {
		t.Errorf("150-999 cell = %+v, want no data", sum[5])
	}
}

func TestFragRowVolume(t *testing.T) {
	if got := FragRowVolume(25, 10, 40); got != 25 {
		t.Errorf("rv present = %v, want 25", got)
	}
	if got := FragRowVolume(math.NaN(), 10, 40); got != 25 {
		t.Errorf("rv missing = %v, want midpoint 25", got)
	}
}

func cellsEqual(a, b Cell) bool {
	eq := func(x, y float64) bool {
		if math.IsNaN(x) || math.IsNaN(y) {
			return math.IsNaN(x) && math.IsNaN(y)
		}
		return math.Abs(x-y) < 1e-9
	}
	return eq(a.Thickness, b.Thickness) && eq(a.Value, b.Value)
}

func BenchmarkLayerAccumAccumulate(b *testing.B) {
	a := NewLayerAccum()
	f := AWS(0.15)
	h := survey.DepthInterval{Top: 20, Bottom: 80}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Accumulate(h, f)
	}
}
