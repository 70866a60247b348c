package depthcalc

import "math"

// DensityPolicy selects the verdict CheckDensity returns when the
// dense-layer test cannot be decided from the inputs it was given.
type DensityPolicy int

const (
	// IndeterminateRestrictive treats an undecidable horizon as too dense,
	// truncating the root zone at it.
	IndeterminateRestrictive DensityPolicy = iota
	// IndeterminateLenient treats an undecidable horizon as not dense.
	IndeterminateLenient
)

// String returns the policy name for logs.
func (p DensityPolicy) String() string {
	switch p {
	case IndeterminateRestrictive:
		return "restrictive"
	case IndeterminateLenient:
		return "lenient"
	default:
		return "unknown"
	}
}

// Threshold fit coefficients, sand/silt/clay order.
var (
	densityACoef = [3]float64{0.0165, 0.0130, 0.0125}
	densityBCoef = [3]float64{0.002081, 0.003912, 0.0024351}
)

// textureSumTolerance is how far the sand/silt/clay total may stray from
// 100 percent before the test is considered undecidable.
const textureSumTolerance = 0.05

// CheckDensity reports whether a horizon is too dense for commodity crop
// roots, comparing bulk density against a linear fit of the fine earth
// fractions: a = db - sum(txt*aCoef), b = sum(txt*bCoef), dense iff a > b.
//
// One missing texture fraction is backfilled so the three total 100. More
// than one missing fraction, a total away from 100, or a missing bulk
// density make the test undecidable, and the policy's verdict is returned.
// Bulk density at or below 1.45 is never dense regardless of texture.
func CheckDensity(db, sand, silt, clay float64, policy DensityPolicy) bool {
	indeterminate := policy == IndeterminateRestrictive

	txt := [3]float64{sand, silt, clay}
	missing := 0
	sum := 0.0
	for _, v := range txt {
		if math.IsNaN(v) {
			missing++
		} else {
			sum += v
		}
	}
	switch {
	case missing == 1:
		for i, v := range txt {
			if math.IsNaN(v) {
				txt[i] = 100 - sum
			}
		}
		sum = 100
	case missing > 1:
		return indeterminate
	}
	if math.Abs(sum-100) > textureSumTolerance {
		return indeterminate
	}
	if math.IsNaN(db) || db == 0 {
		return indeterminate
	}
	if db <= 1.45 {
		return false
	}

	a := db
	b := 0.0
	for i, v := range txt {
		a -= v * densityACoef[i]
		b += v * densityBCoef[i]
	}
	return a > b
}
