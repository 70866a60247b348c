package benchutil

import (
	"os"
	"testing"
)

// SkipIfNoLongBench skips the benchmark if SSURGOAGG_LONG_BENCH is not set.
// Use this to gate long-running benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	b.Helper()
	if os.Getenv("SSURGOAGG_LONG_BENCH") == "" {
		b.Skip("set SSURGOAGG_LONG_BENCH=1 to run scaling benchmark")
	}
}
