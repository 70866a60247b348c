package benchutil

// Shared constants for benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// Standard benchmark sizes (map unit counts) for quick runs.
var BenchmarkSizes = []int{100, 1000, 10000}

// ScalingSizes are larger sizes for comprehensive scaling tests.
// Used with SSURGOAGG_LONG_BENCH=1 environment variable.
var ScalingSizes = []int{10000, 50000, 100000, 250000}
