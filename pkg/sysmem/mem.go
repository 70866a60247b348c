// Package sysmem detects total system RAM with platform-specific
// probes, falling back to a safe default where no probe exists. The
// build memory budget and the external sort use it to size themselves
// to the machine when no explicit limit is configured.
package sysmem

// DefaultMemoryBytes is the fallback (4 GiB) used when platform
// detection fails or is unsupported. Budgets derived from it should be
// treated as conservative guesses, not the real machine size.
const DefaultMemoryBytes uint64 = 4 * 1024 * 1024 * 1024

// Result is one memory probe outcome.
type Result struct {
	// TotalBytes is the total system memory in bytes.
	TotalBytes uint64

	// Reliable is true when the value came from a platform probe and
	// false when it is the fallback default.
	Reliable bool
}

// Total probes the total system memory, returning DefaultMemoryBytes
// with Reliable=false when the platform probe fails or is missing.
func Total() Result {
	bytes, ok := totalSystemMemory()
	if !ok || bytes == 0 {
		return Result{
			TotalBytes: DefaultMemoryBytes,
			Reliable:   false,
		}
	}
	return Result{
		TotalBytes: bytes,
		Reliable:   true,
	}
}

// TotalBytes returns just the memory value. Use Total when the caller
// needs to know whether the value is reliable.
func TotalBytes() uint64 {
	return Total().TotalBytes
}
