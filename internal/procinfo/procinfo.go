// Package procinfo reports runtime statistics about the current process for
// the jsk status summary.
package procinfo

import (
	"fmt"
	"os"
	"runtime"
)

// Summary returns human-readable lines describing the Go runtime and the
// process footprint.
func Summary() []string {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	lines := []string{
		fmt.Sprintf("Running on %s %s/%s, PID %d", runtime.Version(), runtime.GOOS, runtime.GOARCH, os.Getpid()),
		fmt.Sprintf("Using %s heap (%s from OS), %d goroutine(s), %d GC cycle(s)",
			NaturalSize(ms.HeapAlloc), NaturalSize(ms.Sys), runtime.NumGoroutine(), ms.NumGC),
	}
	if rss, ok := residentSetSize(); ok {
		lines = append(lines, fmt.Sprintf("Resident set %s", NaturalSize(rss)))
	}
	return lines
}

// NaturalSize renders a byte count with a binary unit, e.g. "3.52 MiB".
func NaturalSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
