//go:build unix

package procinfo

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// residentSetSize reads the process RSS via getrusage. ru_maxrss is in
// kilobytes on Linux and bytes on Darwin.
func residentSetSize() (uint64, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, false
	}
	rss := uint64(ru.Maxrss)
	if runtime.GOOS != "darwin" {
		rss *= 1024
	}
	return rss, true
}
