//go:build !unix

package procinfo

func residentSetSize() (uint64, bool) {
	return 0, false
}
