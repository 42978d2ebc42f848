// Package version exposes the build identity stamped at link time, falling
// back to module build info when the binary was installed with go install.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags "-X github.com/dolfies/jishaku/internal/version.Version=..."
var (
	Version = ""
	Commit  = ""
)

// String renders a human-readable version like "v1.2.0 (abc1234)".
func String() string {
	v := Version
	if v == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			v = info.Main.Version
		}
	}
	if v == "" || v == "(devel)" {
		v = "devel"
	}
	if Commit != "" {
		short := Commit
		if len(short) > 7 {
			short = short[:7]
		}
		return fmt.Sprintf("%s (%s)", v, short)
	}
	return v
}
