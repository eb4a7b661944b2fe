package ulango

import (
	"fmt"
	"runtime"
)

// Build metadata, overridable at link time:
//
//	go build -ldflags "-X github.com/mahendradw/ulango.Version=v1.2.3"
var (
	Version   = "v0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// UserAgent returns the value sent in the User-Agent header when the
// caller has not set one.
func UserAgent() string {
	return "ulango/" + Version
}

// VersionString returns a single-line description of the build.
func VersionString() string {
	return fmt.Sprintf("ulango %s (commit %s, built %s, %s)",
		Version, GitCommit, BuildDate, runtime.Version())
}
