// Package version holds build metadata set through -ldflags.
package version

import "fmt"

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}

// String renders the version line shown by --version.
func String() string {
	return fmt.Sprintf("lotgate %s (commit: %s, built: %s)", Version, GitCommit, BuildDate)
}
