// Package version holds build version information, injected via ldflags.
package version

import "fmt"

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// Commit is the git commit the build was produced from.
	Commit = "none"
	// Date is the build timestamp.
	Date = "unknown"
)

// Info returns a human-readable version string.
func Info() string {
	return fmt.Sprintf("edgerelay %s (commit %s, built %s)", Version, Commit, Date)
}
