// Package version holds build information set via ldflags.
package version

import "runtime"

var (
	// Version is the semantic version (e.g., "1.0.0")
	Version = "dev"

	// Commit is the git commit SHA
	Commit = "none"

	// Date is the build date in RFC3339 format
	Date = "unknown"
)

// Full returns the version line printed by `lunchbox --version`.
func Full() string {
	if Version == "dev" {
		return "lunchbox dev (built from source)"
	}
	return "lunchbox " + Version + " (" + Commit + ", " + Date + ")"
}

// UserAgent returns the User-Agent sent with API requests.
func UserAgent() string {
	return "lunchbox/" + Version + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
