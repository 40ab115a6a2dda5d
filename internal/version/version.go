/*
Package version holds cal-suggest build information.

Values are set via ldflags during build, for example:

	go build -ldflags "-X github.com/khanglvm/cal-suggest/internal/version.Version=v0.3.0"

Unset values leave a "dev" build.
*/
package version

// Version information (set via ldflags during build)
var (
	// Version is the release tag (e.g., v0.3.0)
	Version = "dev"
	// Commit is the short git commit hash
	Commit = "none"
	// Date is the build date in UTC (YYYY-MM-DD)
	Date = "unknown"
)

// GetVersion returns version information as a formatted string
func GetVersion() string {
	return FormatVersion(Version, Commit, Date)
}

// FormatVersion formats version components into a display string
func FormatVersion(version, commit, date string) string {
	if version == "dev" {
		return version + " (development build)"
	}
	return version + " (commit: " + commit + ", built: " + date + ")"
}

// GetVersionComponents returns individual version components
func GetVersionComponents() (version, commit, date string) {
	return Version, Commit, Date
}
