// Package version holds build information for inferd.
package version

// Overridden at build time:
// go build -ldflags "-X inferd/internal/version.Version=1.0.0 -X inferd/internal/version.Commit=abc123"
var (
	// Version is the semantic version of inferd
	Version = "1.0.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// APIVersion is the version segment of every HTTP route.
const APIVersion = "v1"

// Info returns a short version string, with the abbreviated commit when known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "inferd version " + Version + "\n" +
		"API: " + APIVersion + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate
}
