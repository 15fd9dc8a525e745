// Package version holds build information for the chunkmap binary.
package version

import "runtime"

// Overridden at build time:
// go build -ldflags "-X chunkmap/internal/version.Version=0.3.0 -X chunkmap/internal/version.Commit=abc123"
var (
	// Version is the semantic version of chunkmap
	Version = "0.3.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns the version, with a short commit when one is known.
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "chunkmap version " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}

// BuildInfo is the machine-readable form of the version information.
type BuildInfo struct {
	Version   string `json:"version" yaml:"version" toml:"version"`
	Commit    string `json:"commit" yaml:"commit" toml:"commit"`
	BuildDate string `json:"buildDate" yaml:"buildDate" toml:"buildDate"`
	Go        string `json:"go" yaml:"go" toml:"go"`
}

// Get returns the current build information.
func Get() BuildInfo {
	return BuildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate, Go: runtime.Version()}
}
