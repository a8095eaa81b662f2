// Package version exposes build-time version information for the challenge backend.
package version

// These are set at build time via -ldflags.
var (
	// Version is the semantic version of the build
	Version = "dev"
	// Commit is the git commit hash of the build
	Commit = "unknown"
	// BuildTime is the RFC3339 timestamp of the build
	BuildTime = "unknown"
)
