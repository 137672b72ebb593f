// Package version provides build-time version information.
package version

import "fmt"

// Set at build time with -ldflags "-X spectrogram-annotator/internal/version.Version=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for logs, e.g. "v0.1.0 (abc123, built 2024-05-01)".
func String() string {
	return fmt.Sprintf("v%s (%s, built %s)", Version, GitCommit, BuildTime)
}
