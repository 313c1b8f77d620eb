// Package version holds the build version reported by `autolint --version`.
package version

// Version is set at build time via ldflags:
//
//	-ldflags "-X github.com/fmontoto/autolint/internal/version.Version=v1.0.0"
//
// When built without ldflags it defaults to "dev".
var Version = "dev"

// String renders the version line printed by the CLI.
func String() string {
	return "autolint " + Version
}
