// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using -ldflags
var (
	Version   = "0.3.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version for the about box and -version flags.
func String() string {
	return fmt.Sprintf("product-studio %s (%s, built %s)", Version, GitCommit, BuildTime)
}
