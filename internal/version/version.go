package version

import "fmt"

// ProductName is the human-readable application name.
const ProductName = "Universal Android Debloater Next Generation"

var (
	// Version is the version of the build, injected via
	// -ldflags "-X github.com/oshokin/uadng/internal/version.Version=1.2.0".
	// Development builds keep "dev", which never sorts below a numeric release tag.
	Version = "dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the version string compared against release tags.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit and build time.
func Full() string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s", ProductName, Version, Commit, BuildTime)
}
