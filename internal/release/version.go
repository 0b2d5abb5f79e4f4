package release

import (
	"golang.org/x/mod/semver"
)

// CompareMode selects how a release version is ordered against the running one.
type CompareMode string

const (
	// CompareLexical orders versions as plain strings, so "9.0.0" sorts after "10.0.0".
	CompareLexical CompareMode = "lexical"
	// CompareSemver orders versions by semantic version precedence.
	// Versions that are not valid semver fall back to lexical ordering.
	CompareSemver CompareMode = "semver"
)

// IsNewer reports whether latest (already stripped of its prefix) is newer than current.
func IsNewer(latest, current string, mode CompareMode) bool {
	if mode == CompareSemver {
		l, c := "v"+latest, "v"+current
		if semver.IsValid(l) && semver.IsValid(c) {
			return semver.Compare(l, c) > 0
		}
	}

	return latest > current
}
