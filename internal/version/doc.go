// Package version exposes build metadata for the project.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. Version is the value the self-updater compares against the
// latest release tag.
package version
