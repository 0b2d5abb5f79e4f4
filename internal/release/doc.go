// Package release resolves the latest published release from the GitHub
// Releases API and decides whether it is newer than the running build.
package release
