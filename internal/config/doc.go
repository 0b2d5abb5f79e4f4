// Package config defines updater settings and provides helpers to load,
// validate and save them in YAML format.
//
// A missing settings file is not an error: Load falls back to Default, which
// targets the upstream GitHub repository with the stock retry policy.
package config
