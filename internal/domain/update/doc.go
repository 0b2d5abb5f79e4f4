// Package update contains core domain types for the self-update pipeline.
//
// It defines the Outcome of a single update run and the error taxonomy shared
// by every pipeline stage (Timeout, RateLimited, Download, Extraction, InvalidBinary).
package update
