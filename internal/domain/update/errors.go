package update

import "errors"

var (
	// ErrTimeout is returned when the retry budget is exhausted on network errors.
	ErrTimeout = errors.New("network timeout")
	// ErrRateLimited is returned when the registry keeps rejecting requests as rate-limited
	// or answers with an unexpected status.
	ErrRateLimited = errors.New("github api rate-limited")
	// ErrDownload wraps transport-level faults that are not otherwise classified.
	ErrDownload = errors.New("download failed")
	// ErrExtraction is returned for any failure opening, decompressing or unpacking the archive.
	ErrExtraction = errors.New("failed to extract update")
	// ErrInvalidBinary is returned when the release has no asset or the archive has no matching binary.
	ErrInvalidBinary = errors.New("no valid binary found in archive")
)
