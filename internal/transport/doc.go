// Package transport is the retry engine shared by the release resolver and
// the archive fetcher.
//
// Every HTTP attempt is classified as success, retryable (429 or a transport
// error before the last attempt) or fatal. Retries follow a fixed backoff
// schedule without jitter; the schedule's last delay is reused once the
// attempt count exceeds its length.
package transport
