package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/oshokin/uadng/internal/domain/update"
	"github.com/oshokin/uadng/internal/logger"
)

const (
	// DefaultMaxAttempts is the retry budget of one request.
	DefaultMaxAttempts = 5

	// DefaultUserAgent identifies the updater to every host it talks to.
	DefaultUserAgent = "UADNG-Updater/1.0"
)

// drainLimit caps how much of a rejected response body is read before closing it,
// which lets the connection be reused without reading arbitrary payloads.
const drainLimit = 4 << 10

// Policy bounds one retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// Delays is the backoff schedule between attempts.
	Delays []time.Duration
}

// AttemptFunc performs exactly one HTTP request.
type AttemptFunc func(ctx context.Context) (*http.Response, error)

// DefaultPolicy returns five attempts over the 1s, 2s, 3s, 5s, 8s schedule.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delays: []time.Duration{
			1 * time.Second,
			2 * time.Second,
			3 * time.Second,
			5 * time.Second,
			8 * time.Second,
		},
	}
}

// Do drives attempt until it yields a 2xx response or the policy gives up.
// The caller owns the body of the returned response.
//
// Failures are classified as follows:
//   - 429 is retried and counts against MaxAttempts; running out yields update.ErrRateLimited;
//   - a transport error is retried unless it happens on the last attempt, which yields update.ErrTimeout;
//   - any other status stops immediately with update.ErrRateLimited.
func Do(ctx context.Context, policy Policy, attempt AttemptFunc) (*http.Response, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}

	// The counter lives for this call only.
	attempts := 0

	operation := func() (*http.Response, error) {
		attempts++

		response, err := attempt(ctx)
		if err != nil {
			if attempts < policy.MaxAttempts {
				return nil, err
			}

			return nil, backoff.Permanent(
				fmt.Errorf("%w after %d attempts: %w", update.ErrTimeout, attempts, err))
		}

		switch {
		case response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices:
			return response, nil
		case response.StatusCode == http.StatusTooManyRequests:
			discard(response)

			return nil, fmt.Errorf("%w: %s", update.ErrRateLimited, response.Status)
		default:
			discard(response)

			return nil, backoff.Permanent(
				fmt.Errorf("%w: unexpected status %s", update.ErrRateLimited, response.Status))
		}
	}

	notify := func(err error, delay time.Duration) {
		logger.WarnKV(ctx, "Request attempt failed, retrying",
			"attempt", attempts,
			"max_attempts", policy.MaxAttempts,
			"delay", delay,
			"error", err)
	}

	response, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(NewSchedule(policy.Delays)),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return nil, classify(err)
	}

	return response, nil
}

// classify keeps already classified errors and folds the rest (context
// cancellation while sleeping, mostly) into update.ErrDownload.
func classify(err error) error {
	if errors.Is(err, update.ErrTimeout) || errors.Is(err, update.ErrRateLimited) {
		return err
	}

	return fmt.Errorf("%w: %w", update.ErrDownload, err)
}

// discard drains a little of a rejected body and closes it.
func discard(response *http.Response) {
	if response.Body == nil {
		return
	}

	_, _ = io.CopyN(io.Discard, response.Body, drainLimit)
	_ = response.Body.Close()
}
