package transport

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Schedule is a backoff.BackOff that walks a fixed list of delays.
// It is owned by a single Do call and must not be shared.
type Schedule struct {
	delays   []time.Duration
	attempts int
}

var _ backoff.BackOff = (*Schedule)(nil)

// NewSchedule returns a Schedule over a copy of delays.
func NewSchedule(delays []time.Duration) *Schedule {
	return &Schedule{
		delays: append([]time.Duration(nil), delays...),
	}
}

// NextBackOff returns the delay to wait after the attempt that just failed.
func (s *Schedule) NextBackOff() time.Duration {
	s.attempts++

	return Delay(s.delays, s.attempts)
}

// Reset rewinds the schedule to its first entry.
func (s *Schedule) Reset() {
	s.attempts = 0
}

// Delay returns the wait following the given 1-based attempt:
// delays[min(attempt-1, len(delays)-1)]. An empty schedule never waits.
func Delay(delays []time.Duration, attempt int) time.Duration {
	if len(delays) == 0 {
		return 0
	}

	index := min(max(attempt-1, 0), len(delays)-1)

	return delays[index]
}
