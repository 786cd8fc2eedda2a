package ats

import (
	"strconv"
	"time"
)

// MaxAttempts is the total request budget per operation, including the
// first attempt.
const MaxAttempts = 3

// Backoff delays for each attempt (1-indexed):
// attempt 1 runs immediately, attempt 2 after 1s, attempt 3 after 3s.
var backoffDelays = []time.Duration{
	0,
	1 * time.Second,
	3 * time.Second,
}

// RetryDelay returns the delay to wait before the given attempt.
// attempt is 1-indexed; out-of-range values clamp to the table bounds.
func RetryDelay(attempt int) time.Duration {
	index := attempt - 1

	if index < 0 {
		index = 0
	}
	if index >= len(backoffDelays) {
		index = len(backoffDelays) - 1
	}

	return backoffDelays[index]
}

// ParseRetryAfter parses a Retry-After header value given in seconds.
// Returns the duration and true if parsing was successful. HTTP-date
// values are not handled and report false.
func ParseRetryAfter(retryAfter string) (time.Duration, bool) {
	if retryAfter == "" {
		return 0, false
	}

	seconds, err := strconv.Atoi(retryAfter)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
