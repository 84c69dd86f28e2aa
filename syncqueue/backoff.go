package syncqueue

import "time"

const (
	// DefaultMaxAttempts number of delivery attempts before an entry is
	// marked failed for good
	DefaultMaxAttempts = 5

	// backoffBase delay after the first failed attempt
	backoffBase = 30 * time.Second
	// backoffCap upper bound on the computed delay
	backoffCap = time.Hour
)

// Backoff returns the retry delay after the given number of failed attempts.
// The delay doubles per attempt from backoffBase and is capped at
// backoffCap, so consecutive recoverable failures always produce
// non-decreasing next_retry times.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}

	d := backoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}

	return d
}

// NextRetry returns the time of the next attempt, given the current time and
// the number of attempts made so far
func NextRetry(now time.Time, attempts int) time.Time {
	return now.Add(Backoff(attempts))
}
