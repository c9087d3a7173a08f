package fuse

import "time"

// StandardHTTPClient is a starting point for a typical outbound HTTP
// dependency: 5s timeout, three attempts on 100ms exponential backoff, and
// a breaker opening after five failures with a 30s recovery window.
// Append further options before passing the slice to [NewPolicy].
func StandardHTTPClient() []any {
	return []any{
		WithTimeout(5 * time.Second),
		WithRetry(3, ExponentialBackoff(100*time.Millisecond)),
		WithCircuitBreaker(
			FailureThreshold(5),
			RecoveryTimeout(30*time.Second),
		),
	}
}

// AggressiveHTTPClient suits latency-sensitive dependencies: a tight 2s
// timeout, five attempts on 50ms exponential backoff capped at 5s, a
// breaker opening after three failures with 15s recovery, and a bulkhead
// of 20 concurrent calls.
func AggressiveHTTPClient() []any {
	return []any{
		WithTimeout(2 * time.Second),
		WithRetry(
			5,
			ExponentialBackoff(50*time.Millisecond),
			MaxDelay(5*time.Second),
		),
		WithCircuitBreaker(
			FailureThreshold(3),
			RecoveryTimeout(15*time.Second),
		),
		WithBulkhead(20),
	}
}
