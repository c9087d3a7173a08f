package fuse

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy determines the delay between retry attempts.
//
// Pattern: Strategy — swap backoff algorithms (constant, exponential, linear,
// jitter) without changing retry logic.
type BackoffStrategy interface {
	// Delay returns the duration to wait before the given retry attempt
	// (0-indexed: attempt 0 is the delay before the first retry).
	Delay(attempt int) time.Duration
}

// BackoffFunc adapts an ordinary function into a [BackoffStrategy].
// This allows callers to provide ad-hoc backoff logic without defining a type.
type BackoffFunc func(attempt int) time.Duration

// Delay calls the underlying function.
func (f BackoffFunc) Delay(attempt int) time.Duration { return f(attempt) }

type (
	constantBackoff    time.Duration
	linearBackoff      time.Duration
	exponentialBackoff struct {
		base   time.Duration
		jitter bool
	}
)

func (b constantBackoff) Delay(int) time.Duration { return time.Duration(b) }

func (b linearBackoff) Delay(attempt int) time.Duration {
	return time.Duration(b) * time.Duration(attempt+1)
}

func (b exponentialBackoff) Delay(attempt int) time.Duration {
	limit := int64(float64(b.base) * math.Pow(2, float64(attempt)))
	if limit <= 0 {
		return 0
	}

	if b.jitter {
		return time.Duration(rand.Int64N(limit + 1))
	}

	return time.Duration(limit)
}

// ConstantBackoff returns a [BackoffStrategy] that always returns the fixed
// delay d regardless of the attempt number.
func ConstantBackoff(d time.Duration) BackoffStrategy {
	return constantBackoff(d)
}

// LinearBackoff returns a [BackoffStrategy] whose delay increases linearly:
// step * (attempt + 1).
func LinearBackoff(step time.Duration) BackoffStrategy {
	return linearBackoff(step)
}

// ExponentialBackoff returns a [BackoffStrategy] whose delay doubles with
// each attempt: base * 2^attempt.
func ExponentialBackoff(base time.Duration) BackoffStrategy {
	return exponentialBackoff{base: base}
}

// ExponentialJitterBackoff returns a [BackoffStrategy] whose delay is a
// random duration uniformly distributed in [0, base * 2^attempt]. This
// prevents thundering-herd problems by spreading retries across time.
func ExponentialJitterBackoff(base time.Duration) BackoffStrategy {
	return exponentialBackoff{base: base, jitter: true}
}
