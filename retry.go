package fuse

import (
	"context"
	"fmt"
	"time"
)

type retryConfig struct {
	maxDelay          time.Duration    // 0 leaves the backoff uncapped
	perAttemptTimeout time.Duration    // 0 means attempts share ctx's deadline
	retryIf           func(error) bool // nil falls back to Permanent checks
}

// RetryOption configures retry behavior.
type RetryOption func(*retryConfig)

// MaxDelay caps the delay produced by the backoff strategy.
func MaxDelay(d time.Duration) RetryOption {
	return func(cfg *retryConfig) {
		cfg.maxDelay = d
	}
}

// PerAttemptTimeout gives each attempt its own deadline on top of ctx's.
func PerAttemptTimeout(d time.Duration) RetryOption {
	return func(cfg *retryConfig) {
		cfg.perAttemptTimeout = d
	}
}

// RetryIf adds a predicate consulted after each failure; returning false
// stops retrying immediately. Permanent-marked errors stop retries whether
// or not a predicate is set.
func RetryIf(fn func(error) bool) RetryOption {
	return func(cfg *retryConfig) {
		cfg.retryIf = fn
	}
}

// DoRetry runs fn up to maxAttempts times, sleeping the strategy's delay
// between failures through clock so tests can fake time. Errors marked
// [Permanent] stop the loop at once and come back unwrapped; exhausting
// every attempt returns the last error wrapped in [ErrRetriesExhausted].
//
// Retrying stays out of the circuit breaker on purpose; wrapping DoRetry
// around a breaker is how callers combine the two.
//
//nolint:ireturn // T is a type parameter.
func DoRetry[T any](
	ctx context.Context,
	maxAttempts int,
	strategy BackoffStrategy,
	fn func(context.Context) (T, error),
	hooks *Hooks,
	clock Clock,
	opts ...RetryOption,
) (T, error) {
	var cfg retryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var (
		zero    T
		lastErr error
	)

	for attempt := range maxAttempts {
		result, err := runAttempt(ctx, cfg.perAttemptTimeout, fn)
		if err == nil {
			return result, nil
		}

		lastErr = err

		if IsPermanent(err) {
			return zero, err
		}

		if cfg.retryIf != nil && !cfg.retryIf(err) {
			return zero, err
		}

		// The last attempt neither sleeps nor emits the hook.
		if attempt == maxAttempts-1 {
			break
		}

		hooks.emitRetry(attempt+1, err)

		if sleepErr := sleepBackoff(ctx, clock, cfg.backoff(strategy, attempt)); sleepErr != nil {
			return zero, sleepErr
		}
	}

	return zero, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

//nolint:ireturn // T is a type parameter.
func runAttempt[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(attemptCtx)
}

func (cfg *retryConfig) backoff(strategy BackoffStrategy, attempt int) time.Duration {
	delay := strategy.Delay(attempt)
	if cfg.maxDelay > 0 && delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}

	return delay
}

func sleepBackoff(ctx context.Context, clock Clock, d time.Duration) error {
	timer := clock.NewTimer(d)

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err() //nolint:wrapcheck // keep the context error identity
	}
}
