package fuse

import "errors"

// ResilienceError distinguishes errors emitted by the resilience layer
// (rejections, timeouts, exhaustion) from errors of the protected call.
//
//nolint:iface // exported so consumers can classify rejection errors.
type ResilienceError interface {
	error
	// IsResilience reports whether this error originates from the
	// resilience layer.
	IsResilience() bool
}

// resilienceError backs the sentinel errors below. Being a string type, two
// sentinels with the same text compare equal; each message is unique.
type resilienceError string

func (e resilienceError) Error() string { return string(e) }

// IsResilience reports whether the error is a resilience infrastructure error.
func (resilienceError) IsResilience() bool { return true }

var (
	// ErrCircuitOpen rejects a call while the circuit breaker is open.
	ErrCircuitOpen error = resilienceError("circuit breaker is open")
	// ErrRateLimited rejects a call that found no token in the bucket.
	ErrRateLimited error = resilienceError("rate limited")
	// ErrBulkheadFull rejects a call when every concurrency slot is taken.
	ErrBulkheadFull error = resilienceError("bulkhead full")
	// ErrTimeout reports a call that outran its deadline.
	ErrTimeout error = resilienceError("timeout")
	// ErrRetriesExhausted reports that every retry attempt failed.
	ErrRetriesExhausted error = resilienceError("retries exhausted")
)

// IsCircuitOpen reports whether err means a call was rejected by an open
// circuit breaker, as opposed to the protected operation itself failing.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Transient marks err as retriable. Returns nil for nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

// Permanent marks err as not worth retrying. Returns nil for nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsTransient reports whether err may be retried. Anything not explicitly
// marked permanent counts as transient; nil does not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return !errors.As(err, &pe)
}

// IsPermanent reports whether err was marked permanent somewhere in its
// chain. Returns false for nil and for unclassified errors.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return errors.As(err, &pe)
}
