// Package fuse provides composable resilience patterns for Go applications,
// built around a circuit breaker core.
//
// The circuit breaker ([CircuitBreaker]) wraps calls to an unreliable
// operation, counts consecutive classified failures, and fails fast once a
// threshold is exceeded, later admitting trial calls after a recovery
// timeout. Collaborating patterns (retry, timeout, rate limiting, bulkhead,
// hedging, fallback, stale caching) compose with it through [Policy].
// Policies automatically report health status for readiness probes.
package fuse
