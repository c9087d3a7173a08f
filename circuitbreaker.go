package fuse

import (
	"context"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------.

type (
	circuitBreakerConfig struct {
		isFailure        func(error) bool
		failureThreshold int
		recoveryTimeout  time.Duration
	}

	// CircuitBreakerOption configures a circuit breaker.
	CircuitBreakerOption func(*circuitBreakerConfig)

	// CircuitBreaker tracks the health of a dependency and fails fast when
	// it's down.
	//
	// Pattern: Circuit Breaker — fast-fails calls to an unhealthy downstream
	// after failureThreshold consecutive classified failures; admits trial
	// calls again once recoveryTimeout has elapsed.
	//
	// The committed state is only ever [Closed] or [Open]. [HalfOpen] is a
	// derived view reported by [CircuitBreaker.State] while the breaker is
	// open and the recovery timeout has elapsed; the committed transition out
	// of open happens only when an admitted trial call completes.
	//
	// The mutex guards the (state, failures, lastFailure) triple and is never
	// held while the protected function runs, so slow calls do not block
	// state reads and a protected function may itself call back into the same
	// breaker without deadlocking.
	CircuitBreaker struct {
		clock Clock
		hooks *Hooks
		cfg   circuitBreakerConfig

		mu          sync.Mutex
		state       State     // committed: Closed or Open only
		failures    int       // consecutive classified failures
		lastFailure time.Time // zero unless the breaker has opened
	}
)

func defaultCircuitBreakerConfig() circuitBreakerConfig {
	return circuitBreakerConfig{
		failureThreshold: 5,
		recoveryTimeout:  30 * time.Second,
		isFailure:        func(err error) bool { return err != nil },
	}
}

// FailureThreshold sets the number of consecutive classified failures before
// opening. Values below 1 are clamped to 1.
func FailureThreshold(n int) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		if n < 1 {
			n = 1
		}

		cfg.failureThreshold = n
	}
}

// RecoveryTimeout sets the minimum time after the breaker opens before a
// trial call is admitted. Negative values are clamped to 0.
func RecoveryTimeout(d time.Duration) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		if d < 0 {
			d = 0
		}

		cfg.recoveryTimeout = d
	}
}

// FailureCondition sets the classifier that decides which errors count
// toward the failure threshold. Errors for which the predicate returns false
// propagate to the caller without touching breaker state at all. The default
// classifies every non-nil error as a failure.
//
// Pattern: Strategy — error classification is injected at construction
// instead of being hard-wired to an error hierarchy.
func FailureCondition(pred func(error) bool) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		if pred != nil {
			cfg.isFailure = pred
		}
	}
}

// NewCircuitBreaker creates a circuit breaker with the given options.
// The breaker starts closed with a zero failure count.
func NewCircuitBreaker(
	clock Clock,
	hooks *Hooks,
	opts ...CircuitBreakerOption,
) *CircuitBreaker {
	cfg := defaultCircuitBreakerConfig()
	for _, o := range opts {
		o(&cfg)
	}

	return &CircuitBreaker{
		clock: clock,
		hooks: hooks,
		cfg:   cfg,
	}
}

// ---------------------------------------------------------------------------
// Gating and bookkeeping
// ---------------------------------------------------------------------------.

// Allow checks whether a call should proceed. It returns nil while the
// breaker is closed, and also while it is open but the recovery timeout has
// elapsed — the caller is then admitted as a trial call. It returns
// [ErrCircuitOpen] while the breaker is open and the recovery window has not
// yet elapsed.
//
// Trial admission is deliberately not serialized: several callers racing at
// the window boundary may all observe the elapsed timeout and all be
// admitted. The first recorded outcome then decides the committed state.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()

	rejected := false
	trial := false

	if cb.state == Open {
		if cb.windowElapsedLocked() {
			// Open but the recovery window has elapsed: admit as a trial.
			trial = true
		} else {
			rejected = true
		}
	}

	// Emit with the lock released so hook callbacks may read the breaker.
	cb.mu.Unlock()

	if rejected {
		cb.hooks.emitCircuitRejected()
		return ErrCircuitOpen
	}

	if trial {
		cb.hooks.emitCircuitHalfOpen()
	}

	return nil
}

// Record feeds a call outcome back into the breaker.
//
// A nil err unconditionally resets the breaker to closed with a zero failure
// count. A classified error increments the failure count and opens the
// breaker (stamping the failure time) once the count reaches the threshold;
// a failed trial call therefore re-opens with a refreshed timestamp. An
// unclassified error leaves the breaker untouched.
func (cb *CircuitBreaker) Record(err error) {
	if err == nil {
		cb.recordSuccess()
		return
	}

	if !cb.cfg.isFailure(err) {
		// Outside the classifier: invisible to the breaker.
		return
	}

	cb.recordFailure()
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()

	wasOpen := cb.state == Open
	cb.state = Closed
	cb.failures = 0
	cb.lastFailure = time.Time{}

	cb.mu.Unlock()

	if wasOpen {
		cb.hooks.emitCircuitClose()
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()

	cb.failures++

	opened := false
	if cb.failures >= cb.cfg.failureThreshold {
		// A failure while already open (a failed trial) refreshes the
		// timestamp; the open hook fires only when the observable state
		// actually changes.
		opened = cb.stateLocked() != Open
		cb.state = Open
		cb.lastFailure = cb.clock.Now()
	}

	cb.mu.Unlock()

	if opened {
		cb.hooks.emitCircuitOpen()
	}
}

// windowElapsedLocked reports whether the recovery timeout has elapsed since
// the breaker last opened. Callers must hold cb.mu.
func (cb *CircuitBreaker) windowElapsedLocked() bool {
	return cb.clock.Since(cb.lastFailure) >= cb.cfg.recoveryTimeout
}

// stateLocked derives the externally visible state. Callers must hold cb.mu.
func (cb *CircuitBreaker) stateLocked() State {
	if cb.state == Open && cb.windowElapsedLocked() {
		return HalfOpen
	}

	return cb.state
}

// ---------------------------------------------------------------------------
// Call wrapper
// ---------------------------------------------------------------------------.

// Do executes fn under the breaker's gating policy.
//
// If the breaker is open and the recovery window has not elapsed, Do returns
// [ErrCircuitOpen] without invoking fn. Otherwise fn runs with no breaker
// lock held and its error is fed through [CircuitBreaker.Record] before
// being returned unchanged — the breaker never swallows or wraps the
// underlying error.
//
// The breaker enforces no timeout on fn; cancellation is entirely between
// ctx and fn.
func (cb *CircuitBreaker) Do(
	ctx context.Context,
	fn func(context.Context) error,
) error {
	if err := cb.Allow(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.Record(err)

	return err
}

// Run executes fn through cb and returns its result. This is a convenience
// wrapper for protected functions that return a value.
//
//nolint:ireturn // generic type parameter T, not an interface
func Run[T any](
	ctx context.Context,
	cb *CircuitBreaker,
	fn func(context.Context) (T, error),
) (T, error) {
	var result T

	err := cb.Do(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)

		return fnErr
	})

	return result, err
}

// ---------------------------------------------------------------------------
// Inspection and administrative reset
// ---------------------------------------------------------------------------.

// State returns the externally visible state. While the committed state is
// open and the recovery timeout has elapsed it reports [HalfOpen]; this is a
// pure view and mutates nothing.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.stateLocked()
}

// FailureCount returns the number of consecutive classified failures
// recorded since the last success or reset.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.failures
}

// Reset unconditionally returns the breaker to closed with a zero failure
// count, regardless of current state. It is intended for administrative
// recovery (operator intervention, test teardown) and emits no hooks.
// Resetting an already-closed breaker is a no-op.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = Closed
	cb.failures = 0
	cb.lastFailure = time.Time{}
}
