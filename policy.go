package fuse

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Policy[T]
// ---------------------------------------------------------------------------

// Policy bundles resilience patterns (timeout, retry, circuit breaker, rate
// limiter, bulkhead, hedge, fallback) into one middleware chain driven by
// [Policy.Do]. Build one with [NewPolicy] and the With* options.
//
// Options come back as any rather than a typed option func: generic option
// values (fallbacks carry T) cannot share a signature with the non-generic
// ones, so construction dispatches on the descriptor's dynamic type instead.
type Policy[T any] struct {
	name  string
	hooks Hooks
	clock Clock
	chain Middleware[T]

	// Stateful patterns, retained for health reporting and admin access.
	entries        []PatternEntry[T]
	circuitBreaker *CircuitBreaker
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead

	deps []HealthReporter

	// Registry the policy registered with; nil for anonymous policies.
	registry *Registry
}

// Name returns the policy's name.
func (p *Policy[T]) Name() string { return p.name }

// Do runs fn through the policy's middleware chain.
func (p *Policy[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	return p.chain(fn)(ctx)
}

// CircuitBreaker returns the policy's circuit breaker, or nil if the policy
// has none. Exposed for administrative operations such as
// [CircuitBreaker.Reset] and for metrics bridges.
func (p *Policy[T]) CircuitBreaker() *CircuitBreaker { return p.circuitBreaker }

// ---------------------------------------------------------------------------
// Option descriptors
// ---------------------------------------------------------------------------

// policyOptionFunc mutates the shared setup state (clock, hooks, registry).
// These run before any pattern descriptor is interpreted.
type policyOptionFunc func(*policyBuilder[struct{}])

// Descriptor types carry a pattern's configuration until NewPolicy resolves
// the clock and hooks it will be built with.
type (
	timeoutDesc struct {
		d time.Duration
	}

	retryDesc struct {
		strategy    BackoffStrategy
		opts        []RetryOption
		maxAttempts int
	}

	circuitBreakerDesc struct {
		opts []CircuitBreakerOption
	}

	rateLimitDesc struct {
		opts []RateLimitOption
		rate float64
	}

	bulkheadDesc struct {
		maxConcurrent int
	}

	hedgeDesc struct {
		delay time.Duration
	}

	fallbackDesc struct {
		val any // T stored as any
	}

	fallbackFuncDesc struct {
		fn any // func(error) (T, error) stored as any
	}

	dependsOnDesc struct {
		reporters []HealthReporter
	}
)

// ---------------------------------------------------------------------------
// With* options
// ---------------------------------------------------------------------------

// WithClock sets the clock shared by every pattern in the policy.
func WithClock(c Clock) any {
	return policyOptionFunc(func(b *policyBuilder[struct{}]) {
		b.clock = c
	})
}

// WithHooks sets the lifecycle hooks shared by every pattern in the policy.
func WithHooks(h Hooks) any {
	return policyOptionFunc(func(b *policyBuilder[struct{}]) {
		b.hooks = h
	})
}

// WithRegistry overrides the registry a named policy registers with.
// Named policies without this option use [DefaultRegistry].
func WithRegistry(reg *Registry) any {
	return policyOptionFunc(func(b *policyBuilder[struct{}]) {
		b.registry = reg
	})
}

// WithTimeout cancels calls that run longer than d.
func WithTimeout(d time.Duration) any {
	return timeoutDesc{d: d}
}

// WithRetry re-invokes failing calls up to maxAttempts times, sleeping
// according to strategy between attempts.
func WithRetry(maxAttempts int, strategy BackoffStrategy, opts ...RetryOption) any {
	return retryDesc{maxAttempts: maxAttempts, strategy: strategy, opts: opts}
}

// WithCircuitBreaker fast-fails calls while the downstream is unhealthy.
// Use [FailureCondition] among opts to control which errors count toward
// the threshold; all other errors pass through the breaker untouched.
func WithCircuitBreaker(opts ...CircuitBreakerOption) any {
	return circuitBreakerDesc{opts: opts}
}

// WithRateLimit caps throughput at rate calls per second via a token bucket.
func WithRateLimit(rate float64, opts ...RateLimitOption) any {
	return rateLimitDesc{rate: rate, opts: opts}
}

// WithBulkhead rejects calls once maxConcurrent are already in flight.
func WithBulkhead(maxConcurrent int) any {
	return bulkheadDesc{maxConcurrent: maxConcurrent}
}

// WithHedge races a second concurrent call started after delay.
func WithHedge(delay time.Duration) any {
	return hedgeDesc{delay: delay}
}

// WithFallback substitutes val when the call fails. val must match the
// policy's type parameter T.
func WithFallback[T any](val T) any {
	return fallbackDesc{val: val}
}

// WithFallbackFunc calls fn with the failure to produce a substitute result.
// fn's signature must be func(error) (T, error) for the policy's T.
func WithFallbackFunc[T any](fn func(error) (T, error)) any {
	return fallbackFuncDesc{fn: fn}
}

// DependsOn declares health dependencies. A critical unhealthy dependency
// degrades this policy's reported health.
func DependsOn(reporters ...HealthReporter) any {
	return dependsOnDesc{reporters: reporters}
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// policyBuilder accumulates state while NewPolicy interprets its options.
// The type parameter on the setup phase is struct{} because clock, hooks,
// and registry do not depend on T; pattern entries are built on the real T
// by the add* methods below.
type policyBuilder[T any] struct {
	clock    Clock
	hooks    Hooks
	registry *Registry

	entries []PatternEntry[T]
	cb      *CircuitBreaker
	rl      *RateLimiter
	bh      *Bulkhead
	deps    []HealthReporter
}

// call is shorthand for the wrapped function type.
type call[T any] = func(context.Context) (T, error)

func (b *policyBuilder[T]) add(priority int, name string, mw Middleware[T]) {
	b.entries = append(b.entries, PatternEntry[T]{
		Priority: priority,
		Name:     name,
		MW:       mw,
	})
}

func (b *policyBuilder[T]) addTimeout(d time.Duration) {
	b.add(priorityTimeout, "timeout", func(next call[T]) call[T] {
		return func(ctx context.Context) (T, error) {
			return DoTimeout[T](ctx, d, next, &b.hooks)
		}
	})
}

func (b *policyBuilder[T]) addRetry(desc retryDesc) {
	b.add(priorityRetry, "retry", func(next call[T]) call[T] {
		return func(ctx context.Context) (T, error) {
			return DoRetry[T](
				ctx, desc.maxAttempts, desc.strategy,
				next, &b.hooks, b.clock, desc.opts...,
			)
		}
	})
}

func (b *policyBuilder[T]) addCircuitBreaker(opts []CircuitBreakerOption) {
	cb := NewCircuitBreaker(b.clock, &b.hooks, opts...)
	b.cb = cb
	b.add(priorityCircuitBreaker, "circuit_breaker", func(next call[T]) call[T] {
		return func(ctx context.Context) (T, error) {
			if err := cb.Allow(); err != nil {
				var zero T
				return zero, err
			}
			val, err := next(ctx)
			cb.Record(err)
			return val, err
		}
	})
}

func (b *policyBuilder[T]) addRateLimit(desc rateLimitDesc) {
	rl := NewRateLimiter(desc.rate, b.clock, &b.hooks, desc.opts...)
	b.rl = rl
	b.add(priorityRateLimiter, "rate_limiter", func(next call[T]) call[T] {
		return func(ctx context.Context) (T, error) {
			if err := rl.Allow(ctx); err != nil {
				var zero T
				return zero, err
			}
			return next(ctx)
		}
	})
}

func (b *policyBuilder[T]) addBulkhead(maxConcurrent int) {
	bh := NewBulkhead(maxConcurrent, &b.hooks)
	b.bh = bh
	b.add(priorityBulkhead, "bulkhead", func(next call[T]) call[T] {
		return func(ctx context.Context) (T, error) {
			if err := bh.Acquire(); err != nil {
				var zero T
				return zero, err
			}
			defer bh.Release()
			return next(ctx)
		}
	})
}

func (b *policyBuilder[T]) addHedge(delay time.Duration) {
	b.add(priorityHedge, "hedge", func(next call[T]) call[T] {
		return func(ctx context.Context) (T, error) {
			return DoHedge[T](ctx, delay, next, &b.hooks, b.clock)
		}
	})
}

func (b *policyBuilder[T]) addFallback(val T) {
	b.add(priorityFallback, "fallback", func(next call[T]) call[T] {
		return func(ctx context.Context) (T, error) {
			return DoFallback[T](ctx, next, val, &b.hooks)
		}
	})
}

func (b *policyBuilder[T]) addFallbackFunc(fn func(error) (T, error)) {
	b.add(priorityFallback, "fallback_func", func(next call[T]) call[T] {
		return func(ctx context.Context) (T, error) {
			return DoFallbackFunc[T](ctx, next, fn, &b.hooks)
		}
	})
}

// NewPolicy builds a [Policy] from the given options. Setup options (clock,
// hooks, registry) are applied first so pattern descriptors see the resolved
// clock and hooks; the resulting middleware entries are then sorted by
// [SortPatterns] and chained. A non-empty name auto-registers the policy.
func NewPolicy[T any](name string, opts ...any) *Policy[T] {
	var setup policyBuilder[struct{}]

	for _, opt := range opts {
		if fn, ok := opt.(policyOptionFunc); ok {
			fn(&setup)
		}
	}

	if setup.clock == nil {
		setup.clock = RealClock{}
	}

	b := policyBuilder[T]{
		clock:    setup.clock,
		hooks:    setup.hooks,
		registry: setup.registry,
	}

	for _, opt := range opts {
		switch desc := opt.(type) {
		case policyOptionFunc:
			// Handled during setup.
		case timeoutDesc:
			b.addTimeout(desc.d)
		case retryDesc:
			b.addRetry(desc)
		case circuitBreakerDesc:
			b.addCircuitBreaker(desc.opts)
		case rateLimitDesc:
			b.addRateLimit(desc)
		case bulkheadDesc:
			b.addBulkhead(desc.maxConcurrent)
		case hedgeDesc:
			b.addHedge(desc.delay)
		case fallbackDesc:
			b.addFallback(desc.val.(T))
		case fallbackFuncDesc:
			b.addFallbackFunc(desc.fn.(func(error) (T, error)))
		case dependsOnDesc:
			b.deps = append(b.deps, desc.reporters...)
		}
	}

	var reg *Registry
	if name != "" {
		reg = b.registry
		if reg == nil {
			reg = DefaultRegistry()
		}
	}

	p := &Policy[T]{
		name:           name,
		hooks:          b.hooks,
		clock:          b.clock,
		chain:          Chain[T](SortPatterns[T](b.entries)...),
		entries:        b.entries,
		circuitBreaker: b.cb,
		rateLimiter:    b.rl,
		bulkhead:       b.bh,
		deps:           b.deps,
		registry:       reg,
	}

	if reg != nil {
		reg.Register(p)
	}

	return p
}
