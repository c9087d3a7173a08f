package fuse

import (
	"context"
	"sync/atomic"
	"time"
)

// tokenUnit is one whole token in the bucket's fixed-point representation.
// The 1e9 scale makes elapsed nanoseconds times rate directly usable as a
// token delta.
const tokenUnit int64 = 1_000_000_000

// RateLimiter is a lock-free token bucket. Tokens refill continuously at
// the configured rate; each admitted call consumes one. Both refill and
// acquisition run on atomic CAS loops, so Allow never takes a lock.
type RateLimiter struct {
	clock    Clock
	hooks    *Hooks
	rate     float64 // tokens per second
	capacity int64   // bucket ceiling, fixed-point
	blocking bool

	tokens   atomic.Int64 // fixed-point token balance
	lastNano atomic.Int64 // unix nanos of the last refill
}

// RateLimitOption configures a [RateLimiter].
type RateLimitOption func(*RateLimiter)

// RateLimitBlocking switches the limiter from rejecting to waiting: Allow
// polls for a token until one is available or ctx is done.
func RateLimitBlocking() RateLimitOption {
	return func(rl *RateLimiter) {
		rl.blocking = true
	}
}

// NewRateLimiter creates a limiter admitting rate calls per second. The
// bucket starts full, so an initial burst of up to rate calls passes
// immediately.
func NewRateLimiter(
	rate float64,
	clock Clock,
	hooks *Hooks,
	opts ...RateLimitOption,
) *RateLimiter {
	rl := &RateLimiter{
		clock:    clock,
		hooks:    hooks,
		rate:     rate,
		capacity: int64(rate * float64(tokenUnit)),
	}

	for _, opt := range opts {
		opt(rl)
	}

	rl.tokens.Store(rl.capacity)
	rl.lastNano.Store(clock.Now().UnixNano())

	return rl
}

// Allow consumes a token. Without a token it returns [ErrRateLimited], or,
// in blocking mode, waits for one while honoring ctx cancellation.
func (rl *RateLimiter) Allow(ctx context.Context) error {
	rl.refill()
	if rl.takeToken() {
		return nil
	}

	if !rl.blocking {
		rl.hooks.emitRateLimited()
		return ErrRateLimited
	}

	for {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // keep the context error identity
		}

		timer := rl.clock.NewTimer(time.Millisecond)
		select {
		case <-timer.C():
			rl.refill()
			if rl.takeToken() {
				return nil
			}
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err() //nolint:wrapcheck // keep the context error identity
		}
	}
}

// Saturated reports whether the bucket currently holds no whole token.
func (rl *RateLimiter) Saturated() bool {
	rl.refill()
	return rl.tokens.Load() < tokenUnit
}

// refill credits tokens for the time elapsed since the last refill. The
// outer CAS claims the time window through lastNano; the inner CAS applies
// the credit without exceeding capacity.
func (rl *RateLimiter) refill() {
	for {
		prevNano := rl.lastNano.Load()
		nowNano := rl.clock.Now().UnixNano()

		elapsed := nowNano - prevNano
		if elapsed <= 0 {
			return
		}

		if !rl.lastNano.CompareAndSwap(prevNano, nowNano) {
			// Lost the window to a concurrent refill; re-check the clock.
			continue
		}

		// elapsed nanos * rate is already fixed-point (scale = 1e9).
		credit := int64(float64(elapsed) * rl.rate)
		if credit <= 0 {
			return
		}

		for {
			balance := rl.tokens.Load()

			next := balance + credit
			if next > rl.capacity {
				next = rl.capacity
			}

			if rl.tokens.CompareAndSwap(balance, next) {
				return
			}
		}
	}
}

func (rl *RateLimiter) takeToken() bool {
	for {
		balance := rl.tokens.Load()
		if balance < tokenUnit {
			return false
		}

		if rl.tokens.CompareAndSwap(balance, balance-tokenUnit) {
			return true
		}
	}
}
