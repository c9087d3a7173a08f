package fuse

import (
	"context"
	"time"
)

// Pattern: Hedged Request — after a delay, fire a second concurrent attempt.
// The first response wins; the other is cancelled. This reduces tail latency
// by racing redundant requests.

// hedgeResult holds the outcome of a hedged call attempt.
type hedgeResult[T any] struct {
	err       error
	val       T
	isPrimary bool
}

// DoHedge executes fn and, if it hasn't completed after delay, fires a second
// concurrent attempt. The first successful response wins; the loser is
// cancelled. If both attempts fail, the first error received is returned.
//
//nolint:ireturn // generic type parameter T, not an interface
func DoHedge[T any](
	ctx context.Context,
	delay time.Duration,
	fn func(context.Context) (T, error),
	hooks *Hooks,
	clock Clock,
) (T, error) {
	var zero T

	// If the parent context is already done, return its error immediately.
	if ctx.Err() != nil {
		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}

	// Buffered for both goroutines so neither blocks after a winner is
	// picked.
	results := make(chan hedgeResult[T], 2)

	primaryCtx, primaryCancel := context.WithCancel(ctx)
	defer primaryCancel()

	go func() {
		v, err := fn(primaryCtx)
		results <- hedgeResult[T]{val: v, err: err, isPrimary: true}
	}()

	timer := clock.NewTimer(delay)

	select {
	case result := <-results:
		// Primary completed before the delay elapsed.
		timer.Stop()
		return result.val, result.err

	case <-timer.C():
		// Delay elapsed; primary is still running. Fire the hedge.
		hooks.emitHedgeTriggered()

		hedgeCtx, hedgeCancel := context.WithCancel(ctx)
		defer hedgeCancel()

		go func() {
			v, err := fn(hedgeCtx)
			results <- hedgeResult[T]{val: v, err: err, isPrimary: false}
		}()

		//nolint:wrapcheck // internal delegation
		return raceHedge(ctx, results, primaryCancel, hedgeCancel, hooks)

	case <-ctx.Done():
		timer.Stop()
		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}
}

// raceHedge waits for results from the primary and hedge goroutines after
// the hedge has fired. It returns the first successful result, or the first
// error received if both fail.
//
//nolint:ireturn,revive // generic type parameter T; argument count justified
// for internal use.
func raceHedge[T any](
	ctx context.Context,
	results chan hedgeResult[T],
	primaryCancel, hedgeCancel context.CancelFunc,
	hooks *Hooks,
) (T, error) {
	var zero T

	select {
	case first := <-results:
		if first.err == nil {
			cancelLoser(first.isPrimary, primaryCancel, hedgeCancel, hooks)
			return first.val, nil
		}

		// First result was an error. Wait for the second.
		select {
		case second := <-results:
			if second.err == nil {
				cancelLoser(second.isPrimary, primaryCancel, hedgeCancel, hooks)
				return second.val, nil
			}

			// Both failed: surface the first error received.
			return zero, first.err

		case <-ctx.Done():
			return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
		}

	case <-ctx.Done():
		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}
}

func cancelLoser(
	winnerIsPrimary bool,
	primaryCancel, hedgeCancel context.CancelFunc,
	hooks *Hooks,
) {
	if winnerIsPrimary {
		hedgeCancel()
		return
	}

	primaryCancel()
	hooks.emitHedgeWon()
}
