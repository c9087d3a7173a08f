package fuse

import (
	"context"
	"time"
)

// DoTimeout bounds fn to the given duration via a derived context. A blown
// deadline yields [ErrTimeout]; cancellation that came from the parent
// context keeps the parent's error so callers can tell the two apart.
//
// fn keeps running on its goroutine after a timeout until it honors the
// cancelled context; its eventual result is dropped.
//
//nolint:ireturn // T is a type parameter.
func DoTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) (T, error),
	hooks *Hooks,
) (T, error) {
	var zero T

	if ctx.Err() != nil {
		return zero, ctx.Err() //nolint:wrapcheck // keep the context error identity
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		err error
		val T
	}

	done := make(chan result, 1)

	go func() {
		v, err := fn(timeoutCtx)
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			// Parent cancelled, not our deadline.
			return zero, ctx.Err() //nolint:wrapcheck // keep the context error identity
		}

		hooks.emitTimeout()

		return zero, ErrTimeout
	}
}
