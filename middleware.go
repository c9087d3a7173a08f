package fuse

import "context"

// Middleware decorates a call: it receives the next function in the chain
// and returns the wrapped version. Each resilience pattern is expressed as
// one of these.
type Middleware[T any] func(next func(context.Context) (T, error)) func(context.Context) (T, error)

// Chain folds middlewares into one. Chain(a, b, c) yields a(b(c(next))),
// so the first argument wraps outermost. With no arguments the result is
// the identity middleware.
func Chain[T any](middlewares ...Middleware[T]) Middleware[T] {
	return func(next func(context.Context) (T, error)) func(context.Context) (T, error) {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}
