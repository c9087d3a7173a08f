package fuse

import "context"

// DoFallback runs fn and substitutes fallbackVal for any error. The error
// is swallowed; observers see it through the OnFallbackUsed hook.
//
//nolint:ireturn,unparam // T is a type parameter; the nil error is the point.
func DoFallback[T any](
	ctx context.Context,
	fn func(context.Context) (T, error),
	fallbackVal T,
	hooks *Hooks,
) (T, error) {
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	hooks.emitFallbackUsed(err)

	return fallbackVal, nil
}

// DoFallbackFunc runs fn and, on error, hands the error to fallbackFn for a
// substitute result. fallbackFn may itself fail, in which case its error is
// what the caller sees.
//
//nolint:ireturn // T is a type parameter.
func DoFallbackFunc[T any](
	ctx context.Context,
	fn func(context.Context) (T, error),
	fallbackFn func(error) (T, error),
	hooks *Hooks,
) (T, error) {
	result, err := fn(ctx)
	if err == nil {
		return result, nil
	}

	hooks.emitFallbackUsed(err)

	return fallbackFn(err) //nolint:wrapcheck // fallback's error, as-is
}
