package fuse

import "sort"

// PatternEntry pairs a middleware with the priority that places it in the
// chain.
type PatternEntry[T any] struct {
	MW       Middleware[T]
	Name     string
	Priority int
}

// Chain position per pattern; lower runs outermost. Fallback wraps
// everything so it catches whatever the inner patterns give up on, and
// hedge sits innermost so each hedged attempt passes the full stack of
// guards on its own.
const (
	priorityFallback       = 0
	priorityTimeout        = 1
	priorityCircuitBreaker = 2
	priorityRateLimiter    = 3
	priorityBulkhead       = 4
	priorityRetry          = 5
	priorityHedge          = 6
)

// SortPatterns orders entries by priority, outermost first, and strips them
// down to their middlewares for [Chain]. The sort is stable, so entries
// sharing a priority keep their declaration order; the input slice is left
// untouched.
func SortPatterns[T any](entries []PatternEntry[T]) []Middleware[T] {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]PatternEntry[T], 0, len(entries))
	sorted = append(sorted, entries...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	mws := make([]Middleware[T], 0, len(sorted))
	for _, e := range sorted {
		mws = append(mws, e.MW)
	}

	return mws
}
