package fuse

import "sync/atomic"

// Bulkhead caps how many calls run against a resource at once. Slot
// accounting is a single atomic counter claimed through CAS, so Acquire
// never blocks.
type Bulkhead struct {
	hooks         *Hooks
	maxConcurrent int64
	inFlight      atomic.Int64
}

// NewBulkhead creates a bulkhead admitting at most maxConcurrent
// simultaneous calls.
func NewBulkhead(maxConcurrent int, hooks *Hooks) *Bulkhead {
	return &Bulkhead{
		maxConcurrent: int64(maxConcurrent),
		hooks:         hooks,
	}
}

// Acquire claims a slot, or returns [ErrBulkheadFull] when none is free.
// Every successful Acquire must be paired with a Release.
func (b *Bulkhead) Acquire() error {
	for {
		cur := b.inFlight.Load()
		if cur >= b.maxConcurrent {
			b.hooks.emitBulkheadFull()
			return ErrBulkheadFull
		}

		if b.inFlight.CompareAndSwap(cur, cur+1) {
			b.hooks.emitBulkheadAcquired()
			return nil
		}
	}
}

// Release frees a slot claimed by Acquire.
func (b *Bulkhead) Release() {
	b.inFlight.Add(-1)
	b.hooks.emitBulkheadReleased()
}

// Full reports whether every slot is in use.
func (b *Bulkhead) Full() bool {
	return b.inFlight.Load() >= b.maxConcurrent
}
