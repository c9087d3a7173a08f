package fuse

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestBulkheadAcquireRelease(t *testing.T) {
	bh := NewBulkhead(2, &Hooks{})

	if err := bh.Acquire(); err != nil {
		t.Fatalf("Acquire() 1 = %v, want nil", err)
	}
	if err := bh.Acquire(); err != nil {
		t.Fatalf("Acquire() 2 = %v, want nil", err)
	}

	if !bh.Full() {
		t.Fatal("Full() = false, want true at capacity")
	}

	if err := bh.Acquire(); !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("Acquire() at capacity = %v, want ErrBulkheadFull", err)
	}

	bh.Release()

	if bh.Full() {
		t.Fatal("Full() = true after Release, want false")
	}
	if err := bh.Acquire(); err != nil {
		t.Fatalf("Acquire() after Release = %v, want nil", err)
	}
}

func TestBulkheadHooks(t *testing.T) {
	var full, acquired, released atomic.Int64

	hooks := &Hooks{
		OnBulkheadFull:     func() { full.Add(1) },
		OnBulkheadAcquired: func() { acquired.Add(1) },
		OnBulkheadReleased: func() { released.Add(1) },
	}

	bh := NewBulkhead(1, hooks)

	_ = bh.Acquire()
	_ = bh.Acquire() // rejected
	bh.Release()

	if got := acquired.Load(); got != 1 {
		t.Fatalf("OnBulkheadAcquired fired %d times, want 1", got)
	}
	if got := full.Load(); got != 1 {
		t.Fatalf("OnBulkheadFull fired %d times, want 1", got)
	}
	if got := released.Load(); got != 1 {
		t.Fatalf("OnBulkheadReleased fired %d times, want 1", got)
	}
}

// Under contention the bulkhead must never admit more than maxConcurrent
// holders at once.
func TestBulkheadConcurrentNeverOversubscribed(t *testing.T) {
	const capacity = 8

	bh := NewBulkhead(capacity, &Hooks{})

	var (
		wg      sync.WaitGroup
		current atomic.Int64
		peak    atomic.Int64
	)

	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if bh.Acquire() != nil {
				return
			}

			cur := current.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}

			current.Add(-1)
			bh.Release()
		}()
	}

	wg.Wait()

	if got := peak.Load(); got > capacity {
		t.Fatalf("peak concurrent holders = %d, want <= %d", got, capacity)
	}
	if bh.Full() {
		t.Fatal("Full() = true after all goroutines released")
	}
}
