package fuse

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoHedgePrimaryWinsBeforeDelay(t *testing.T) {
	// Timers that never fire: the primary must win without a hedge.
	clk := newStubClock()

	var calls atomic.Int64

	got, err := DoHedge(
		context.Background(),
		time.Second,
		func(context.Context) (string, error) {
			calls.Add(1)
			return "primary", nil
		},
		&Hooks{},
		clk,
	)
	if err != nil {
		t.Fatalf("DoHedge() error = %v, want nil", err)
	}
	if got != "primary" {
		t.Fatalf("DoHedge() = %q, want %q", got, "primary")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("fn called %d times, want 1 (no hedge fired)", got)
	}
}

func TestDoHedgeFiresAfterDelay(t *testing.T) {
	// Immediate timers: the hedge fires while the primary is stuck.
	clk := newPolicyClock()

	var triggered, won atomic.Int64
	hooks := &Hooks{
		OnHedgeTriggered: func() { triggered.Add(1) },
		OnHedgeWon:       func() { won.Add(1) },
	}

	var calls atomic.Int64

	got, err := DoHedge(
		context.Background(),
		time.Millisecond,
		func(ctx context.Context) (string, error) {
			if calls.Add(1) == 1 {
				// Primary hangs until cancelled.
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "hedge", nil
		},
		hooks,
		clk,
	)
	if err != nil {
		t.Fatalf("DoHedge() error = %v, want nil", err)
	}
	if got != "hedge" {
		t.Fatalf("DoHedge() = %q, want %q", got, "hedge")
	}
	if got := triggered.Load(); got != 1 {
		t.Fatalf("OnHedgeTriggered fired %d times, want 1", got)
	}
	if got := won.Load(); got != 1 {
		t.Fatalf("OnHedgeWon fired %d times, want 1", got)
	}
}

func TestDoHedgePrimaryErrorHedgeSucceeds(t *testing.T) {
	clk := newPolicyClock()

	var calls atomic.Int64

	got, err := DoHedge(
		context.Background(),
		time.Millisecond,
		func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				// Primary fails slowly enough for the hedge to fire.
				time.Sleep(20 * time.Millisecond)
				return "", errors.New("primary failed")
			}
			return "hedge", nil
		},
		&Hooks{},
		clk,
	)
	if err != nil {
		t.Fatalf("DoHedge() error = %v, want nil", err)
	}
	if got != "hedge" {
		t.Fatalf("DoHedge() = %q, want %q", got, "hedge")
	}
}

func TestDoHedgeBothFailReturnsFirstError(t *testing.T) {
	clk := newPolicyClock()

	errPrimary := errors.New("primary down")
	errHedge := errors.New("hedge down")

	var calls atomic.Int64

	_, err := DoHedge(
		context.Background(),
		time.Millisecond,
		func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				time.Sleep(10 * time.Millisecond)
				return "", errPrimary
			}
			time.Sleep(30 * time.Millisecond)
			return "", errHedge
		},
		&Hooks{},
		clk,
	)
	if err == nil {
		t.Fatal("DoHedge() error = nil, want an error when both attempts fail")
	}
	if !errors.Is(err, errPrimary) && !errors.Is(err, errHedge) {
		t.Fatalf("DoHedge() = %v, want one of the attempt errors", err)
	}
}

func TestDoHedgeParentAlreadyCancelled(t *testing.T) {
	clk := newPolicyClock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	_, err := DoHedge(
		ctx,
		time.Millisecond,
		func(context.Context) (string, error) {
			ran = true
			return "x", nil
		},
		&Hooks{},
		clk,
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DoHedge() = %v, want context.Canceled", err)
	}
	if ran {
		t.Fatal("fn ran despite cancelled parent context")
	}
}
