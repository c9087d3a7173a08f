package fuse

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoPassthrough(t *testing.T) {
	got, err := Do(context.Background(), func(context.Context) (int, error) {
		return 99, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if got != 99 {
		t.Fatalf("Do() = %d, want 99", got)
	}
}

func TestDoWithRetry(t *testing.T) {
	clk := newPolicyClock()

	attempts := 0
	got, err := Do(
		context.Background(),
		func(context.Context) (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("flaky")
			}
			return "ok", nil
		},
		WithClock(clk),
		WithRetry(3, ConstantBackoff(time.Millisecond)),
	)
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}
	if got != "ok" {
		t.Fatalf("Do() = %q, want %q", got, "ok")
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestDoWithFallback(t *testing.T) {
	got, err := Do(
		context.Background(),
		func(context.Context) (int, error) {
			return 0, errors.New("down")
		},
		WithFallback(7),
	)
	if err != nil {
		t.Fatalf("Do() error = %v, want nil after fallback", err)
	}
	if got != 7 {
		t.Fatalf("Do() = %d, want fallback value 7", got)
	}
}

func TestDoDoesNotRegister(t *testing.T) {
	reg := NewRegistry()

	_, err := Do(
		context.Background(),
		func(context.Context) (int, error) { return 1, nil },
		WithRegistry(reg),
		WithCircuitBreaker(),
	)
	if err != nil {
		t.Fatalf("Do() error = %v, want nil", err)
	}

	status := reg.CheckReadiness()
	if len(status.Policies) != 0 {
		t.Fatalf("anonymous policy registered: %v", status.Policies)
	}
}
