package fuse

import (
	"testing"
	"time"
)

func TestConstantBackoff(t *testing.T) {
	b := ConstantBackoff(250 * time.Millisecond)

	for attempt := range 5 {
		if got := b.Delay(attempt); got != 250*time.Millisecond {
			t.Fatalf("Delay(%d) = %v, want 250ms", attempt, got)
		}
	}
}

func TestLinearBackoff(t *testing.T) {
	b := LinearBackoff(100 * time.Millisecond)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 100 * time.Millisecond},
		{attempt: 1, want: 200 * time.Millisecond},
		{attempt: 4, want: 500 * time.Millisecond},
	}

	for _, tc := range cases {
		if got := b.Delay(tc.attempt); got != tc.want {
			t.Fatalf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(100 * time.Millisecond)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 100 * time.Millisecond},
		{attempt: 1, want: 200 * time.Millisecond},
		{attempt: 3, want: 800 * time.Millisecond},
	}

	for _, tc := range cases {
		if got := b.Delay(tc.attempt); got != tc.want {
			t.Fatalf("Delay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestExponentialJitterBackoffBounds(t *testing.T) {
	base := 100 * time.Millisecond
	b := ExponentialJitterBackoff(base)

	for attempt := range 6 {
		limit := base * (1 << attempt)

		// Jitter is random: sample repeatedly and check the bounds.
		for range 50 {
			got := b.Delay(attempt)
			if got < 0 || got > limit {
				t.Fatalf(
					"Delay(%d) = %v, want in [0, %v]",
					attempt, got, limit,
				)
			}
		}
	}
}

func TestBackoffFuncAdapter(t *testing.T) {
	b := BackoffFunc(func(attempt int) time.Duration {
		return time.Duration(attempt) * time.Second
	})

	if got := b.Delay(3); got != 3*time.Second {
		t.Fatalf("Delay(3) = %v, want 3s", got)
	}
}
