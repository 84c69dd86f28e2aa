package syncqueue

import (
	"testing"
	"time"
)

func TestBackoffMonotonic(t *testing.T) {
	prev := time.Duration(0)
	for attempts := 1; attempts <= 20; attempts++ {
		d := Backoff(attempts)
		if d < prev {
			t.Fatalf("backoff decreased at attempt %d: %v < %v", attempts, d, prev)
		}
		prev = d
	}
}

func TestBackoffCapped(t *testing.T) {
	if d := Backoff(50); d != time.Hour {
		t.Fatalf("expected cap of 1h, got %v", d)
	}
}

func TestBackoffSchedule(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 8 * time.Minute},
	}

	for _, tc := range tests {
		if got := Backoff(tc.attempts); got != tc.want {
			t.Errorf("Backoff(%d) = %v, want %v", tc.attempts, got, tc.want)
		}
	}
}

func TestNextRetryAfterNow(t *testing.T) {
	now := time.Now()
	for attempts := 1; attempts <= 5; attempts++ {
		nr := NextRetry(now, attempts)
		if !nr.After(now) {
			t.Fatalf("next retry not after now for attempt %d", attempts)
		}
	}
}
