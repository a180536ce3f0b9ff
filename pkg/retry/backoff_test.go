package retry

import (
	"context"
	"testing"
	"time"
)

func TestLinearBackoff(t *testing.T) {
	lb := NewLinearBackoff(5 * time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 15 * time.Second},
	}
	for _, tt := range tests {
		if got := lb.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestLinearBackoffCapsAtMax(t *testing.T) {
	lb := &LinearBackoff{
		BaseDelay: time.Second,
		Increment: time.Second,
		MaxDelay:  3 * time.Second,
	}
	if got := lb.NextDelay(10); got != 3*time.Second {
		t.Errorf("Expected delay capped at 3s, got %v", got)
	}
}

func TestExponentialBackoffGrowth(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
	}

	if got := eb.NextDelay(1); got != time.Second {
		t.Errorf("NextDelay(1) = %v, want 1s", got)
	}
	if got := eb.NextDelay(3); got != 4*time.Second {
		t.Errorf("NextDelay(3) = %v, want 4s", got)
	}
	if got := eb.NextDelay(20); got != time.Minute {
		t.Errorf("Expected delay capped at 1m, got %v", got)
	}
}

func TestExponentialBackoffJitterStaysInBounds(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}

	for i := 0; i < 100; i++ {
		delay := eb.NextDelay(2)
		if delay < 1800*time.Millisecond || delay > 2200*time.Millisecond {
			t.Fatalf("Jittered delay %v outside expected bounds", delay)
		}
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 3 * time.Second}
	for attempt := 1; attempt <= 3; attempt++ {
		if got := cb.NextDelay(attempt); got != 3*time.Second {
			t.Errorf("NextDelay(%d) = %v, want 3s", attempt, got)
		}
	}
	if got := cb.NextDelay(0); got != 0 {
		t.Errorf("NextDelay(0) = %v, want 0", got)
	}
}

func TestWaitCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Wait(ctx, time.Hour); err == nil {
		t.Error("Expected cancellation error from Wait")
	}
	if err := Wait(ctx, 0); err != nil {
		t.Errorf("Expected zero delay to skip the context check, got %v", err)
	}
}
