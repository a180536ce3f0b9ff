package ratelimit

import (
	"testing"
	"time"
)

func TestIntervalAllow(t *testing.T) {
	i := NewInterval(50 * time.Millisecond)

	if !i.Allow() {
		t.Error("Expected first call to be allowed")
	}
	if i.Allow() {
		t.Error("Expected immediate second call to be denied")
	}

	time.Sleep(60 * time.Millisecond)
	if !i.Allow() {
		t.Error("Expected call after the interval to be allowed")
	}
}

func TestIntervalWaitSpacing(t *testing.T) {
	i := NewInterval(time.Second)

	var slept []time.Duration
	i.sleep = func(d time.Duration) { slept = append(slept, d) }

	i.Wait()
	if len(slept) != 0 {
		t.Errorf("Expected first Wait to not sleep, slept %v", slept)
	}

	i.Wait()
	if len(slept) != 1 {
		t.Fatalf("Expected second Wait to sleep once, got %d sleeps", len(slept))
	}
	if slept[0] <= 0 || slept[0] > time.Second {
		t.Errorf("Unexpected sleep duration %v", slept[0])
	}
}

func TestIntervalReservesSlotBeforeSleeping(t *testing.T) {
	i := NewInterval(time.Second)
	i.sleep = func(time.Duration) {}

	i.Wait()
	i.Wait()
	i.Wait()

	// Each Wait advances the reservation, so a following Allow is denied
	if i.Allow() {
		t.Error("Expected Allow to be denied while reservations are pending")
	}
}

func TestIntervalReset(t *testing.T) {
	i := NewInterval(time.Hour)

	if !i.Allow() {
		t.Fatal("Expected first call to be allowed")
	}
	if i.Allow() {
		t.Fatal("Expected second call to be denied")
	}

	i.Reset()
	if !i.Allow() {
		t.Error("Expected call after Reset to be allowed")
	}
}

func TestIntervalZeroSpacing(t *testing.T) {
	i := NewInterval(0)
	for n := 0; n < 3; n++ {
		if !i.Allow() {
			t.Fatalf("Expected call %d to be allowed with zero spacing", n+1)
		}
	}
}

func TestSlidingWindow(t *testing.T) {
	sw := NewSlidingWindow(3, time.Second)

	for n := 0; n < 3; n++ {
		if !sw.Allow() {
			t.Errorf("Expected request %d to be allowed", n+1)
		}
	}

	if sw.Allow() {
		t.Error("Expected request to be denied when limit is reached")
	}

	time.Sleep(time.Second + 100*time.Millisecond)
	if !sw.Allow() {
		t.Error("Expected request to be allowed after window slides")
	}

	sw.Reset()
	if len(sw.requests) != 0 {
		t.Error("Expected Reset to clear recorded requests")
	}
}
