// Package ratelimit provides the client-side self-throttle used before
// outbound platform calls and the sliding-window limiter applied to inbound
// requests.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request
	Wait()
	// Reset resets the rate limiter state
	Reset()
}

// Interval enforces a minimum spacing between consecutive calls. It is the
// self-throttle placed in front of platform API calls: Wait sleeps on the
// calling goroutine for at most the configured interval.
type Interval struct {
	minInterval time.Duration
	last        time.Time
	mu          sync.Mutex

	// sleep is replaceable in tests
	sleep func(time.Duration)
}

// NewInterval creates a limiter enforcing the given minimum spacing
func NewInterval(minInterval time.Duration) *Interval {
	return &Interval{
		minInterval: minInterval,
		sleep:       time.Sleep,
	}
}

// Allow reports whether enough time has passed since the previous call,
// recording the call when it has
func (i *Interval) Allow() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	now := time.Now()
	if i.last.IsZero() || now.Sub(i.last) >= i.minInterval {
		i.last = now
		return true
	}
	return false
}

// Wait blocks until the minimum spacing has elapsed, then records the call
func (i *Interval) Wait() {
	i.mu.Lock()
	now := time.Now()
	var sleepFor time.Duration
	if !i.last.IsZero() {
		if elapsed := now.Sub(i.last); elapsed < i.minInterval {
			sleepFor = i.minInterval - elapsed
		}
	}
	i.last = now.Add(sleepFor)
	i.mu.Unlock()

	if sleepFor > 0 {
		i.sleep(sleepFor)
	}
}

// Reset clears the last-call timestamp
func (i *Interval) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.last = time.Time{}
}

// SlidingWindow allows at most maxRequests within a rolling window
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait() {
	for !sw.Allow() {
		sw.mu.Lock()
		if len(sw.requests) > 0 {
			oldest := sw.requests[0]
			timeToWait := sw.windowSize - time.Since(oldest)
			sw.mu.Unlock()
			if timeToWait > 0 {
				time.Sleep(timeToWait)
			}
		} else {
			sw.mu.Unlock()
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}
