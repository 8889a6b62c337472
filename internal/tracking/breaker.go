package tracking

import (
	"sync"
	"time"
)

// BreakerState represents the state of the beacon dispatch breaker
type BreakerState int

const (
	// BreakerClosed indicates normal dispatch
	BreakerClosed BreakerState = iota
	// BreakerOpen indicates dispatch is suspended after repeated failures
	BreakerOpen
	// BreakerHalfOpen indicates a single probe beacon is allowed through
	BreakerHalfOpen
)

// String returns the string representation of BreakerState
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker keeps a dead tracking host from stalling beacon dispatch.
// Consecutive failures past the threshold open it; after the cooldown one
// probe beacon is admitted, and its outcome closes or reopens the breaker.
// Beacons blocked while open are dropped, never queued.
type Breaker struct {
	failureThreshold int
	cooldown         time.Duration
	state            BreakerState
	failures         int
	lastFailure      time.Time
	mu               sync.Mutex
}

// NewBreaker creates a dispatch breaker with the given threshold and cooldown
func NewBreaker(failureThreshold int, cooldown time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		state:            BreakerClosed,
	}
}

// Allow reports whether a beacon may be attempted now. An open breaker whose
// cooldown has elapsed moves to half-open and admits the call as a probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if time.Since(b.lastFailure) >= b.cooldown {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	}
	return false
}

// Success resets the failure streak and closes a half-open breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.state = BreakerClosed
	}
}

// Failure records a failed dispatch. The breaker opens once consecutive
// failures reach the threshold; a failed half-open probe reopens immediately.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		return
	}
	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = BreakerOpen
	}
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}
