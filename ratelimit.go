package rtlog

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/rtlog/internal/lock"
	"github.com/lixenwraith/rtlog/platform"
)

// RateLimiter admits at most max messages per fixed window. A max of zero
// admits everything. Window arithmetic is done on a wrapping millisecond tick.
type RateLimiter struct {
	max      atomic.Uint32
	windowMs atomic.Uint32
	timeout  atomic.Int64 // time.Duration

	mu          *lock.Timed
	windowStart uint32
	count       uint32

	clock    Clock
	platform platform.Platform

	accepted     atomic.Uint64
	dropped      atomic.Uint64
	lockTimeouts atomic.Uint64
}

// NewRateLimiter creates a limiter admitting max messages per window.
func NewRateLimiter(max uint32, window time.Duration, clock Clock, p platform.Platform) *RateLimiter {
	if clock == nil {
		clock = NewClock()
	}
	if p == nil {
		p = platform.Default()
	}
	r := &RateLimiter{mu: lock.New(), clock: clock, platform: p}
	r.max.Store(max)
	r.SetWindow(window)
	r.timeout.Store(int64(50 * time.Millisecond))
	return r
}

// Allow reports whether one more message may pass. Before the scheduler runs
// every message passes. If the limiter lock cannot be had in time the message
// is refused and a lock timeout is counted.
func (r *RateLimiter) Allow() bool {
	max := r.max.Load()
	if max == 0 || !r.platform.SchedulerRunning() {
		r.accepted.Add(1)
		return true
	}

	if !r.mu.LockTimeout(time.Duration(r.timeout.Load())) {
		r.lockTimeouts.Add(1)
		return false
	}
	now := r.clock.Millis()
	// Unsigned subtraction stays correct across tick wrap
	elapsed := now - r.windowStart
	allowed := true
	switch {
	case elapsed >= r.windowMs.Load():
		r.windowStart = now
		r.count = 1
	case r.count < max:
		r.count++
	default:
		allowed = false
	}
	r.mu.Unlock()

	if allowed {
		r.accepted.Add(1)
	} else {
		r.dropped.Add(1)
	}
	return allowed
}

// SetMax changes the per-window limit. Zero disables limiting.
func (r *RateLimiter) SetMax(max uint32) { r.max.Store(max) }

// Max returns the per-window limit.
func (r *RateLimiter) Max() uint32 { return r.max.Load() }

// SetWindow changes the window length, rounded down to milliseconds.
func (r *RateLimiter) SetWindow(window time.Duration) {
	ms := uint32(window / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	r.windowMs.Store(ms)
}

// SetLockTimeout changes how long Allow waits for the limiter lock.
func (r *RateLimiter) SetLockTimeout(d time.Duration) { r.timeout.Store(int64(d)) }

func (r *RateLimiter) Accepted() uint64 { return r.accepted.Load() }

func (r *RateLimiter) Dropped() uint64 { return r.dropped.Load() }

func (r *RateLimiter) LockTimeouts() uint64 { return r.lockTimeouts.Load() }

// ResetLockTimeouts zeroes the lock timeout counter.
func (r *RateLimiter) ResetLockTimeouts() { r.lockTimeouts.Store(0) }

// ResetDropped zeroes the dropped counter.
func (r *RateLimiter) ResetDropped() { r.dropped.Store(0) }

// Reset zeroes all counters and starts a fresh window on the next call.
func (r *RateLimiter) Reset() {
	r.accepted.Store(0)
	r.dropped.Store(0)
	r.lockTimeouts.Store(0)
	if r.mu.LockTimeout(time.Duration(r.timeout.Load())) {
		r.windowStart = r.clock.Millis() - r.windowMs.Load()
		r.count = 0
		r.mu.Unlock()
	}
}
