// Package lock provides the bounded-wait mutex used by every shared structure
// in the logging core. Callers never wait longer than the timeout they pass.
package lock

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Timed is a mutex whose acquisition can be bounded by a timeout.
// The zero value is not usable, use New.
type Timed struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

// New creates an unlocked Timed mutex.
func New() *Timed {
	return &Timed{sem: semaphore.NewWeighted(1)}
}

// TryLock acquires the lock without waiting.
func (m *Timed) TryLock() bool {
	if !m.sem.TryAcquire(1) {
		return false
	}
	m.held.Store(true)
	return true
}

// LockTimeout acquires the lock, waiting at most d. A non-positive d is a zero-wait attempt.
func (m *Timed) LockTimeout(d time.Duration) bool {
	if m.TryLock() {
		return true
	}
	if d <= 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	m.held.Store(true)
	return true
}

// Unlock releases the lock. Unlocking an unlocked Timed is a no-op.
func (m *Timed) Unlock() {
	if m.held.CompareAndSwap(true, false) {
		m.sem.Release(1)
	}
}
