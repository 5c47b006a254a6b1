package sink

import (
	"time"

	"github.com/lixenwraith/rtlog/internal/lock"
	"github.com/lixenwraith/rtlog/platform"
)

// Synchronized serializes whole lines on a device with a lock shared by every
// locking sink over the same device. A line whose lock wait times out is
// dropped and counted.
type Synchronized struct {
	device       Device
	mu           *lock.Timed
	platform     platform.Platform
	minSpace     int
	lockTimeout  time.Duration
	flushTimeout time.Duration
	stats        counters
}

// NewSynchronized creates a lock-serialized sink over d.
func NewSynchronized(d Device, opts ...Option) *Synchronized {
	o := buildOptions(opts)
	return &Synchronized{
		device:       d,
		mu:           lockFor(d),
		platform:     o.platform,
		minSpace:     o.minSpace,
		lockTimeout:  o.lockTimeout,
		flushTimeout: o.flushTimeout,
	}
}

// Write writes and flushes p under the device lock so lines never interleave.
func (s *Synchronized) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	if !s.platform.SchedulerRunning() {
		s.device.Write(p)
		return
	}
	if !s.mu.LockTimeout(s.lockTimeout) {
		s.stats.drop(len(p))
		s.stats.lockContention.Add(1)
		return
	}
	defer s.mu.Unlock()

	n, _ := s.device.Write(p)
	if n < len(p) {
		s.stats.droppedBytes.Add(uint64(len(p) - n))
	}
	s.device.Flush()
}

// Flush flushes only if the lock is obtained within the flush timeout.
func (s *Synchronized) Flush() {
	if !s.platform.SchedulerRunning() {
		s.device.Flush()
		return
	}
	if !s.mu.LockTimeout(s.flushTimeout) {
		return
	}
	defer s.mu.Unlock()
	s.device.Flush()
}

func (s *Synchronized) Stats() Stats { return s.stats.snapshot() }

func (s *Synchronized) ResetStats() { s.stats.reset() }

// Critical reports whether the device is nearly full.
func (s *Synchronized) Critical() bool {
	return s.device.Available() < s.minSpace
}
