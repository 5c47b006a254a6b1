package sink

import (
	"github.com/lixenwraith/rtlog/internal/lock"
	"github.com/lixenwraith/rtlog/platform"
)

// NonBlocking never waits on the device. Lines that meet a nearly full device
// are dropped, lines longer than the free space are cut and marked.
// Flush is a no-op: a hardware flush can stall for seconds.
type NonBlocking struct {
	device   Device
	minSpace int
	stats    counters
}

// NewNonBlocking creates the default sink strategy over d.
func NewNonBlocking(d Device, opts ...Option) *NonBlocking {
	o := buildOptions(opts)
	return &NonBlocking{device: d, minSpace: o.minSpace}
}

func (s *NonBlocking) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	writeBounded(s.device, p, s.minSpace, &s.stats)
}

func (s *NonBlocking) Flush() {}

func (s *NonBlocking) Stats() Stats { return s.stats.snapshot() }

func (s *NonBlocking) ResetStats() { s.stats.reset() }

// Critical reports whether the device is below the drop threshold.
func (s *NonBlocking) Critical() bool {
	return s.device.Available() < s.minSpace
}

// ThreadSafeNonBlocking adds the shared device lock to NonBlocking, taken
// without waiting. A busy lock drops the line.
type ThreadSafeNonBlocking struct {
	device   Device
	mu       *lock.Timed
	platform platform.Platform
	minSpace int
	stats    counters
}

// NewThreadSafeNonBlocking creates a lock-serialized sink that never waits.
func NewThreadSafeNonBlocking(d Device, opts ...Option) *ThreadSafeNonBlocking {
	o := buildOptions(opts)
	return &ThreadSafeNonBlocking{
		device:   d,
		mu:       lockFor(d),
		platform: o.platform,
		minSpace: o.minSpace,
	}
}

func (s *ThreadSafeNonBlocking) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	if s.platform.SchedulerRunning() {
		if !s.mu.TryLock() {
			s.stats.drop(len(p))
			s.stats.lockContention.Add(1)
			return
		}
		defer s.mu.Unlock()
	}
	if writeBounded(s.device, p, s.minSpace, &s.stats) {
		s.stats.bufferFull.Add(1)
	}
}

func (s *ThreadSafeNonBlocking) Flush() {}

func (s *ThreadSafeNonBlocking) Stats() Stats { return s.stats.snapshot() }

func (s *ThreadSafeNonBlocking) ResetStats() { s.stats.reset() }

func (s *ThreadSafeNonBlocking) Critical() bool {
	return s.device.Available() < s.minSpace
}

// Healthy reports whether fewer than HealthyDropLimit lines were dropped.
func (s *ThreadSafeNonBlocking) Healthy() bool {
	return s.stats.droppedMessages.Load() < HealthyDropLimit
}
