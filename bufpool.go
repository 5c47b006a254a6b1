package rtlog

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/rtlog/internal/lock"
	"github.com/lixenwraith/rtlog/platform"
)

// PoolOptions tunes a BufferPool.
type PoolOptions struct {
	// Fallback allocates a fresh buffer when every slot is taken.
	// Without it Acquire returns nil.
	Fallback    bool
	LockTimeout time.Duration
	Platform    platform.Platform
}

type poolSlot struct {
	buf   []byte
	inUse atomic.Bool
}

// BufferPool hands out fixed-size byte buffers from a fixed set of slots so
// the logging path does not allocate in steady state. Buffers are zero-filled
// on acquire.
type BufferPool struct {
	slots       []poolSlot
	size        int
	mu          *lock.Timed
	lockTimeout time.Duration
	fallback    bool
	platform    platform.Platform

	fallbacks    atomic.Uint64
	lockTimeouts atomic.Uint64
}

// NewBufferPool creates count slots of size bytes each.
func NewBufferPool(count, size int, opts PoolOptions) *BufferPool {
	if opts.Platform == nil {
		opts.Platform = platform.Default()
	}
	if size < 1 {
		size = 1
	}
	if count < 0 {
		count = 0
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 100 * time.Millisecond
	}
	p := &BufferPool{
		slots:       make([]poolSlot, count),
		size:        size,
		mu:          lock.New(),
		lockTimeout: opts.LockTimeout,
		fallback:    opts.Fallback,
		platform:    opts.Platform,
	}
	for i := range p.slots {
		p.slots[i].buf = make([]byte, size)
	}
	return p
}

// Acquire returns a zeroed buffer of the pool's size. When no slot is free,
// or the pool lock cannot be had in time, it falls back to a fresh allocation
// or returns nil if fallback is disabled.
func (p *BufferPool) Acquire() []byte {
	if buf := p.claim(); buf != nil {
		clear(buf)
		return buf
	}
	p.fallbacks.Add(1)
	if !p.fallback {
		return nil
	}
	return make([]byte, p.size)
}

func (p *BufferPool) claim() []byte {
	if p.platform.SchedulerRunning() {
		if !p.mu.LockTimeout(p.lockTimeout) {
			p.lockTimeouts.Add(1)
			return nil
		}
		defer p.mu.Unlock()
	}
	for i := range p.slots {
		if p.slots[i].inUse.CompareAndSwap(false, true) {
			return p.slots[i].buf
		}
	}
	return nil
}

// Release returns buf to its slot. Buffers that did not come from a slot are
// left to the garbage collector.
func (p *BufferPool) Release(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	head := &buf[:1][0]
	for i := range p.slots {
		if &p.slots[i].buf[0] == head {
			p.slots[i].inUse.Store(false)
			return
		}
	}
}

// InUse returns the number of claimed slots.
func (p *BufferPool) InUse() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].inUse.Load() {
			n++
		}
	}
	return n
}

// Size returns the byte size of each buffer.
func (p *BufferPool) Size() int { return p.size }

// Capacity returns the number of slots.
func (p *BufferPool) Capacity() int { return len(p.slots) }

// Fallbacks returns how often Acquire could not use a slot.
func (p *BufferPool) Fallbacks() uint64 { return p.fallbacks.Load() }

// LockTimeouts returns how often the pool lock wait expired.
func (p *BufferPool) LockTimeouts() uint64 { return p.lockTimeouts.Load() }

// ResetLockTimeouts zeroes the lock timeout counter.
func (p *BufferPool) ResetLockTimeouts() { p.lockTimeouts.Store(0) }
