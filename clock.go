package rtlog

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// Clock supplies the millisecond tick used for envelope timestamps and rate
// windows. The value wraps; consumers only compare differences.
type Clock interface {
	Millis() uint32
}

// cachedClock reads the process-wide time cache, avoiding a syscall per log.
type cachedClock struct {
	cache *timecache.TimeCache
	start time.Time
}

// NewClock returns a Clock counting milliseconds from its creation.
func NewClock() Clock {
	cache := timecache.DefaultCache()
	return &cachedClock{cache: cache, start: cache.CachedTime()}
}

func (c *cachedClock) Millis() uint32 {
	return uint32(c.cache.CachedTime().Sub(c.start) / time.Millisecond)
}

// ManualClock is a Clock advanced by hand, for tests and simulations.
type ManualClock struct {
	ms atomic.Uint32
}

// NewManualClock returns a ManualClock reading start.
func NewManualClock(start uint32) *ManualClock {
	c := &ManualClock{}
	c.ms.Store(start)
	return c
}

func (c *ManualClock) Millis() uint32 { return c.ms.Load() }

// Advance moves the clock forward by d milliseconds, wrapping like hardware.
func (c *ManualClock) Advance(d uint32) { c.ms.Add(d) }

// Set moves the clock to ms.
func (c *ManualClock) Set(ms uint32) { c.ms.Store(ms) }
