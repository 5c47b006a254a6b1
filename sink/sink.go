// Package sink holds the output strategies the logger fans decorated lines out
// to. A Sink receives complete lines and must not retain the slice it is
// handed: the buffer goes back to the pool as soon as Write returns.
package sink

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/rtlog/internal/lock"
	"github.com/lixenwraith/rtlog/platform"
)

const (
	DefaultMinSpace     = 20                     // Device space below which a line is dropped whole
	DefaultLockTimeout  = 100 * time.Millisecond // Synchronized write wait
	DefaultFlushTimeout = 5 * time.Millisecond   // Synchronized flush wait
	HealthyDropLimit    = 100                    // Drops at which a sink stops reporting healthy
	TruncationMarker    = "...\r\n"
)

var markerBytes = []byte(TruncationMarker)

// Sink is an output destination for decorated log lines.
type Sink interface {
	Write(p []byte)
	Flush()
}

// Device is a transmit channel with a bounded, observable buffer.
// Write may block when p exceeds Available. TryWrite never waits: it takes
// as much of p as fits right now, in one step, and returns that count.
type Device interface {
	io.Writer
	TryWrite(p []byte) int
	Available() int
	Flush() error
}

// Stats is a snapshot of a sink's delivery counters.
type Stats struct {
	DroppedMessages uint64
	DroppedBytes    uint64
	PartialWrites   uint64
	LockContention  uint64
	BufferFull      uint64
}

// Monitor is implemented by sinks that can lose data.
type Monitor interface {
	Stats() Stats
	ResetStats()
	Critical() bool
}

type counters struct {
	droppedMessages atomic.Uint64
	droppedBytes    atomic.Uint64
	partialWrites   atomic.Uint64
	lockContention  atomic.Uint64
	bufferFull      atomic.Uint64
}

func (c *counters) drop(n int) {
	c.droppedMessages.Add(1)
	c.droppedBytes.Add(uint64(n))
}

func (c *counters) snapshot() Stats {
	return Stats{
		DroppedMessages: c.droppedMessages.Load(),
		DroppedBytes:    c.droppedBytes.Load(),
		PartialWrites:   c.partialWrites.Load(),
		LockContention:  c.lockContention.Load(),
		BufferFull:      c.bufferFull.Load(),
	}
}

func (c *counters) reset() {
	c.droppedMessages.Store(0)
	c.droppedBytes.Store(0)
	c.partialWrites.Store(0)
	c.lockContention.Store(0)
	c.bufferFull.Store(0)
}

// Option configures a sink
type Option func(*options)

type options struct {
	minSpace     int
	lockTimeout  time.Duration
	flushTimeout time.Duration
	platform     platform.Platform
}

func defaultOptions() options {
	return options{
		minSpace:     DefaultMinSpace,
		lockTimeout:  DefaultLockTimeout,
		flushTimeout: DefaultFlushTimeout,
		platform:     platform.Default(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMinSpace sets the device space below which a line is dropped.
func WithMinSpace(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.minSpace = n
		}
	}
}

// WithLockTimeout sets how long a synchronized write waits for the device lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithFlushTimeout sets how long a synchronized flush waits for the device lock.
func WithFlushTimeout(d time.Duration) Option {
	return func(o *options) { o.flushTimeout = d }
}

// WithPlatform sets the platform consulted for scheduler state.
// Before the scheduler runs, sinks skip their locks.
func WithPlatform(p platform.Platform) Option {
	return func(o *options) {
		if p != nil {
			o.platform = p
		}
	}
}

// deviceLocks maps each Device to the lock every locking sink over it shares.
// Devices remove their entry when closed.
var deviceLocks sync.Map

// lockFor returns the shared lock of d. Devices must be comparable.
func lockFor(d Device) *lock.Timed {
	if m, ok := deviceLocks.Load(d); ok {
		return m.(*lock.Timed)
	}
	m, _ := deviceLocks.LoadOrStore(d, lock.New())
	return m.(*lock.Timed)
}

// forgetDevice drops the shared lock of a closed device.
func forgetDevice(d Device) {
	deviceLocks.Delete(d)
}

// writeBounded writes p without ever waiting on the device. The free space
// seen up front only picks between write, cut and drop; the device's TryWrite
// decides what actually fits, so a concurrent writer taking the space turns
// the write into a cut or a drop rather than a wait. It reports whether p was
// dropped.
func writeBounded(d Device, p []byte, minSpace int, c *counters) bool {
	available := d.Available()
	if available < minSpace {
		c.drop(len(p))
		return true
	}

	line := p
	if len(p) > available {
		keep := available - len(markerBytes)
		if keep <= 0 {
			c.drop(len(p))
			return true
		}
		line = p[:keep]
	}

	n := d.TryWrite(line)
	if n == 0 {
		c.drop(len(p))
		return true
	}
	if n < len(p) {
		d.TryWrite(markerBytes)
		c.partialWrites.Add(1)
		c.droppedBytes.Add(uint64(len(p) - n))
	}
	return false
}
