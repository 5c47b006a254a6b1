package rtlog

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/rtlog/sink"
)

// State encapsulates the runtime state of the logger
type State struct {
	IsInitialized  atomic.Bool
	Enabled        atomic.Bool
	ShutdownCalled atomic.Bool

	Accepted              atomic.Uint64 // Messages that passed the filter and the rate limit
	FallbackWrites        atomic.Uint64 // Messages sent to the native facility
	LockTimeouts          atomic.Uint64 // Tag table and backend list waits given up
	SuppressedDiagnostics atomic.Uint64 // Internal diagnostics dropped by throttling

	// Heartbeat statistics
	HeartbeatSequence atomic.Uint64 // Counter for heartbeat sequence numbers
	LoggerStartTime   atomic.Value  // Stores time.Time for uptime calculation
}

// Stats is a point-in-time view of every logger counter.
type Stats struct {
	Accepted       uint64
	RateLimited    uint64
	FallbackWrites uint64
	LockTimeouts   uint64 // Summed over tag table, backend list, rate limiter, pool and subscriber list

	PoolInUse     int
	PoolFallbacks uint64

	SubscriberDropped     uint64
	SubscriberPanics      uint64
	SubscriberForcedStops uint64

	Sinks sink.Stats // Summed over sinks that report statistics

	Uptime time.Duration
}

// Stats collects the current counters.
func (l *Logger) Stats() Stats {
	pool := l.pool.Load()
	s := Stats{
		Accepted:              l.state.Accepted.Load(),
		RateLimited:           l.limiter.Dropped(),
		FallbackWrites:        l.state.FallbackWrites.Load(),
		LockTimeouts:          l.LockTimeouts(),
		PoolInUse:             pool.InUse(),
		PoolFallbacks:         pool.Fallbacks(),
		SubscriberDropped:     l.notifier.Dropped(),
		SubscriberPanics:      l.notifier.Panics(),
		SubscriberForcedStops: l.notifier.ForcedStops(),
		Sinks:                 l.SinkStats(),
	}
	if start, ok := l.state.LoggerStartTime.Load().(time.Time); ok {
		s.Uptime = time.Since(start)
	}
	return s
}

// SinkStats sums the statistics of every sink implementing sink.Monitor.
func (l *Logger) SinkStats() sink.Stats {
	var total sink.Stats
	for _, s := range *l.sinks.Load() {
		m, ok := s.(sink.Monitor)
		if !ok {
			continue
		}
		st := m.Stats()
		total.DroppedMessages += st.DroppedMessages
		total.DroppedBytes += st.DroppedBytes
		total.PartialWrites += st.PartialWrites
		total.LockContention += st.LockContention
		total.BufferFull += st.BufferFull
	}
	return total
}

// DroppedLogs returns the number of messages refused by the rate limiter.
func (l *Logger) DroppedLogs() uint64 {
	return l.limiter.Dropped()
}

// ResetDroppedLogs zeroes the rate limiter drop counter.
func (l *Logger) ResetDroppedLogs() {
	l.limiter.ResetDropped()
}

// LockTimeouts returns the lock waits given up across the logger.
func (l *Logger) LockTimeouts() uint64 {
	return l.state.LockTimeouts.Load() +
		l.limiter.LockTimeouts() +
		l.pool.Load().LockTimeouts() +
		l.notifier.LockTimeouts()
}

// ResetLockTimeouts zeroes every lock timeout counter.
func (l *Logger) ResetLockTimeouts() {
	l.state.LockTimeouts.Store(0)
	l.limiter.ResetLockTimeouts()
	l.pool.Load().ResetLockTimeouts()
	l.notifier.ResetLockTimeouts()
}

// Flush asks every sink to flush. Blocking sinks wait for their device;
// non-blocking sinks return at once.
func (l *Logger) Flush() {
	for _, s := range *l.sinks.Load() {
		s.Flush()
	}
}

// Shutdown stops subscriber delivery, flushes the sinks and closes the console
// device the logger created. Later logging calls do nothing. Calling it again
// is a no-op.
func (l *Logger) Shutdown() error {
	if !l.state.ShutdownCalled.CompareAndSwap(false, true) {
		return nil
	}

	var finalErr error
	if err := l.notifier.Stop(); err != nil {
		finalErr = combineErrors(finalErr, err)
	}

	l.Flush()

	if c := l.console.Swap(nil); c != nil {
		if err := c.Close(); err != nil {
			finalErr = combineErrors(finalErr, fmtErrorf("failed to close console: %w", err))
		}
	}

	l.state.IsInitialized.Store(false)
	return finalErr
}
