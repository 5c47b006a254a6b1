package rtlog

import (
	"fmt"
	"runtime"
	"time"
)

// Heartbeat detail levels for LogHeartbeat
const (
	HeartbeatProc = 1 // Logger counters
	HeartbeatSink = 2 // Plus sink counters
	HeartbeatSys  = 3 // Plus runtime memory and goroutines
)

// LogHeartbeat emits the logger's own statistics under tag "rtlog" at info
// severity. Records bypass the rate limiter so they survive a log storm.
func (l *Logger) LogHeartbeat(level int) {
	if level >= HeartbeatProc {
		l.logProcHeartbeat()
	}

	if level >= HeartbeatSink {
		l.logSinkHeartbeat()
	}

	if level >= HeartbeatSys {
		l.logSysHeartbeat()
	}
}

// logProcHeartbeat logs pipeline statistics
func (l *Logger) logProcHeartbeat() {
	sequence := l.state.HeartbeatSequence.Add(1)

	var uptimeHours float64
	if startTime, ok := l.state.LoggerStartTime.Load().(time.Time); ok && !startTime.IsZero() {
		uptimeHours = time.Since(startTime).Hours()
	}

	pool := l.pool.Load()
	procArgs := []any{
		"type", "proc",
		"sequence", sequence,
		"uptime_hours", fmt.Sprintf("%.2f", uptimeHours),
		"accepted_logs", l.state.Accepted.Load(),
		"rate_dropped_logs", l.limiter.Dropped(),
		"lock_timeouts", l.LockTimeouts(),
		"pool_fallbacks", pool.Fallbacks(),
		"native_writes", l.state.FallbackWrites.Load(),
	}

	if dropped := l.notifier.Dropped(); dropped > 0 {
		procArgs = append(procArgs, "subscriber_dropped", dropped)
	}

	l.writeHeartbeatRecord(procArgs)
}

// logSinkHeartbeat logs device pressure statistics
func (l *Logger) logSinkHeartbeat() {
	st := l.SinkStats()

	sinkArgs := []any{
		"type", "sink",
		"sequence", l.state.HeartbeatSequence.Load(),
		"sinks", len(*l.sinks.Load()),
		"dropped_messages", st.DroppedMessages,
		"dropped_bytes", st.DroppedBytes,
		"partial_writes", st.PartialWrites,
		"lock_contention", st.LockContention,
		"buffer_full", st.BufferFull,
	}

	if c := l.console.Load(); c != nil {
		sinkArgs = append(sinkArgs, "console_available", c.Available())
	}

	l.writeHeartbeatRecord(sinkArgs)
}

// logSysHeartbeat logs system/runtime statistics heartbeat
func (l *Logger) logSysHeartbeat() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	sysArgs := []any{
		"type", "sys",
		"sequence", l.state.HeartbeatSequence.Load(),
		"alloc_mb", fmt.Sprintf("%.2f", float64(memStats.Alloc)/(1000*1000)),
		"sys_mb", fmt.Sprintf("%.2f", float64(memStats.Sys)/(1000*1000)),
		"num_gc", memStats.NumGC,
		"num_goroutine", runtime.NumGoroutine(),
	}

	l.writeHeartbeatRecord(sysArgs)
}

func (l *Logger) writeHeartbeatRecord(args []any) {
	l.emit("", SeverityInfo, heartbeatTag, bodyValues, "", args, true, false)
}
