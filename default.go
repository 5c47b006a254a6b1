package rtlog

import "sync/atomic"

// Process-wide handle. Nothing is created implicitly: package-level functions
// do nothing until SetDefault is called.
var defaultLogger atomic.Pointer[Logger]

// SetDefault makes l the process-wide logger and returns the previous one.
// Passing nil clears it.
func SetDefault(l *Logger) *Logger {
	return defaultLogger.Swap(l)
}

// Default returns the process-wide logger, or nil.
func Default() *Logger {
	return defaultLogger.Load()
}

// Log formats and emits a message through the default logger
func Log(severity Severity, tag string, format string, args ...any) {
	if l := defaultLogger.Load(); l != nil {
		l.emit("", severity, tag, bodyPrintf, format, args, true, true)
	}
}

// LogDirect emits a preformatted message through the default logger, bypassing the rate limiter
func LogDirect(severity Severity, tag string, msg string) {
	if l := defaultLogger.Load(); l != nil {
		l.LogDirect(severity, tag, msg)
	}
}

// Error logs a message at error severity
func Error(tag string, format string, args ...any) {
	if l := defaultLogger.Load(); l != nil {
		l.emit("", SeverityError, tag, bodyPrintf, format, args, true, true)
	}
}

// Warn logs a message at warn severity
func Warn(tag string, format string, args ...any) {
	if l := defaultLogger.Load(); l != nil {
		l.emit("", SeverityWarn, tag, bodyPrintf, format, args, true, true)
	}
}

// Info logs a message at info severity
func Info(tag string, format string, args ...any) {
	if l := defaultLogger.Load(); l != nil {
		l.emit("", SeverityInfo, tag, bodyPrintf, format, args, true, true)
	}
}

// Debug logs a message at debug severity
func Debug(tag string, format string, args ...any) {
	if l := defaultLogger.Load(); l != nil {
		l.emit("", SeverityDebug, tag, bodyPrintf, format, args, true, true)
	}
}

// Verbose logs a message at verbose severity
func Verbose(tag string, format string, args ...any) {
	if l := defaultLogger.Load(); l != nil {
		l.emit("", SeverityVerbose, tag, bodyPrintf, format, args, true, true)
	}
}

// Flush flushes the default logger's sinks
func Flush() {
	if l := defaultLogger.Load(); l != nil {
		l.Flush()
	}
}
