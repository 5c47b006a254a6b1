package rtlog

import (
	"fmt"

	"github.com/lixenwraith/rtlog/formatter"
)

// bodyKind selects how the message body is rendered into the first buffer
type bodyKind uint8

const (
	bodyPrintf bodyKind = iota // format with args
	bodyValues                 // args space-separated
	bodyText                   // format copied as is
)

// emit runs one message through the pipeline: filter, rate limit, format,
// notify, decorate, write. Nothing is acquired for a filtered message.
func (l *Logger) emit(task string, severity Severity, tag string, kind bodyKind, format string, args []any, terminate, limited bool) {
	if kind != bodyValues && format == "" {
		return
	}
	if l.state.ShutdownCalled.Load() {
		return
	}
	if !l.IsLevelEnabledForTag(tag, severity) {
		return
	}
	if limited && !l.limiter.Allow() {
		return
	}
	l.state.Accepted.Add(1)

	if tag == "" {
		tag = "?"
	}

	pool := l.pool.Load()
	body := pool.Acquire()
	if body == nil {
		l.state.FallbackWrites.Add(1)
		l.native(severity, tag, l.renderFallback(kind, format, args))
		return
	}
	defer pool.Release(body)

	f := l.formatter.Load()
	msg := body[:l.render(f, body, kind, format, args)]

	l.notifier.Notify(severity, tag, msg)

	line := pool.Acquire()
	if line == nil {
		l.state.FallbackWrites.Add(1)
		l.native(severity, tag, msg)
		return
	}
	defer pool.Release(line)

	if task == "" {
		task = l.platform.TaskName()
	}
	n := f.Envelope(line, formatter.Header{
		Millis: l.clock.Millis(),
		Task:   task,
		Letter: severity.Letter(),
		Tag:    tag,
	}, msg, terminate)
	l.writeSinks(line[:n])
}

// emitInline writes the formatted text to the sinks undecorated.
func (l *Logger) emitInline(format string, args []any) {
	if format == "" || l.state.ShutdownCalled.Load() || !l.state.Enabled.Load() {
		return
	}
	if !l.limiter.Allow() {
		return
	}
	l.state.Accepted.Add(1)

	pool := l.pool.Load()
	body := pool.Acquire()
	if body == nil {
		l.state.FallbackWrites.Add(1)
		l.native(SeverityInfo, inlineTag, l.renderFallback(bodyPrintf, format, args))
		return
	}
	defer pool.Release(body)

	n, _ := formatter.Printf(body, format, args...)
	l.notifier.Notify(SeverityInfo, inlineTag, body[:n])
	l.writeSinks(body[:n])
}

func (l *Logger) render(f *formatter.Formatter, dst []byte, kind bodyKind, format string, args []any) int {
	switch kind {
	case bodyValues:
		return f.Values(dst, args...)
	case bodyText:
		return copy(dst, formatter.Truncate(format, len(dst)))
	default:
		n, _ := formatter.Printf(dst, format, args...)
		return n
	}
}

// renderFallback formats without a pool buffer for the native facility.
func (l *Logger) renderFallback(kind bodyKind, format string, args []any) []byte {
	switch kind {
	case bodyValues:
		b := fmt.Appendln(nil, args...)
		return b[:len(b)-1]
	case bodyText:
		return []byte(format)
	default:
		if len(args) == 0 {
			return []byte(format)
		}
		return fmt.Appendf(nil, format, args...)
	}
}

// writeSinks hands p to every sink in the current list. The list is a
// snapshot; concurrent backend changes affect later messages only.
func (l *Logger) writeSinks(p []byte) {
	for _, s := range *l.sinks.Load() {
		s.Write(p)
	}
}

// noteLockTimeout counts a lock wait the logger gave up on.
func (l *Logger) noteLockTimeout(what string) {
	l.state.LockTimeouts.Add(1)
	l.internalLog("lock timeout on %s\n", what)
}

// internalLog handles writing internal logger diagnostics to stderr, if enabled.
// Diagnostics are throttled so a timeout storm cannot become a stall of its own.
func (l *Logger) internalLog(format string, args ...any) {
	cfg := l.getConfig()
	if cfg == nil || !cfg.InternalErrorsToStderr {
		return
	}
	if !l.diag.Allow() {
		l.state.SuppressedDiagnostics.Add(1)
		return
	}
	fmt.Fprintf(l.stderr, "rtlog: "+format, args...)
}
