package compat

import (
	"bytes"
	"log"
	"strings"
	"unsafe"

	"github.com/lixenwraith/rtlog"
	"github.com/lixenwraith/rtlog/platform"
)

// DefaultHookTag is used when an intercepted message carries no "TAG: " prefix.
const DefaultHookTag = "SYS"

// Hook is the entry point a platform's own logging facility is redirected
// into. Messages are logged at the hook severity, INFO by default.
type Hook struct {
	logger   *rtlog.Logger
	platform platform.Platform
	tag      string
	severity rtlog.Severity
}

// HookOption allows customizing hook behavior
type HookOption func(*Hook)

// WithHookTag sets the tag used for messages without a prefix
func WithHookTag(tag string) HookOption {
	return func(h *Hook) {
		if tag != "" {
			h.tag = tag
		}
	}
}

// WithHookSeverity sets the severity intercepted messages are logged at
func WithHookSeverity(severity rtlog.Severity) HookOption {
	return func(h *Hook) {
		h.severity = severity
	}
}

// WithHookPlatform sets the platform used for the readability check
func WithHookPlatform(p platform.Platform) HookOption {
	return func(h *Hook) {
		if p != nil {
			h.platform = p
		}
	}
}

// NewHook creates a hook delivering into logger.
func NewHook(logger *rtlog.Logger, opts ...HookOption) *Hook {
	h := &Hook{
		logger:   logger,
		platform: platform.Default(),
		tag:      DefaultHookTag,
		severity: rtlog.SeverityInfo,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Vprintf accepts one printf-style call from the native facility. A format
// whose memory the platform does not vouch for is dropped without being read.
// The return value is always zero, matching the vprintf hook convention.
func (h *Hook) Vprintf(format string, args ...any) int {
	if !h.readable(format) {
		return 0
	}
	tag, msg := splitTag(format, h.tag)
	h.logger.Log(h.severity, tag, msg, args...)
	return 0
}

func (h *Hook) readable(s string) bool {
	if len(s) == 0 {
		return false
	}
	return h.platform.Readable(uintptr(unsafe.Pointer(unsafe.StringData(s))), len(s))
}

// splitTag separates a leading "TAG:" from the message. The tag must be
// shorter than rtlog.MaxTagLength and free of format verbs so the arguments
// still line up with the message.
func splitTag(format, fallback string) (tag, msg string) {
	colon := strings.IndexByte(format, ':')
	if colon < 0 || colon >= rtlog.MaxTagLength {
		return fallback, format
	}
	tag = format[:colon]
	if strings.ContainsAny(tag, "%\n") {
		return fallback, format
	}
	return tag, strings.TrimLeft(format[colon+1:], " ")
}

// StdLogWriter is an io.Writer for the standard library log package. Each
// write is one message; a trailing newline is dropped.
type StdLogWriter struct {
	hook *Hook
}

// NewStdLogWriter routes writes through h.
func NewStdLogWriter(h *Hook) *StdLogWriter {
	return &StdLogWriter{hook: h}
}

func (w *StdLogWriter) Write(p []byte) (int, error) {
	n := len(p)
	p = bytes.TrimRight(p, "\r\n")
	if len(p) == 0 {
		return n, nil
	}
	tag, msg := splitTag(string(p), w.hook.tag)
	w.hook.logger.LogDirect(w.hook.severity, tag, msg)
	return n, nil
}

// RedirectStdLog sends the standard library logger into the core and returns
// a function restoring the previous output and flags. The logger's native
// fallback keeps writing to the stream captured when it was created, so the
// redirect cannot feed messages back into itself.
func RedirectStdLog(logger *rtlog.Logger, opts ...HookOption) (restore func()) {
	prevOut, prevFlags, prevPrefix := log.Writer(), log.Flags(), log.Prefix()
	log.SetOutput(NewStdLogWriter(NewHook(logger, opts...)))
	log.SetFlags(0)
	log.SetPrefix("")
	return func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
		log.SetPrefix(prevPrefix)
	}
}
