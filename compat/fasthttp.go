package compat

import (
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/rtlog"
)

// FastHTTPTag is the tag fasthttp's messages are logged under.
const FastHTTPTag = "fasthttp"

var _ fasthttp.Logger = (*FastHTTPAdapter)(nil)

// FastHTTPAdapter wraps rtlog.Logger to implement fasthttp Logger interface
type FastHTTPAdapter struct {
	logger        *rtlog.Logger
	tag           string
	defaultLevel  rtlog.Severity
	levelDetector func(string) rtlog.Severity // Function to detect log level from message
}

// NewFastHTTPAdapter creates a new fasthttp-compatible logger adapter
func NewFastHTTPAdapter(logger *rtlog.Logger, opts ...FastHTTPOption) *FastHTTPAdapter {
	adapter := &FastHTTPAdapter{
		logger:        logger,
		tag:           FastHTTPTag,
		defaultLevel:  rtlog.SeverityInfo,
		levelDetector: DetectLogLevel, // Default level detection
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// FastHTTPOption allows customizing adapter behavior
type FastHTTPOption func(*FastHTTPAdapter)

// WithDefaultLevel sets the default log level for Printf calls
func WithDefaultLevel(level rtlog.Severity) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.defaultLevel = level
	}
}

// WithLevelDetector sets a custom function to detect log level from message
// content. Returning SeverityNone keeps the default level.
func WithLevelDetector(detector func(string) rtlog.Severity) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		a.levelDetector = detector
	}
}

// WithFastHTTPTag overrides the tag
func WithFastHTTPTag(tag string) FastHTTPOption {
	return func(a *FastHTTPAdapter) {
		if tag != "" {
			a.tag = tag
		}
	}
}

// Printf implements fasthttp's Logger interface
func (a *FastHTTPAdapter) Printf(format string, args ...any) {
	level := a.defaultLevel
	if a.levelDetector == nil {
		a.logger.Log(level, a.tag, format, args...)
		return
	}

	msg := fmt.Sprintf(format, args...)
	if detected := a.levelDetector(msg); detected != rtlog.SeverityNone {
		level = detected
	}
	a.logger.Log(level, a.tag, "%s", msg)
}

// DetectLogLevel attempts to detect log level from message content
func DetectLogLevel(msg string) rtlog.Severity {
	msgLower := strings.ToLower(msg)

	// Check for error indicators
	if strings.Contains(msgLower, "error") ||
		strings.Contains(msgLower, "failed") ||
		strings.Contains(msgLower, "fatal") ||
		strings.Contains(msgLower, "panic") {
		return rtlog.SeverityError
	}

	// Check for warning indicators
	if strings.Contains(msgLower, "warn") ||
		strings.Contains(msgLower, "deprecated") {
		return rtlog.SeverityWarn
	}

	// Check for debug indicators
	if strings.Contains(msgLower, "debug") ||
		strings.Contains(msgLower, "trace") {
		return rtlog.SeverityDebug
	}

	return rtlog.SeverityInfo
}
