package compat

import (
	"fmt"
	"os"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/lixenwraith/rtlog"
)

// GnetTag is the tag gnet's internal messages are logged under.
const GnetTag = "gnet"

var _ logging.Logger = (*GnetAdapter)(nil)

// GnetAdapter wraps rtlog.Logger to implement gnet logging.Logger interface
type GnetAdapter struct {
	logger       *rtlog.Logger
	tag          string
	fatalHandler func(msg string) // Customizable fatal behavior
}

// NewGnetAdapter creates a new gnet-compatible logger adapter
func NewGnetAdapter(logger *rtlog.Logger, opts ...GnetOption) *GnetAdapter {
	adapter := &GnetAdapter{
		logger: logger,
		tag:    GnetTag,
		fatalHandler: func(msg string) {
			os.Exit(1) // Default behavior matches gnet expectations
		},
	}

	for _, opt := range opts {
		opt(adapter)
	}

	return adapter
}

// GnetOption allows customizing adapter behavior
type GnetOption func(*GnetAdapter)

// WithFatalHandler sets a custom fatal handler
func WithFatalHandler(handler func(string)) GnetOption {
	return func(a *GnetAdapter) {
		a.fatalHandler = handler
	}
}

// WithGnetTag overrides the tag, so gnet output can get its own level
func WithGnetTag(tag string) GnetOption {
	return func(a *GnetAdapter) {
		if tag != "" {
			a.tag = tag
		}
	}
}

func (a *GnetAdapter) Debugf(format string, args ...any) {
	a.logger.Log(rtlog.SeverityDebug, a.tag, format, args...)
}

func (a *GnetAdapter) Infof(format string, args ...any) {
	a.logger.Log(rtlog.SeverityInfo, a.tag, format, args...)
}

func (a *GnetAdapter) Warnf(format string, args ...any) {
	a.logger.Log(rtlog.SeverityWarn, a.tag, format, args...)
}

func (a *GnetAdapter) Errorf(format string, args ...any) {
	a.logger.Log(rtlog.SeverityError, a.tag, format, args...)
}

// Fatalf logs at error level, bypassing the rate limiter, and triggers the
// fatal handler once the sinks are flushed.
func (a *GnetAdapter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.logger.LogDirect(rtlog.SeverityError, a.tag, msg)

	// Ensure log is flushed before exit
	a.logger.Flush()

	if a.fatalHandler != nil {
		a.fatalHandler(msg)
	}
}
