package compat

import (
	"fmt"

	"github.com/lixenwraith/rtlog"
)

// Builder provides a flexible way to create adapters that feed foreign
// logging facilities into one rtlog.Logger. It can use an existing logger or
// create a new one from a *rtlog.Config.
type Builder struct {
	logger *rtlog.Logger
	logCfg *rtlog.Config
	opts   []rtlog.Option
	err    error
}

// NewBuilder creates a new adapter builder
func NewBuilder() *Builder {
	return &Builder{}
}

// WithLogger specifies an existing logger to use for the adapters
// If this is set WithConfig is ignored
func (b *Builder) WithLogger(l *rtlog.Logger) *Builder {
	if l == nil {
		b.err = fmt.Errorf("rtlog/compat: provided logger cannot be nil")
		return b
	}
	b.logger = l
	return b
}

// WithConfig provides a configuration for a new logger instance
// This is used only if an existing logger is NOT provided via WithLogger
func (b *Builder) WithConfig(cfg *rtlog.Config, opts ...rtlog.Option) *Builder {
	b.logCfg = cfg
	b.opts = opts
	return b
}

// getLogger resolves the logger to be used, creating one if necessary
func (b *Builder) getLogger() (*rtlog.Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	if b.logger != nil {
		return b.logger, nil
	}

	l := rtlog.NewLogger(b.opts...)
	cfg := b.logCfg
	if cfg == nil {
		cfg = rtlog.DefaultConfig()
	}

	if err := l.ApplyConfig(cfg); err != nil {
		_ = l.Shutdown()
		return nil, err
	}

	// Cache the newly created logger for subsequent builds with this builder
	b.logger = l
	return l, nil
}

// BuildHook creates a hook for a platform's native vprintf-style facility
func (b *Builder) BuildHook(opts ...HookOption) (*Hook, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewHook(l, opts...), nil
}

// BuildGnet creates a gnet adapter
func (b *Builder) BuildGnet(opts ...GnetOption) (*GnetAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewGnetAdapter(l, opts...), nil
}

// BuildFastHTTP creates a fasthttp adapter
func (b *Builder) BuildFastHTTP(opts ...FastHTTPOption) (*FastHTTPAdapter, error) {
	l, err := b.getLogger()
	if err != nil {
		return nil, err
	}
	return NewFastHTTPAdapter(l, opts...), nil
}

// GetLogger returns the underlying *rtlog.Logger instance
// If a logger has not been provided or created yet, it will be initialized
func (b *Builder) GetLogger() (*rtlog.Logger, error) {
	return b.getLogger()
}

// --- Example Usage ---
//
//	appLogger, err := rtlog.NewBuilder().
//		Level(rtlog.SeverityDebug).
//		TagLevel(compat.GnetTag, rtlog.SeverityWarn).
//		Build()
//	if err != nil {
//		panic(err)
//	}
//
//	builder := compat.NewBuilder().WithLogger(appLogger)
//
//	gnetLogger, _ := builder.BuildGnet()
//	fasthttpLogger, _ := builder.BuildFastHTTP()
//
//	// gnet: the adapter is passed directly into the gnet options
//	go gnet.Run(events, "tcp://:9000", gnet.WithLogger(gnetLogger))
//
//	// fasthttp: the adapter is assigned to the server's Logger field
//	server := &fasthttp.Server{Handler: handler, Logger: fasthttpLogger}
//	go server.ListenAndServe(":8080")
//
//	// standard library log package
//	restore := compat.RedirectStdLog(appLogger)
//	defer restore()
