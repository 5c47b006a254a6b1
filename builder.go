package rtlog

import (
	"strings"

	"github.com/lixenwraith/rtlog/platform"
)

// Builder provides a fluent API for building a configured Logger.
// It wraps a Config instance and provides chainable methods for setting values.
type Builder struct {
	cfg  *Config
	opts []Option
	tags []string
	err  error // Accumulate errors for deferred handling
}

// NewBuilder creates a new configuration builder with default values.
func NewBuilder() *Builder {
	return &Builder{
		cfg: DefaultConfig(),
	}
}

// Build creates a new Logger instance with the specified configuration.
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}

	if len(b.tags) > 0 {
		if b.cfg.TagLevels != "" {
			b.tags = append([]string{b.cfg.TagLevels}, b.tags...)
		}
		b.cfg.TagLevels = strings.Join(b.tags, ",")
	}

	logger := NewLogger(b.opts...)

	// ApplyConfig handles all initialization and validation
	if err := logger.ApplyConfig(b.cfg); err != nil {
		_ = logger.Shutdown()
		return nil, err
	}

	return logger, nil
}

// Config starts from cfg instead of the defaults.
func (b *Builder) Config(cfg *Config) *Builder {
	if cfg != nil {
		b.cfg = cfg.Clone()
	}
	return b
}

// Level sets the global level.
func (b *Builder) Level(level Severity) *Builder {
	b.cfg.Level = level.String()
	return b
}

// LevelString sets the global level from a string.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	if _, err := ParseSeverity(level); err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = level
	return b
}

// Enabled sets the global enable flag.
func (b *Builder) Enabled(enabled bool) *Builder {
	b.cfg.Enabled = enabled
	return b
}

// MaxLogsPerSecond sets the rate limit. Zero disables it.
func (b *Builder) MaxLogsPerSecond(max uint32) *Builder {
	b.cfg.MaxLogsPerSecond = int64(max)
	return b
}

// TagLevel sets the level for one tag.
func (b *Builder) TagLevel(tag string, level Severity) *Builder {
	b.tags = append(b.tags, tag+"="+level.String())
	return b
}

// Sink selects the primary sink strategy.
func (b *Builder) Sink(strategy string) *Builder {
	b.cfg.Sink = strategy
	return b
}

// ConsoleTarget selects stdout or stderr for the console device.
func (b *Builder) ConsoleTarget(target string) *Builder {
	b.cfg.ConsoleTarget = target
	return b
}

// BufferSize sets the byte size of each pool buffer.
func (b *Builder) BufferSize(size int64) *Builder {
	b.cfg.BufferSize = size
	return b
}

// PoolSize sets the number of pool buffers.
func (b *Builder) PoolSize(size int64) *Builder {
	b.cfg.PoolSize = size
	return b
}

// PoolFallback sets whether an exhausted pool allocates.
func (b *Builder) PoolFallback(enable bool) *Builder {
	b.cfg.PoolFallback = enable
	return b
}

// Sanitize enables hex-encoding of non-printable message bytes.
func (b *Builder) Sanitize(enable bool) *Builder {
	b.cfg.Sanitize = enable
	return b
}

// Platform sets the platform capabilities.
func (b *Builder) Platform(p platform.Platform) *Builder {
	b.opts = append(b.opts, WithPlatform(p))
	return b
}

// Clock sets the millisecond clock.
func (b *Builder) Clock(c Clock) *Builder {
	b.opts = append(b.opts, WithClock(c))
	return b
}

// Option adds construction options.
func (b *Builder) Option(opts ...Option) *Builder {
	for _, opt := range opts {
		if opt != nil {
			b.opts = append(b.opts, opt)
		}
	}
	return b
}

// Example usage:
// logger, err := rtlog.NewBuilder().
//
//	Level(rtlog.SeverityWarn).
//	MaxLogsPerSecond(50).
//	TagLevel("Noisy", rtlog.SeverityError).
//	Sink(rtlog.SinkSynchronized).
//	Build()
//
// if err == nil {
//
//	 defer logger.Shutdown()
//	 logger.Warn("App", "logger initialized")
//
// }
