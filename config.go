package rtlog

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/lixenwraith/config"
)

// Sink strategies selectable by configuration
const (
	SinkConsole               = "console"
	SinkSynchronized          = "synchronized"
	SinkNonBlocking           = "non_blocking"
	SinkThreadSafeNonBlocking = "thread_safe_non_blocking"
	SinkCustom                = "custom"
)

// Config holds all logger configuration values
type Config struct {
	// Filtering
	Level     string `toml:"level"`      // Global level name
	Enabled   bool   `toml:"enabled"`    // Global enable flag
	TagLevels string `toml:"tag_levels"` // "TagA=warn,TagB=debug"

	// Rate limiting
	MaxLogsPerSecond int64 `toml:"max_logs_per_second"` // 0 = unlimited
	RateWindowMs     int64 `toml:"rate_window_ms"`

	// Primary sink
	Sink                  string `toml:"sink"`                     // console, synchronized, non_blocking, thread_safe_non_blocking, custom
	ConsoleTarget         string `toml:"console_target"`           // "stdout" or "stderr"
	ConsoleTxBuffer       int64  `toml:"console_tx_buffer"`        // Emulated transmit buffer bytes
	ConsoleBytesPerSecond int64  `toml:"console_bytes_per_second"` // Emulated line rate, 0 = unthrottled
	MinSinkSpace          int64  `toml:"min_sink_space"`           // Device space below which lines are dropped

	// Buffer pool
	BufferSize   int64 `toml:"buffer_size"`   // Bytes per buffer, bounds one line
	PoolSize     int64 `toml:"pool_size"`     // Buffers in the pool
	PoolFallback bool  `toml:"pool_fallback"` // Allocate when the pool is empty

	// Subscribers
	SubscriberQueueSize int64 `toml:"subscriber_queue_size"`

	// Lock waits
	ShortLockTimeoutMs    int64 `toml:"short_lock_timeout_ms"`    // Tag table, subscriber list
	MediumLockTimeoutMs   int64 `toml:"medium_lock_timeout_ms"`   // Rate limiter
	StandardLockTimeoutMs int64 `toml:"standard_lock_timeout_ms"` // Buffer pool, backend list, synchronized sink

	// Output hygiene
	Sanitize bool `toml:"sanitize"` // Hex-encode non-printable bytes in messages

	// Internal error handling
	InternalErrorsToStderr bool `toml:"internal_errors_to_stderr"` // Write internal errors to stderr
}

// defaultConfig is the single source for all configurable default values
var defaultConfig = Config{
	Level:     "info",
	Enabled:   true,
	TagLevels: "",

	MaxLogsPerSecond: 100,
	RateWindowMs:     1000,

	Sink:                  SinkNonBlocking,
	ConsoleTarget:         "stdout",
	ConsoleTxBuffer:       88,
	ConsoleBytesPerSecond: 0,
	MinSinkSpace:          20,

	BufferSize:   256,
	PoolSize:     8,
	PoolFallback: true,

	SubscriberQueueSize: 16,

	ShortLockTimeoutMs:    10,
	MediumLockTimeoutMs:   50,
	StandardLockTimeoutMs: 100,

	Sanitize: false,

	InternalErrorsToStderr: false,
}

// DefaultConfig returns a copy of the default configuration
func DefaultConfig() *Config {
	copiedConfig := defaultConfig
	return &copiedConfig
}

// MinimalConfig favors low output: warnings and errors, at most 50 per second.
func MinimalConfig() *Config {
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.MaxLogsPerSecond = 50
	return cfg
}

// DevelopmentConfig logs info and above without rate limiting.
func DevelopmentConfig() *Config {
	cfg := DefaultConfig()
	cfg.Level = "info"
	cfg.MaxLogsPerSecond = 0
	return cfg
}

// ProductionConfig logs warnings and errors, at most 100 per second.
func ProductionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.MaxLogsPerSecond = 100
	return cfg
}

// NewConfigFromFile loads configuration from a TOML file and returns a validated Config.
// Keys live under the "rtlog." prefix; a missing file yields the defaults.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	loader := config.New()

	if err := loader.RegisterStruct("rtlog.", *cfg); err != nil {
		return nil, fmt.Errorf("failed to register config struct: %w", err)
	}

	if err := loader.Load(path, nil); err != nil && !errors.Is(err, config.ErrConfigNotFound) {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	if err := extractConfig(loader, "rtlog.", cfg); err != nil {
		return nil, fmt.Errorf("failed to extract config values: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewConfigFromDefaults creates a Config with default values and applies overrides
func NewConfigFromDefaults(overrides map[string]any) (*Config, error) {
	cfg := DefaultConfig()

	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// extractConfig extracts values from lixenwraith/config into our Config struct
func extractConfig(loader *config.Config, prefix string, cfg *Config) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		tomlTag := field.Tag.Get("toml")
		if tomlTag == "" {
			continue
		}

		val, found := loader.Get(prefix + tomlTag)
		if !found {
			continue
		}

		if err := setFieldValue(fieldValue, val); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}

	return nil
}

// applyOverrides applies a map of overrides to the Config struct
func applyOverrides(cfg *Config, overrides map[string]any) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()

	fieldMap := make(map[string]reflect.Value)
	for i := 0; i < t.NumField(); i++ {
		if tomlTag := t.Field(i).Tag.Get("toml"); tomlTag != "" {
			fieldMap[tomlTag] = v.Field(i)
		}
	}

	for key, value := range overrides {
		fieldValue, exists := fieldMap[key]
		if !exists {
			return fmt.Errorf("unknown config key: %s", key)
		}

		if err := setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	return nil
}

// setFieldValue sets a reflect.Value with proper type conversion
func setFieldValue(field reflect.Value, value any) error {
	switch field.Kind() {
	case reflect.String:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		field.SetString(strVal)

	case reflect.Int64:
		switch v := value.(type) {
		case int64:
			field.SetInt(v)
		case int:
			field.SetInt(int64(v))
		default:
			return fmt.Errorf("expected int64, got %T", value)
		}

	case reflect.Bool:
		boolVal, ok := value.(bool)
		if !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
		field.SetBool(boolVal)

	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if _, err := ParseSeverity(c.Level); err != nil {
		return err
	}

	switch c.Sink {
	case SinkConsole, SinkSynchronized, SinkNonBlocking, SinkThreadSafeNonBlocking, SinkCustom:
	default:
		return fmtErrorf("invalid sink: '%s' (use console, synchronized, non_blocking, thread_safe_non_blocking, or custom)", c.Sink)
	}

	if c.ConsoleTarget != "stdout" && c.ConsoleTarget != "stderr" {
		return fmtErrorf("invalid console_target: '%s' (use stdout or stderr)", c.ConsoleTarget)
	}

	if _, err := parseTagLevels(c.TagLevels); err != nil {
		return err
	}

	if c.MaxLogsPerSecond < 0 || c.MaxLogsPerSecond > math.MaxUint32 {
		return fmtErrorf("max_logs_per_second out of range: %d", c.MaxLogsPerSecond)
	}

	if c.RateWindowMs <= 0 || c.RateWindowMs > math.MaxUint32 {
		return fmtErrorf("rate_window_ms must be positive: %d", c.RateWindowMs)
	}

	if c.ConsoleTxBuffer <= 0 {
		return fmtErrorf("console_tx_buffer must be positive: %d", c.ConsoleTxBuffer)
	}

	if c.ConsoleBytesPerSecond < 0 || c.MinSinkSpace < 0 {
		return fmtErrorf("console_bytes_per_second and min_sink_space cannot be negative")
	}

	if c.BufferSize < 16 {
		return fmtErrorf("buffer_size must be at least 16: %d", c.BufferSize)
	}

	// One line needs two buffers
	if c.PoolSize < 2 {
		return fmtErrorf("pool_size must be at least 2: %d", c.PoolSize)
	}

	if c.SubscriberQueueSize <= 0 {
		return fmtErrorf("subscriber_queue_size must be positive: %d", c.SubscriberQueueSize)
	}

	if c.ShortLockTimeoutMs < 0 || c.MediumLockTimeoutMs < 0 || c.StandardLockTimeoutMs < 0 {
		return fmtErrorf("lock timeouts cannot be negative")
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	copiedConfig := *c
	return &copiedConfig
}

func (c *Config) severity() Severity {
	s, _ := ParseSeverity(c.Level)
	return s
}

func (c *Config) shortTimeout() time.Duration {
	return time.Duration(c.ShortLockTimeoutMs) * time.Millisecond
}

func (c *Config) mediumTimeout() time.Duration {
	return time.Duration(c.MediumLockTimeoutMs) * time.Millisecond
}

func (c *Config) standardTimeout() time.Duration {
	return time.Duration(c.StandardLockTimeoutMs) * time.Millisecond
}

// sinkChanged reports whether moving from c to next requires a new primary sink.
func (c *Config) sinkChanged(next *Config) bool {
	return c.Sink != next.Sink ||
		c.ConsoleTarget != next.ConsoleTarget ||
		c.ConsoleTxBuffer != next.ConsoleTxBuffer ||
		c.ConsoleBytesPerSecond != next.ConsoleBytesPerSecond ||
		c.MinSinkSpace != next.MinSinkSpace ||
		c.StandardLockTimeoutMs != next.StandardLockTimeoutMs
}

// poolChanged reports whether moving from c to next requires a new buffer pool.
func (c *Config) poolChanged(next *Config) bool {
	return c.BufferSize != next.BufferSize ||
		c.PoolSize != next.PoolSize ||
		c.PoolFallback != next.PoolFallback ||
		c.StandardLockTimeoutMs != next.StandardLockTimeoutMs
}
