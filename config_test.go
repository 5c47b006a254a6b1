package rtlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, int64(100), cfg.MaxLogsPerSecond)
	assert.Equal(t, int64(1000), cfg.RateWindowMs)
	assert.Equal(t, SinkNonBlocking, cfg.Sink)
	assert.Equal(t, int64(256), cfg.BufferSize)
	assert.Equal(t, int64(8), cfg.PoolSize)
	assert.Equal(t, int64(20), cfg.MinSinkSpace)
	assert.NoError(t, cfg.Validate())
}

func TestConfigPresets(t *testing.T) {
	tests := []struct {
		name  string
		cfg   *Config
		level string
		max   int64
	}{
		{"minimal", MinimalConfig(), "warn", 50},
		{"development", DevelopmentConfig(), "info", 0},
		{"production", ProductionConfig(), "warn", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.level, tt.cfg.Level)
			assert.Equal(t, tt.max, tt.cfg.MaxLogsPerSecond)
			assert.NoError(t, tt.cfg.Validate())
		})
	}
}

func TestConfigClone(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg1.Level = "debug"
	cfg1.TagLevels = "Net=warn"

	cfg2 := cfg1.Clone()
	assert.Equal(t, cfg1, cfg2)

	cfg1.Level = "error"
	assert.Equal(t, "debug", cfg2.Level)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantError string
	}{
		{
			name:      "valid config",
			modify:    func(c *Config) {},
			wantError: "",
		},
		{
			name:      "invalid level",
			modify:    func(c *Config) { c.Level = "loud" },
			wantError: "invalid level string",
		},
		{
			name:      "invalid sink",
			modify:    func(c *Config) { c.Sink = "pipe" },
			wantError: "invalid sink",
		},
		{
			name:      "invalid console target",
			modify:    func(c *Config) { c.ConsoleTarget = "printer" },
			wantError: "invalid console_target",
		},
		{
			name:      "bad tag level",
			modify:    func(c *Config) { c.TagLevels = "Net=loud" },
			wantError: "tag 'Net'",
		},
		{
			name:      "negative rate",
			modify:    func(c *Config) { c.MaxLogsPerSecond = -1 },
			wantError: "max_logs_per_second out of range",
		},
		{
			name:      "zero window",
			modify:    func(c *Config) { c.RateWindowMs = 0 },
			wantError: "rate_window_ms must be positive",
		},
		{
			name:      "small buffer",
			modify:    func(c *Config) { c.BufferSize = 8 },
			wantError: "buffer_size must be at least 16",
		},
		{
			name:      "single buffer pool",
			modify:    func(c *Config) { c.PoolSize = 1 },
			wantError: "pool_size must be at least 2",
		},
		{
			name:      "zero subscriber queue",
			modify:    func(c *Config) { c.SubscriberQueueSize = 0 },
			wantError: "subscriber_queue_size must be positive",
		},
		{
			name:      "negative timeout",
			modify:    func(c *Config) { c.ShortLockTimeoutMs = -1 },
			wantError: "lock timeouts cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
			}
		})
	}
}

func TestNewConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtlog.toml")
	content := `
[rtlog]
level = "debug"
max_logs_per_second = 25
sink = "synchronized"
tag_levels = "Net=warn"
pool_size = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, int64(25), cfg.MaxLogsPerSecond)
	assert.Equal(t, SinkSynchronized, cfg.Sink)
	assert.Equal(t, "Net=warn", cfg.TagLevels)
	assert.Equal(t, int64(4), cfg.PoolSize)
	assert.Equal(t, int64(256), cfg.BufferSize, "unset keys keep defaults")
}

func TestNewConfigFromFileMissing(t *testing.T) {
	cfg, err := NewConfigFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestNewConfigFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtlog.toml")
	require.NoError(t, os.WriteFile(path, []byte("[rtlog]\nsink = \"pipe\"\n"), 0644))

	_, err := NewConfigFromFile(path)
	assert.ErrorContains(t, err, "invalid sink")
}

func TestNewConfigFromDefaults(t *testing.T) {
	cfg, err := NewConfigFromDefaults(map[string]any{
		"level":               "error",
		"max_logs_per_second": 5,
		"sanitize":            true,
	})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Level)
	assert.Equal(t, int64(5), cfg.MaxLogsPerSecond)
	assert.True(t, cfg.Sanitize)

	_, err = NewConfigFromDefaults(map[string]any{"nope": 1})
	assert.ErrorContains(t, err, "unknown config key")

	_, err = NewConfigFromDefaults(map[string]any{"enabled": "yes"})
	assert.ErrorContains(t, err, "expected bool")
}
