package rtlog

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/rtlog/sink"
)

func TestBuilder_Build(t *testing.T) {
	t.Run("successful build returns configured logger", func(t *testing.T) {
		clock := NewManualClock(42)
		logger, err := NewBuilder().
			Level(SeverityWarn).
			MaxLogsPerSecond(50).
			TagLevel("Noisy", SeverityError).
			TagLevel("Radio", SeverityDebug).
			Sink(SinkThreadSafeNonBlocking).
			PoolSize(4).
			BufferSize(128).
			Clock(clock).
			Platform(newFakePlatform()).
			Option(WithConsoleOutput(io.Discard)).
			Build()

		if logger != nil {
			defer logger.Shutdown()
		}

		require.NoError(t, err, "Builder.Build() should not return an error on valid config")
		require.NotNil(t, logger)

		cfg := logger.GetConfig()
		assert.Equal(t, "WARN", cfg.Level)
		assert.Equal(t, int64(50), cfg.MaxLogsPerSecond)
		assert.Equal(t, "Noisy=ERROR,Radio=DEBUG", cfg.TagLevels)
		assert.True(t, logger.state.IsInitialized.Load())

		assert.Equal(t, SeverityError, logger.GetTagLevel("Noisy"))
		assert.Equal(t, SeverityDebug, logger.GetTagLevel("Radio"))
		assert.Equal(t, 4, logger.Pool().Capacity())
		assert.IsType(t, &sink.ThreadSafeNonBlocking{}, logger.Backends()[0])
		assert.Equal(t, uint32(42), logger.clock.Millis())
	})

	t.Run("WARN global with a quieter tag", func(t *testing.T) {
		logger, err := NewBuilder().
			Level(SeverityWarn).
			TagLevel("Noisy", SeverityError).
			Sink(SinkCustom).
			Option(WithConsoleOutput(io.Discard)).
			Build()
		require.NoError(t, err)
		defer logger.Shutdown()

		mem := sink.NewMemory()
		logger.SetBackend(mem)

		logger.Warn("Noisy", "dropped")
		logger.Error("Noisy", "kept")
		logger.Warn("App", "kept")
		logger.Info("App", "dropped")

		assert.Equal(t, 2, mem.Count())
		assert.False(t, mem.Contains("dropped"))
	})

	t.Run("invalid level string defers error to Build", func(t *testing.T) {
		logger, err := NewBuilder().LevelString("loud").MaxLogsPerSecond(5).Build()
		assert.Error(t, err)
		assert.Nil(t, logger)
	})

	t.Run("invalid configuration fails Build", func(t *testing.T) {
		logger, err := NewBuilder().Sink("pipe").Option(WithConsoleOutput(io.Discard)).Build()
		assert.ErrorContains(t, err, "invalid sink")
		assert.Nil(t, logger)
	})

	t.Run("starts from an explicit config", func(t *testing.T) {
		base := ProductionConfig()
		base.TagLevels = "Net=info"
		logger, err := NewBuilder().Config(base).TagLevel("Ota", SeverityVerbose).Option(WithConsoleOutput(io.Discard)).Build()
		require.NoError(t, err)
		defer logger.Shutdown()

		assert.Equal(t, SeverityWarn, logger.Level())
		assert.Equal(t, SeverityInfo, logger.GetTagLevel("Net"))
		assert.Equal(t, SeverityVerbose, logger.GetTagLevel("Ota"))
	})
}
