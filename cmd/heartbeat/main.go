package main

import (
	"fmt"
	"os"

	"github.com/lixenwraith/rtlog"
)

func main() {
	// Cycle: disable -> PROC -> PROC+SINK -> PROC+SINK+SYS -> PROC+SINK -> PROC -> disable
	levels := []struct {
		level       int
		description string
	}{
		{0, "Heartbeats disabled"},
		{rtlog.HeartbeatProc, "PROC heartbeats only"},
		{rtlog.HeartbeatSink, "PROC+SINK heartbeats"},
		{rtlog.HeartbeatSys, "PROC+SINK+SYS heartbeats"},
		{rtlog.HeartbeatSink, "PROC+SINK heartbeats (reducing from 3)"},
		{rtlog.HeartbeatProc, "PROC heartbeats only (reducing from 2)"},
		{0, "Heartbeats disabled (final)"},
	}

	logger, err := rtlog.NewBuilder().
		Level(rtlog.SeverityDebug).
		Sink(rtlog.SinkSynchronized).
		MaxLogsPerSecond(20).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	for _, lc := range levels {
		fmt.Printf("\n--- Testing heartbeat level %d: %s ---\n", lc.level, lc.description)

		// More than the rate limit allows, so the counters move
		for j := 0; j < 10; j++ {
			logger.Debug("Test", "Debug test log iteration=%d", j)
			logger.Info("Test", "Info test log iteration=%d", j)
			logger.Warn("Test", "Warning test log iteration=%d", j)
		}

		logger.LogHeartbeat(lc.level)
		logger.Flush()
		logger.ResetDroppedLogs()
	}

	if err := logger.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to shut down logger: %v\n", err)
	}
	fmt.Println("\nHeartbeat test program completed successfully")
}
