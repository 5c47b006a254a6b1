package main

import (
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/rtlog"
	"github.com/lixenwraith/rtlog/sink"
)

const (
	logDirectory = "./temp_logs"
	burstSize    = 40
	lineRate     = 2400 // bytes per second, a slow serial port
)

// main orchestrates the different test scenarios.
func main() {
	if err := os.RemoveAll(logDirectory); err != nil {
		fmt.Printf("Warning: could not remove old log directory: %v\n", err)
	}

	fmt.Println("--- Running Sink Strategy Suite ---")

	// --- Scenario 1: the same burst through each strategy on a slow device ---
	fmt.Println("--- SCENARIO 1: Backpressure per strategy (new logger per test) ---")
	for _, strategy := range []string{
		rtlog.SinkConsole,
		rtlog.SinkSynchronized,
		rtlog.SinkNonBlocking,
		rtlog.SinkThreadSafeNonBlocking,
	} {
		testStrategy(strategy)
	}

	// --- Scenario 2: reconfiguration on a single logger instance ---
	fmt.Println("\n--- SCENARIO 2: Testing reconfiguration on a single logger instance ---")
	testReconfigurationTransitions()

	fmt.Println("\n--- Sink Strategy Suite Complete ---")
	fmt.Printf("Check the '%s' directory for log files.\n", logDirectory)
}

// testStrategy writes a burst and reports how long the callers were held and
// what the sink gave up.
func testStrategy(strategy string) {
	logger := rtlog.NewLogger()
	runTestPhase(logger, strategy,
		"sink="+strategy,
		"console_target=stderr",
		fmt.Sprintf("console_bytes_per_second=%d", lineRate),
		"max_logs_per_second=0",
	)

	start := time.Now()
	for i := 0; i < burstSize; i++ {
		logger.Info("Burst", "line %02d of %d", i+1, burstSize)
	}
	held := time.Since(start)

	stats := logger.SinkStats()
	fmt.Printf("  callers held %v, dropped %d, partial %d, lock busy %d, device full %d\n",
		held.Round(time.Millisecond), stats.DroppedMessages, stats.PartialWrites, stats.LockContention, stats.BufferFull)

	shutdownLogger(logger, strategy)
}

// testReconfigurationTransitions tests the logger's ability to handle state changes.
func testReconfigurationTransitions() {
	logger := rtlog.NewLogger()

	// Phase A: stdout
	runTestPhase(logger, "2.1: Reconfig - Initial (Stdout)",
		"sink=synchronized",
		"console_target=stdout",
	)

	// Phase B: stderr
	runTestPhase(logger, "2.2: Reconfig - Transition to Stderr",
		"sink=synchronized",
		"console_target=stderr",
	)

	// Phase C: custom backends, a file and the console side by side
	file, err := sink.NewFile(sink.FileOptions{Directory: logDirectory, Name: "reconfig", Extension: "log"})
	if err != nil {
		fmt.Printf("  ERROR: could not open log file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()
	runTestPhase(logger, "2.3: Reconfig - Custom (File+Stdout)", "sink=custom")
	logger.SetBackend(sink.NewSynchronized(file))
	logger.AddBackend(sink.NewSynchronized(sink.NewWriterDevice(os.Stdout)))

	// Phase D: Test different levels on the final reconfigured state
	fmt.Println("\n[Phase 2.4: Reconfig - Testing log levels on final state]")
	logger.SetLogLevel(rtlog.SeverityDebug)
	logger.Debug("final-state", "This is a debug message.")
	logger.Info("final-state", "This is an info message.")
	logger.Warn("final-state", "This is a warning message.")
	logger.Error("final-state", "This is an error message.")

	shutdownLogger(logger, "2: Reconfiguration")
}

// runTestPhase is a helper to configure the logger and log a phase marker.
func runTestPhase(logger *rtlog.Logger, phaseName string, overrides ...string) {
	fmt.Printf("\n[Phase %s]\n", phaseName)
	fmt.Println("  Config:", overrides)

	if err := logger.ApplyConfigString(overrides...); err != nil {
		fmt.Printf("  ERROR: Failed to initialize/reconfigure logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Event", "start_phase name=%s", phaseName)
	logger.Flush()
}

// shutdownLogger is a helper to gracefully shut down the logger instance.
func shutdownLogger(l *rtlog.Logger, phaseName string) {
	if err := l.Shutdown(); err != nil {
		fmt.Printf("  WARNING: Shutdown error in phase '%s': %v\n", phaseName, err)
	}
}
