package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/lixenwraith/rtlog"
	"github.com/lixenwraith/rtlog/sink"
)

const configFile = "simple_config.toml"

// Example TOML content
var tomlContent = `
# Example simple_config.toml
[rtlog]
  level = "debug"
  tag_levels = "Sensor=warn,Modbus=verbose"
  max_logs_per_second = 200
  sink = "synchronized"
  console_tx_buffer = 256
  buffer_size = 256
  pool_size = 8
  subscriber_queue_size = 32
`

func main() {
	fmt.Println("--- Simple Logger Example ---")

	if err := os.WriteFile(configFile, []byte(tomlContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write dummy config: %v\n", err)
	} else {
		fmt.Printf("Created dummy config file: %s\n", configFile)
	}

	cfg, err := rtlog.NewConfigFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v. Using defaults.\n", err)
		cfg = rtlog.DefaultConfig()
	}

	logger, err := rtlog.NewBuilder().Config(cfg).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	rtlog.SetDefault(logger)

	// --- Second sink: a log file next to the console ---
	file, err := sink.NewFile(sink.FileOptions{Directory: "./simple_logs", Name: "simple", Extension: "log", MaxSizeKB: 64})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	logger.AddBackend(sink.NewSynchronized(file))

	// --- Subscribers ---
	var mu sync.Mutex
	errorsSeen := 0
	alarm := rtlog.NewSubscriber(func(severity rtlog.Severity, tag string, msg string) {
		if severity == rtlog.SeverityError {
			mu.Lock()
			errorsSeen++
			mu.Unlock()
		}
	})
	if err := logger.AddSubscriber(alarm); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to add subscriber: %v\n", err)
	}
	if err := logger.StartSubscriberTask(0); err != nil {
		fmt.Fprintf(os.Stderr, "Subscriber task not pinned, delivering inline: %v\n", err)
	}

	// --- Logging ---
	logger.Debug("App", "This is a debug message, user_id=%d", 123)
	logger.Info("App", "Application starting...")
	logger.Warn("App", "Potential issue detected, threshold=%.2f", 0.95)
	logger.Error("App", "An error occurred! code=%d", 500)

	// Per-tag levels from the config file
	logger.Info("Sensor", "suppressed: Sensor only shows warnings")
	logger.Warn("Sensor", "temperature %d C above limit", 91)
	logger.Verbose("Modbus", "frame %02x %02x %02x", 0x01, 0x03, 0x10)

	// One line from several calls
	logger.LogNnL(rtlog.SeverityInfo, "App", "progress:")
	for i := 0; i < 3; i++ {
		logger.LogInL(" %d%%", (i+1)*33)
	}
	logger.LogInL("\r\n")

	logger.LogValues(rtlog.SeverityInfo, "App", "pool", logger.Pool().InUse(), "limits", map[string]int{"per_second": 200})

	// Logging from goroutines, each with its own task name
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			task := logger.Task(fmt.Sprintf("worker%d", id))
			task.Info("App", "Goroutine started")
			task.Error("App", "Goroutine %d finished with a failure", id)
		}(i)
	}
	wg.Wait()
	fmt.Println("Goroutines finished.")

	logger.LogHeartbeat(rtlog.HeartbeatSys)

	// --- Shutdown Logger ---
	fmt.Println("Shutting down logger...")
	if err := logger.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	}
	if err := file.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Log file close error: %v\n", err)
	}

	mu.Lock()
	fmt.Printf("Subscriber saw %d errors.\n", errorsSeen)
	mu.Unlock()
	fmt.Println("--- Example Finished ---")
	fmt.Printf("Check log files in './simple_logs' and the config '%s'.\n", configFile)
}
