package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/rtlog"
	"github.com/lixenwraith/rtlog/sink"
)

// Simulate rapid reconfiguration while several goroutines keep logging
func main() {
	var count atomic.Int64

	logger := rtlog.NewLogger(rtlog.WithConsoleOutput(io.Discard))
	if err := logger.ApplyConfigString("sink=custom", "level=debug", "max_logs_per_second=0"); err != nil {
		fmt.Printf("Initial config error: %v\n", err)
		return
	}
	mem := sink.NewMemory()
	logger.SetBackend(mem)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				logger.Info("Test", "worker %d log %d", w, i)
				count.Add(1)
				time.Sleep(time.Millisecond)
			}
		}(w)
	}

	// Trigger multiple reconfigurations rapidly; buffer and pool changes
	// replace the pool under the producers
	for i := 0; i < 10; i++ {
		err := logger.ApplyConfigString(
			"sink=custom",
			fmt.Sprintf("buffer_size=%d", 64*(i+1)),
			fmt.Sprintf("pool_size=%d", 2+i%4),
			fmt.Sprintf("tag_levels=Test=%s", []string{"debug", "warn"}[i%2]),
		)
		if err != nil {
			fmt.Printf("Reconfig error: %v\n", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	logger.SetTagLevel("Test", rtlog.SeverityDebug)

	time.Sleep(100 * time.Millisecond)
	close(stop)
	wg.Wait()

	stats := logger.Stats()
	fmt.Printf("Total logs attempted: %d\n", count.Load())
	fmt.Printf("Accepted: %d, written: %d, native: %d, pool in use: %d\n",
		stats.Accepted, mem.Count(), stats.FallbackWrites, stats.PoolInUse)

	if err := logger.Shutdown(); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}
}
