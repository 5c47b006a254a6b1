package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lixenwraith/rtlog"
	"github.com/lixenwraith/rtlog/sink"
)

const maxMessageSize = 400

var levels = []rtlog.Severity{
	rtlog.SeverityError,
	rtlog.SeverityWarn,
	rtlog.SeverityInfo,
	rtlog.SeverityDebug,
	rtlog.SeverityVerbose,
}

var tags = []string{"Net", "Sensor", "Storage", "Ui"}

func generateRandomMessage(r *rand.Rand, size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[r.Intn(len(chars))])
	}
	return sb.String()
}

// counters kept by the producers, to check against the logger's own
type tally struct {
	attempted atomic.Uint64
	filtered  atomic.Uint64
	slowest   atomic.Int64 // ns
}

func producer(id int, logger *rtlog.Logger, perProducer int, stop <-chan struct{}, t *tally, wg *sync.WaitGroup) {
	defer wg.Done()
	r := rand.New(rand.NewSource(int64(id)))
	task := logger.Task(fmt.Sprintf("p%03d", id))
	for i := 0; i < perProducer; i++ {
		select {
		case <-stop:
			return
		default:
		}
		level := levels[r.Intn(len(levels))]
		tag := tags[r.Intn(len(tags))]
		msg := generateRandomMessage(r, r.Intn(maxMessageSize)+10)

		t.attempted.Add(1)
		if !logger.IsLevelEnabledForTag(tag, level) {
			t.filtered.Add(1)
		}

		start := time.Now()
		task.Log(level, tag, "seq=%d %s", i, msg)
		if d := int64(time.Since(start)); d > t.slowest.Load() {
			t.slowest.Store(d)
		}
	}
}

func main() {
	producers := flag.Int("producers", 64, "concurrent producer goroutines")
	perProducer := flag.Int("logs", 2000, "messages per producer")
	rateLimit := flag.Int("rate", 5000, "max_logs_per_second, 0 for unlimited")
	strategy := flag.String("sink", rtlog.SinkThreadSafeNonBlocking, "primary sink strategy")
	lineRate := flag.Int("line-rate", 11520, "emulated console bytes per second")
	flag.Parse()

	fmt.Println("--- Logger Stress Test ---")

	logger, err := rtlog.NewBuilder().
		Level(rtlog.SeverityDebug).
		TagLevel("Ui", rtlog.SeverityWarn).
		MaxLogsPerSecond(uint32(*rateLimit)).
		Sink(*strategy).
		BufferSize(192).
		PoolSize(16).
		Option(rtlog.WithConsoleOutput(io.Discard)).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if err := logger.ApplyConfigString(fmt.Sprintf("console_bytes_per_second=%d", *lineRate)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set line rate: %v\n", err)
		os.Exit(1)
	}

	var delivered atomic.Uint64
	counter := rtlog.NewSubscriber(func(rtlog.Severity, string, string) { delivered.Add(1) })
	_ = logger.AddSubscriber(counter)

	fmt.Printf("Starting stress test: %d producers x %d logs, rate %d/s, sink %s.\n",
		*producers, *perProducer, *rateLimit, *strategy)
	fmt.Println("Press Ctrl+C to stop early.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		<-sigChan
		fmt.Println("\n[Signal Received] Stopping producers...")
		close(stop)
	}()

	var t tally
	var wg sync.WaitGroup
	startTime := time.Now()
	for i := 0; i < *producers; i++ {
		wg.Add(1)
		go producer(i, logger, *perProducer, stop, &t, &wg)
	}
	wg.Wait()
	duration := time.Since(startTime)

	stats := logger.Stats()
	attempted := t.attempted.Load()
	filtered := t.filtered.Load()

	fmt.Printf("\n--- Test Finished in %v ---\n", duration.Round(time.Millisecond))
	fmt.Printf("attempted      %d\n", attempted)
	fmt.Printf("filtered       %d\n", filtered)
	fmt.Printf("rate limited   %d\n", stats.RateLimited)
	fmt.Printf("accepted       %d\n", stats.Accepted)
	fmt.Printf("native writes  %d\n", stats.FallbackWrites)
	fmt.Printf("sink dropped   %d (%d bytes, %d partial)\n", stats.Sinks.DroppedMessages, stats.Sinks.DroppedBytes, stats.Sinks.PartialWrites)
	fmt.Printf("sink busy      %d lock, %d full\n", stats.Sinks.LockContention, stats.Sinks.BufferFull)
	fmt.Printf("subscribers    %d delivered, %d dropped\n", delivered.Load(), stats.SubscriberDropped)
	fmt.Printf("lock timeouts  %d\n", stats.LockTimeouts)
	fmt.Printf("pool fallbacks %d\n", stats.PoolFallbacks)
	fmt.Printf("slowest call   %v\n", time.Duration(t.slowest.Load()))

	if filtered+stats.RateLimited+stats.Accepted == attempted {
		fmt.Println("conservation   OK: filtered + rate limited + accepted = attempted")
	} else {
		fmt.Printf("conservation   MISMATCH: %d + %d + %d != %d\n", filtered, stats.RateLimited, stats.Accepted, attempted)
	}

	for _, s := range logger.Backends() {
		if h, ok := s.(interface{ Healthy() bool }); ok && !h.Healthy() {
			fmt.Println("primary sink   unhealthy (100 or more messages dropped)")
		}
		if m, ok := s.(sink.Monitor); ok && m.Critical() {
			fmt.Println("primary sink   critical: device below the drop threshold")
		}
	}

	if err := logger.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "Logger shutdown error: %v\n", err)
	}
}
