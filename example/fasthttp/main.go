package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/lixenwraith/rtlog"
	"github.com/lixenwraith/rtlog/compat"
	"github.com/lixenwraith/rtlog/metrics"
)

func main() {
	// Create and configure logger
	logger, err := rtlog.NewBuilder().
		Level(rtlog.SeverityInfo).
		Sink(rtlog.SinkThreadSafeNonBlocking).
		MaxLogsPerSecond(1000).
		Build()
	if err != nil {
		panic(err)
	}
	defer logger.Shutdown()

	// Logger counters on /metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(logger, prometheus.Labels{"service": "hello"}))
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Create fasthttp adapter with custom level detection
	fasthttpAdapter := compat.NewFastHTTPAdapter(
		logger,
		compat.WithDefaultLevel(rtlog.SeverityInfo),
		compat.WithLevelDetector(customLevelDetector),
	)

	// Configure fasthttp server
	server := &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) == "/metrics" {
				metricsHandler(ctx)
				return
			}
			requestHandler(logger, ctx)
		},
		Logger: fasthttpAdapter,

		// Other server settings
		Name:              "MyServer",
		Concurrency:       fasthttp.DefaultConcurrency,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		TCPKeepalive:      true,
		ReduceMemoryUsage: true,
	}

	// Start server
	fmt.Println("Starting server on :8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		panic(err)
	}
}

func requestHandler(logger *rtlog.Logger, ctx *fasthttp.RequestCtx) {
	logger.Info("Http", "%s %s", ctx.Method(), ctx.Path())
	ctx.SetContentType("text/plain")
	fmt.Fprintf(ctx, "Hello, world! Path: %s\n", ctx.Path())
}

func customLevelDetector(msg string) rtlog.Severity {
	// Can inspect specific fasthttp message patterns
	if strings.Contains(msg, "connection cannot be served") {
		return rtlog.SeverityWarn
	}
	if strings.Contains(msg, "error when serving connection") {
		return rtlog.SeverityError
	}

	// Use default detection
	return compat.DetectLogLevel(msg)
}
