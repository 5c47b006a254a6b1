package rtlog

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/lixenwraith/rtlog/formatter"
	"github.com/lixenwraith/rtlog/internal/lock"
	"github.com/lixenwraith/rtlog/platform"
	"github.com/lixenwraith/rtlog/sanitizer"
	"github.com/lixenwraith/rtlog/sink"
)

// NativeFunc receives a message the logger could not deliver through its
// sinks. It must not route back into the logger.
type NativeFunc func(severity Severity, tag string, msg []byte)

// Logger is the core struct that encapsulates all logger functionality
type Logger struct {
	currentConfig atomic.Pointer[Config]
	state         State
	initMu        sync.Mutex

	platform platform.Platform
	clock    Clock

	level     atomic.Uint32 // Severity
	tags      *tagTable
	limiter   *RateLimiter
	pool      atomic.Pointer[BufferPool]
	notifier  *Notifier
	formatter atomic.Pointer[formatter.Formatter]

	backendMu *lock.Timed
	sinks     atomic.Pointer[[]sink.Sink]
	console   atomic.Pointer[sink.Console] // Device owned by the configured primary sink

	stdout io.Writer
	stderr io.Writer
	native NativeFunc
	diag   *rate.Limiter
}

// Option customizes a Logger at construction
type Option func(*Logger)

// WithPlatform sets the platform capabilities the logger relies on.
func WithPlatform(p platform.Platform) Option {
	return func(l *Logger) {
		if p != nil {
			l.platform = p
		}
	}
}

// WithClock sets the millisecond clock.
func WithClock(c Clock) Option {
	return func(l *Logger) {
		if c != nil {
			l.clock = c
		}
	}
}

// WithConsoleOutput sends the configured console sink to w instead of
// stdout or stderr.
func WithConsoleOutput(w io.Writer) Option {
	return func(l *Logger) {
		if w != nil {
			l.stdout, l.stderr = w, w
		}
	}
}

// WithNative replaces the fallback used when no envelope buffer is available.
func WithNative(fn NativeFunc) Option {
	return func(l *Logger) {
		if fn != nil {
			l.native = fn
		}
	}
}

// NewLogger creates a Logger with the default configuration and the default
// non-blocking console sink. It is usable immediately.
func NewLogger(opts ...Option) *Logger {
	l := &Logger{
		platform:  platform.Default(),
		backendMu: lock.New(),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		diag:      rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.clock == nil {
		l.clock = NewClock()
	}
	if l.native == nil {
		l.native = nativeWriter(l.stderr)
	}

	cfg := DefaultConfig()
	l.tags = newTagTable(cfg.shortTimeout(), l.platform)
	l.limiter = NewRateLimiter(uint32(cfg.MaxLogsPerSecond), time.Duration(cfg.RateWindowMs)*time.Millisecond, l.clock, l.platform)
	l.notifier = NewNotifier(int(cfg.SubscriberQueueSize), cfg.shortTimeout(), l.platform, l.internalLog)
	empty := []sink.Sink{}
	l.sinks.Store(&empty)

	l.state.LoggerStartTime.Store(time.Now())
	// Construction cannot fail with the defaults
	_ = l.reconfigure(nil, cfg)
	return l
}

// nativeWriter returns the default native facility. The writer is captured
// here, so redirecting the process-wide log output later cannot loop back.
func nativeWriter(w io.Writer) NativeFunc {
	var mu sync.Mutex
	return func(severity Severity, tag string, msg []byte) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "%c (native) %s: %s\r\n", severity.Letter(), tag, msg)
	}
}

// Init applies the default configuration, marking the logger initialized.
func (l *Logger) Init() error {
	return l.ApplyConfig(DefaultConfig())
}

// ApplyConfig applies a validated configuration to the logger.
// This is the primary way applications should configure the logger.
// Applying the same configuration twice has no further effect.
func (l *Logger) ApplyConfig(cfg *Config) error {
	if cfg == nil {
		return fmtErrorf("configuration cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return fmtErrorf("invalid configuration: %w", err)
	}

	l.initMu.Lock()
	defer l.initMu.Unlock()

	return l.reconfigure(l.getConfig(), cfg.Clone())
}

// reconfigure moves the logger from old to cfg. old is nil at construction.
func (l *Logger) reconfigure(old, cfg *Config) error {
	l.currentConfig.Store(cfg)

	l.level.Store(uint32(cfg.severity()))
	l.state.Enabled.Store(cfg.Enabled)

	l.limiter.SetMax(uint32(cfg.MaxLogsPerSecond))
	l.limiter.SetWindow(time.Duration(cfg.RateWindowMs) * time.Millisecond)
	l.limiter.SetLockTimeout(cfg.mediumTimeout())
	l.tags.timeout.Store(int64(cfg.shortTimeout()))
	l.notifier.SetLockTimeout(cfg.shortTimeout())
	l.notifier.SetQueueSize(int(cfg.SubscriberQueueSize))

	tagLevels, _ := parseTagLevels(cfg.TagLevels)
	for _, tl := range tagLevels {
		l.SetTagLevel(tl.tag, tl.level)
	}

	if old == nil || old.poolChanged(cfg) {
		l.pool.Store(NewBufferPool(int(cfg.PoolSize), int(cfg.BufferSize), PoolOptions{
			Fallback:    cfg.PoolFallback,
			LockTimeout: cfg.standardTimeout(),
			Platform:    l.platform,
		}))
	}

	var san *sanitizer.Sanitizer
	if cfg.Sanitize {
		san = sanitizer.New().Policy(sanitizer.PolicyTxt)
	}
	l.formatter.Store(formatter.New(san))

	if cfg.Sink != SinkCustom && (old == nil || old.sinkChanged(cfg)) {
		if err := l.installPrimary(cfg); err != nil {
			return err
		}
	}

	if old != nil {
		l.state.IsInitialized.Store(true)
	}
	return nil
}

// installPrimary replaces every backend with the sink cfg describes.
func (l *Logger) installPrimary(cfg *Config) error {
	out := l.stdout
	if cfg.ConsoleTarget == "stderr" {
		out = l.stderr
	}
	dev := sink.NewConsole(out,
		sink.TxBuffer(int(cfg.ConsoleTxBuffer)),
		sink.BytesPerSecond(int(cfg.ConsoleBytesPerSecond)))
	opts := []sink.Option{
		sink.WithMinSpace(int(cfg.MinSinkSpace)),
		sink.WithLockTimeout(cfg.standardTimeout()),
		sink.WithFlushTimeout(cfg.shortTimeout() / 2),
		sink.WithPlatform(l.platform),
	}

	var primary sink.Sink
	switch cfg.Sink {
	case SinkConsole:
		primary = sink.NewPlain(dev, opts...)
	case SinkSynchronized:
		primary = sink.NewSynchronized(dev, opts...)
	case SinkThreadSafeNonBlocking:
		primary = sink.NewThreadSafeNonBlocking(dev, opts...)
	default:
		primary = sink.NewNonBlocking(dev, opts...)
	}

	if !l.mutateBackends(func([]sink.Sink) []sink.Sink { return []sink.Sink{primary} }) {
		dev.Close()
		return fmtErrorf("timed out installing %s sink", cfg.Sink)
	}
	if prev := l.console.Swap(dev); prev != nil {
		// Draining a throttled device can take a while
		go prev.Close()
	}
	return nil
}

// GetConfig returns a copy of current configuration
func (l *Logger) GetConfig() *Config {
	return l.getConfig().Clone()
}

func (l *Logger) getConfig() *Config {
	return l.currentConfig.Load()
}

// SetLogLevel sets the global level used for tags without their own. The
// change is kept in the configuration, so later overrides start from it.
func (l *Logger) SetLogLevel(level Severity) {
	l.level.Store(uint32(level))
	if level <= SeverityVerbose {
		l.updateConfig(func(c *Config) { c.Level = strings.ToLower(level.String()) })
	}
}

// Level returns the global level.
func (l *Logger) Level() Severity {
	return Severity(l.level.Load())
}

// EnableLogging turns all output on or off.
func (l *Logger) EnableLogging(enable bool) {
	l.state.Enabled.Store(enable)
	l.updateConfig(func(c *Config) { c.Enabled = enable })
}

// IsLoggingEnabled reports the global enable flag.
func (l *Logger) IsLoggingEnabled() bool {
	return l.state.Enabled.Load()
}

// IsInitialized reports whether a configuration has been applied since
// construction and the logger has not been shut down.
func (l *Logger) IsInitialized() bool {
	return l.state.IsInitialized.Load()
}

// SetMaxLogsPerSecond sets the rate limit. Zero disables it.
func (l *Logger) SetMaxLogsPerSecond(max uint32) {
	l.limiter.SetMax(max)
	l.updateConfig(func(c *Config) { c.MaxLogsPerSecond = int64(max) })
}

// updateConfig records a runtime setter in the stored configuration.
func (l *Logger) updateConfig(fn func(*Config)) {
	l.initMu.Lock()
	defer l.initMu.Unlock()
	next := l.getConfig().Clone()
	fn(next)
	l.currentConfig.Store(next)
}

// mutateBackends swaps in a modified copy of the sink list. Writers keep using
// the list they loaded, so no lock is held while sinks write.
func (l *Logger) mutateBackends(fn func([]sink.Sink) []sink.Sink) bool {
	if l.platform.SchedulerRunning() {
		if !l.backendMu.LockTimeout(l.getConfig().standardTimeout()) {
			l.noteLockTimeout("backend list")
			return false
		}
		defer l.backendMu.Unlock()
	}
	next := fn(slices.Clone(*l.sinks.Load()))
	l.sinks.Store(&next)
	return true
}

// SetBackend replaces all sinks with s.
func (l *Logger) SetBackend(s sink.Sink) bool {
	if s == nil {
		return false
	}
	return l.mutateBackends(func([]sink.Sink) []sink.Sink { return []sink.Sink{s} })
}

// AddBackend appends s. Adding a sink twice is a no-op.
func (l *Logger) AddBackend(s sink.Sink) bool {
	if s == nil {
		return false
	}
	return l.mutateBackends(func(cur []sink.Sink) []sink.Sink {
		if slices.Contains(cur, s) {
			return cur
		}
		return append(cur, s)
	})
}

// RemoveBackend removes s if present.
func (l *Logger) RemoveBackend(s sink.Sink) bool {
	return l.mutateBackends(func(cur []sink.Sink) []sink.Sink {
		return slices.DeleteFunc(cur, func(x sink.Sink) bool { return x == s })
	})
}

// ClearBackends removes every sink. Messages then reach subscribers only.
func (l *Logger) ClearBackends() bool {
	return l.mutateBackends(func([]sink.Sink) []sink.Sink { return nil })
}

// Backends returns the current sink list.
func (l *Logger) Backends() []sink.Sink {
	return slices.Clone(*l.sinks.Load())
}

// AddSubscriber registers s for every emitted message.
func (l *Logger) AddSubscriber(s Subscriber) error {
	return l.notifier.AddSubscriber(s)
}

// RemoveSubscriber unregisters s.
func (l *Logger) RemoveSubscriber(s Subscriber) bool {
	return l.notifier.RemoveSubscriber(s)
}

// StartSubscriberTask moves subscriber delivery to a goroutine pinned to core.
func (l *Logger) StartSubscriberTask(core int) error {
	return l.notifier.Start(core)
}

// StopSubscriberTask returns subscriber delivery to the logging goroutine.
func (l *Logger) StopSubscriberTask() error {
	return l.notifier.Stop()
}

// Notifier exposes the subscriber notifier.
func (l *Logger) Notifier() *Notifier {
	return l.notifier
}

// Pool returns the buffer pool in use.
func (l *Logger) Pool() *BufferPool {
	return l.pool.Load()
}

// Log formats and emits a message at severity under tag.
func (l *Logger) Log(severity Severity, tag string, format string, args ...any) {
	l.emit("", severity, tag, bodyPrintf, format, args, true, true)
}

// LogNnL is Log without the line terminator, for building one line from
// several calls.
func (l *Logger) LogNnL(severity Severity, tag string, format string, args ...any) {
	l.emit("", severity, tag, bodyPrintf, format, args, false, true)
}

// LogDirect emits a preformatted message, bypassing the rate limiter.
func (l *Logger) LogDirect(severity Severity, tag string, msg string) {
	l.emit("", severity, tag, bodyText, msg, nil, true, false)
}

// LogInL writes formatted text to the sinks without decoration or line
// terminator. It honors the enable flag and the rate limiter; subscribers see
// it as INFO under tag "INL".
func (l *Logger) LogInL(format string, args ...any) {
	l.emitInline(format, args)
}

// LogValues emits args space-separated; composite values are dumped.
func (l *Logger) LogValues(severity Severity, tag string, args ...any) {
	if len(args) == 0 {
		return
	}
	l.emit("", severity, tag, bodyValues, "", args, true, true)
}

// Error logs at error severity
func (l *Logger) Error(tag string, format string, args ...any) {
	l.emit("", SeverityError, tag, bodyPrintf, format, args, true, true)
}

// Warn logs at warn severity
func (l *Logger) Warn(tag string, format string, args ...any) {
	l.emit("", SeverityWarn, tag, bodyPrintf, format, args, true, true)
}

// Info logs at info severity
func (l *Logger) Info(tag string, format string, args ...any) {
	l.emit("", SeverityInfo, tag, bodyPrintf, format, args, true, true)
}

// Debug logs at debug severity
func (l *Logger) Debug(tag string, format string, args ...any) {
	l.emit("", SeverityDebug, tag, bodyPrintf, format, args, true, true)
}

// Verbose logs at verbose severity
func (l *Logger) Verbose(tag string, format string, args ...any) {
	l.emit("", SeverityVerbose, tag, bodyPrintf, format, args, true, true)
}
