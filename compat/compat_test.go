package compat

import (
	"bytes"
	"log"
	"strings"
	"sync"
	"testing"

	"github.com/panjf2000/gnet/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/lixenwraith/rtlog"
	"github.com/lixenwraith/rtlog/platform"
	"github.com/lixenwraith/rtlog/sink"
)

// syncBuffer stands in for the process's stderr.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// createTestCompatBuilder creates a logger capturing into memory and a builder around it
func createTestCompatBuilder(t *testing.T, opts ...rtlog.Option) (*Builder, *rtlog.Logger, *sink.Memory) {
	t.Helper()
	opts = append([]rtlog.Option{rtlog.WithConsoleOutput(&syncBuffer{})}, opts...)
	appLogger, err := rtlog.NewBuilder().
		Level(rtlog.SeverityVerbose).
		Sink(rtlog.SinkCustom).
		Clock(rtlog.NewManualClock(0)).
		Option(opts...).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = appLogger.Shutdown() })

	mem := sink.NewMemory()
	require.True(t, appLogger.SetBackend(mem))
	return NewBuilder().WithLogger(appLogger), appLogger, mem
}

// readability is a platform whose memory check can be failed on demand
type readability struct {
	platform.Host
	ok bool
}

func (r readability) Readable(uintptr, int) bool { return r.ok }

func TestCompatBuilder(t *testing.T) {
	t.Run("with existing logger", func(t *testing.T) {
		builder, logger, _ := createTestCompatBuilder(t)

		gnetAdapter, err := builder.BuildGnet()
		require.NoError(t, err)
		assert.Same(t, logger, gnetAdapter.logger)

		hook, err := builder.BuildHook()
		require.NoError(t, err)
		assert.Same(t, logger, hook.logger)
	})

	t.Run("with config", func(t *testing.T) {
		cfg := rtlog.DefaultConfig()
		cfg.Sink = rtlog.SinkCustom

		builder := NewBuilder().WithConfig(cfg)
		fasthttpAdapter, err := builder.BuildFastHTTP()
		require.NoError(t, err)
		assert.NotNil(t, fasthttpAdapter)

		logger1, err := builder.GetLogger()
		require.NoError(t, err)
		defer logger1.Shutdown()
		logger2, _ := builder.GetLogger()
		assert.Same(t, logger1, logger2)
		assert.True(t, logger1.IsInitialized())
	})

	t.Run("nil logger", func(t *testing.T) {
		_, err := NewBuilder().WithLogger(nil).BuildGnet()
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := rtlog.DefaultConfig()
		cfg.PoolSize = 0
		_, err := NewBuilder().WithConfig(cfg).BuildHook()
		assert.Error(t, err)
	})
}

func TestGnetAdapter(t *testing.T) {
	builder, _, mem := createTestCompatBuilder(t)

	var fatalMsg string
	adapter, err := builder.BuildGnet(WithFatalHandler(func(msg string) {
		fatalMsg = msg
	}))
	require.NoError(t, err)

	adapter.Debugf("gnet debug id=%d", 1)
	adapter.Infof("gnet info id=%d", 2)
	adapter.Warnf("gnet warn id=%d", 3)
	adapter.Errorf("gnet error id=%d", 4)
	adapter.Fatalf("gnet fatal id=%d", 5)

	assert.Equal(t, []string{
		"[0][?][D] gnet: gnet debug id=1\r\n",
		"[0][?][I] gnet: gnet info id=2\r\n",
		"[0][?][W] gnet: gnet warn id=3\r\n",
		"[0][?][E] gnet: gnet error id=4\r\n",
		"[0][?][E] gnet: gnet fatal id=5\r\n",
	}, mem.Lines())
	assert.Equal(t, "gnet fatal id=5", fatalMsg)
	assert.Equal(t, 1, mem.Flushes(), "fatal flushes before the handler runs")
}

func TestGnetAdapterHonorsTagLevel(t *testing.T) {
	builder, logger, mem := createTestCompatBuilder(t)
	logger.SetTagLevel(GnetTag, rtlog.SeverityWarn)

	adapter, err := builder.BuildGnet()
	require.NoError(t, err)

	adapter.Infof("accepted connection")
	adapter.Warnf("slow loop %dms", 12)

	require.Equal(t, 1, mem.Count())
	assert.Contains(t, mem.Last(), "[W] gnet: slow loop 12ms")
}

func TestGnetAdapterPlugsIntoOptions(t *testing.T) {
	builder, _, _ := createTestCompatBuilder(t)
	adapter, err := builder.BuildGnet(WithGnetTag("net"))
	require.NoError(t, err)

	var opts gnet.Options
	gnet.WithLogger(adapter)(&opts)
	assert.Same(t, adapter, opts.Logger)
}

func TestFastHTTPAdapter(t *testing.T) {
	builder, _, mem := createTestCompatBuilder(t)

	adapter, err := builder.BuildFastHTTP()
	require.NoError(t, err)

	testMessages := []string{
		"this is some informational message",
		"a debug message for the developers",
		"warning: something might be wrong",
		"an error occurred while processing",
	}
	for _, msg := range testMessages {
		adapter.Printf("%s", msg)
	}

	lines := mem.Lines()
	require.Len(t, lines, 4)
	expectedLetters := []string{"I", "D", "W", "E"}
	for i, line := range lines {
		assert.Equal(t, "[0][?]["+expectedLetters[i]+"] fasthttp: "+testMessages[i]+"\r\n", line)
	}
}

func TestFastHTTPAdapterOptions(t *testing.T) {
	builder, _, mem := createTestCompatBuilder(t)

	adapter, err := builder.BuildFastHTTP(
		WithLevelDetector(nil),
		WithDefaultLevel(rtlog.SeverityWarn),
		WithFastHTTPTag("http"),
	)
	require.NoError(t, err)

	adapter.Printf("error %d%%", 50)
	assert.Equal(t, "[0][?][W] http: error 50%\r\n", mem.Last())

	server := &fasthttp.Server{Logger: adapter}
	assert.Same(t, adapter, server.Logger)
}

func TestDetectLogLevel(t *testing.T) {
	tests := []struct {
		msg  string
		want rtlog.Severity
	}{
		{"connection failed", rtlog.SeverityError},
		{"PANIC in handler", rtlog.SeverityError},
		{"deprecated header", rtlog.SeverityWarn},
		{"trace id 7", rtlog.SeverityDebug},
		{"served 200", rtlog.SeverityInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLogLevel(tt.msg), tt.msg)
	}
}

func TestSplitTag(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantTag string
		wantMsg string
	}{
		{"prefixed", "wifi: connected to %s", "wifi", "connected to %s"},
		{"no prefix", "boot complete", "SYS", "boot complete"},
		{"spaces skipped", "i2c:    nack", "i2c", "nack"},
		{"empty tag", ": bare", "", "bare"},
		{"verb in tag", "%s: failed", "SYS", "%s: failed"},
		{"tag too long", strings.Repeat("t", 32) + ": x", "SYS", strings.Repeat("t", 32) + ": x"},
		{"longest tag", strings.Repeat("t", 31) + ": x", strings.Repeat("t", 31), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, msg := splitTag(tt.format, DefaultHookTag)
			assert.Equal(t, tt.wantTag, tag)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestHookVprintf(t *testing.T) {
	builder, _, mem := createTestCompatBuilder(t)
	hook, err := builder.BuildHook()
	require.NoError(t, err)

	assert.Zero(t, hook.Vprintf("wifi: rssi %d", -61))
	assert.Zero(t, hook.Vprintf("heap low"))
	assert.Zero(t, hook.Vprintf(""))

	assert.Equal(t, []string{
		"[0][?][I] wifi: rssi -61\r\n",
		"[0][?][I] SYS: heap low\r\n",
	}, mem.Lines())
}

func TestHookRejectsUnreadableFormat(t *testing.T) {
	builder, logger, mem := createTestCompatBuilder(t)
	hook, err := builder.BuildHook(WithHookPlatform(readability{ok: false}))
	require.NoError(t, err)

	hook.Vprintf("wifi: rssi %d", -61)
	assert.Zero(t, mem.Count())
	assert.Zero(t, logger.Stats().Accepted)

	hook = NewHook(logger, WithHookPlatform(readability{ok: true}), WithHookSeverity(rtlog.SeverityWarn), WithHookTag("ROM"))
	hook.Vprintf("flash %s", "ok")
	assert.Equal(t, "[0][?][W] ROM: flash ok\r\n", mem.Last())
}

func TestRedirectStdLog(t *testing.T) {
	_, logger, mem := createTestCompatBuilder(t)

	restore := RedirectStdLog(logger)
	log.Printf("ota: %d%% done", 40)
	log.Print("no tag here")
	restore()

	assert.Equal(t, []string{
		"[0][?][I] ota: 40% done\r\n",
		"[0][?][I] SYS: no tag here\r\n",
	}, mem.Lines())
}

// A message redirected from the standard logger that cannot get a buffer goes
// to the native fallback exactly once and never re-enters the redirect.
func TestRedirectedStdLogIsNotWrittenTwice(t *testing.T) {
	stderr := &syncBuffer{}
	_, logger, mem := createTestCompatBuilder(t, rtlog.WithConsoleOutput(stderr))
	require.NoError(t, logger.ApplyConfigString("pool_size=2", "pool_fallback=false"))

	restore := RedirectStdLog(logger)
	defer restore()

	// Normal path: one line in the sink, nothing native
	log.Print("net: link up")
	require.Equal(t, 1, mem.Count())
	assert.Empty(t, stderr.String())

	// Exhausted pool: one native line, nothing in the sink
	a, b := logger.Pool().Acquire(), logger.Pool().Acquire()
	require.NotNil(t, a)
	require.NotNil(t, b)
	log.Print("net: link down")
	logger.Pool().Release(a)
	logger.Pool().Release(b)

	assert.Equal(t, 1, mem.Count())
	assert.Equal(t, 1, strings.Count(stderr.String(), "link down"))
	assert.Equal(t, "I (native) net: link down\r\n", stderr.String())
	assert.Equal(t, uint64(1), logger.Stats().FallbackWrites)
}
