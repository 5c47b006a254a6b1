package rtlog

import (
	"bytes"
	"io"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/rtlog/platform"
	"github.com/lixenwraith/rtlog/sink"
)

// fakePlatform lets tests control scheduler state and interrupt context, and
// records core pinning per goroutine.
type fakePlatform struct {
	platform.Host
	preScheduler atomic.Bool
	interrupt    atomic.Bool
	pinErr       error

	mu     sync.Mutex
	pinned map[uint64]int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{pinned: make(map[uint64]int)}
}

func (p *fakePlatform) SchedulerRunning() bool { return !p.preScheduler.Load() }

func (p *fakePlatform) InInterrupt() bool { return p.interrupt.Load() }

func (p *fakePlatform) PinToCore(core int) error {
	if p.pinErr != nil {
		return p.pinErr
	}
	p.mu.Lock()
	p.pinned[goroutineID()] = core
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) CurrentCore() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if core, ok := p.pinned[goroutineID()]; ok {
		return core
	}
	return -1
}

// goroutineID parses the id out of the "goroutine N [" stack header.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// newTestLogger returns an unthrottled logger writing only to a memory sink,
// on a manual clock.
func newTestLogger(t testing.TB, opts ...Option) (*Logger, *sink.Memory, *ManualClock) {
	t.Helper()
	clock := NewManualClock(0)
	opts = append([]Option{WithConsoleOutput(io.Discard), WithClock(clock)}, opts...)
	logger := NewLogger(opts...)

	cfg := DevelopmentConfig()
	cfg.Level = "verbose"
	cfg.Sink = SinkCustom
	require.NoError(t, logger.ApplyConfig(cfg))

	mem := sink.NewMemory()
	require.True(t, logger.SetBackend(mem))

	t.Cleanup(func() { _ = logger.Shutdown() })
	return logger, mem, clock
}

// recorder is a Subscriber collecting what it receives.
type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) OnLog(severity Severity, tag string, msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, Message{Severity: severity, Tag: tag, Text: msg})
	r.mu.Unlock()
}

func (r *recorder) all() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// lockedBuffer is a bytes.Buffer safe for the console drain goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}
