package sink

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/rtlog/platform"
)

// fakeDevice reports a fixed amount of free space and records writes.
type fakeDevice struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	available int
	writes    int
	flushes   int
}

func newFakeDevice(available int) *fakeDevice {
	return &fakeDevice{available: available}
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	return d.buf.Write(p)
}

func (d *fakeDevice) TryWrite(p []byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	n := min(len(p), d.available)
	d.buf.Write(p[:n])
	return n
}

func (d *fakeDevice) Available() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.available
}

func (d *fakeDevice) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushes++
	return nil
}

func (d *fakeDevice) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.String()
}

// preScheduler reports the scheduler as not yet running.
type preScheduler struct{ platform.Host }

func (preScheduler) SchedulerRunning() bool { return false }

func TestNonBlockingWritesWhenSpace(t *testing.T) {
	dev := newFakeDevice(100)
	s := NewNonBlocking(dev)

	s.Write([]byte("hello\r\n"))

	assert.Equal(t, "hello\r\n", dev.String())
	assert.Equal(t, Stats{}, s.Stats())
}

func TestNonBlockingDropsBelowMinSpace(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewNonBlocking(dev)

	s.Write([]byte("dropped line\r\n"))

	assert.Empty(t, dev.String())
	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.DroppedMessages)
	assert.Equal(t, uint64(len("dropped line\r\n")), stats.DroppedBytes)
	assert.Equal(t, uint64(0), stats.PartialWrites)
	assert.True(t, s.Critical())
	assert.Zero(t, dev.writes, "no device write may happen without space")
}

func TestNonBlockingTruncates(t *testing.T) {
	dev := newFakeDevice(30)
	s := NewNonBlocking(dev)
	msg := []byte(strings.Repeat("x", 50))

	s.Write(msg)

	out := dev.String()
	assert.Len(t, out, 30)
	assert.True(t, strings.HasSuffix(out, TruncationMarker))
	assert.Equal(t, strings.Repeat("x", 25), strings.TrimSuffix(out, TruncationMarker))

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.PartialWrites)
	assert.Equal(t, uint64(25), stats.DroppedBytes)
	assert.Equal(t, uint64(0), stats.DroppedMessages)
}

func TestNonBlockingMinSpaceOption(t *testing.T) {
	dev := newFakeDevice(10)
	s := NewNonBlocking(dev, WithMinSpace(5))

	s.Write([]byte("abc"))
	assert.Equal(t, "abc", dev.String())

	// Space for the marker only
	dev.available = 5
	s.Write([]byte("toolongline"))
	assert.Equal(t, uint64(1), s.Stats().DroppedMessages)
}

func TestNonBlockingFlushIsNoop(t *testing.T) {
	dev := newFakeDevice(100)
	s := NewNonBlocking(dev)
	s.Flush()
	assert.Zero(t, dev.flushes)
}

func TestNonBlockingResetStats(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewNonBlocking(dev)
	s.Write([]byte("x"))
	require.Equal(t, uint64(1), s.Stats().DroppedMessages)

	s.ResetStats()
	assert.Equal(t, Stats{}, s.Stats())
}

func TestEmptyWriteIgnored(t *testing.T) {
	dev := newFakeDevice(0)
	sinks := []Sink{NewPlain(dev), NewNonBlocking(dev), NewSynchronized(dev), NewThreadSafeNonBlocking(dev)}
	for _, s := range sinks {
		s.Write(nil)
	}
	assert.Zero(t, dev.writes)
}

func TestPlain(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewPlain(dev)

	s.Write([]byte("line\r\n"))
	s.Flush()

	assert.Equal(t, "line\r\n", dev.String())
	assert.Equal(t, 1, dev.flushes)
}

func TestSynchronizedWritesAndFlushes(t *testing.T) {
	dev := newFakeDevice(100)
	s := NewSynchronized(dev)

	s.Write([]byte("a\r\n"))

	assert.Equal(t, "a\r\n", dev.String())
	assert.Equal(t, 1, dev.flushes)
}

func TestSynchronizedDropsOnLockTimeout(t *testing.T) {
	dev := newFakeDevice(100)
	s := NewSynchronized(dev, WithLockTimeout(10*time.Millisecond))

	mu := lockFor(dev)
	require.True(t, mu.TryLock())
	start := time.Now()
	s.Write([]byte("late"))
	elapsed := time.Since(start)
	mu.Unlock()

	assert.Empty(t, dev.String())
	assert.Less(t, elapsed, time.Second)
	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.DroppedMessages)
	assert.Equal(t, uint64(1), stats.LockContention)
}

func TestSynchronizedFlushSkippedWhenBusy(t *testing.T) {
	dev := newFakeDevice(100)
	s := NewSynchronized(dev, WithFlushTimeout(time.Millisecond))

	mu := lockFor(dev)
	require.True(t, mu.TryLock())
	s.Flush()
	mu.Unlock()
	assert.Zero(t, dev.flushes)

	s.Flush()
	assert.Equal(t, 1, dev.flushes)
}

func TestSynchronizedPreSchedulerSkipsLock(t *testing.T) {
	dev := newFakeDevice(100)
	s := NewSynchronized(dev, WithPlatform(preScheduler{}))

	mu := lockFor(dev)
	require.True(t, mu.TryLock())
	defer mu.Unlock()

	s.Write([]byte("boot"))
	assert.Equal(t, "boot", dev.String())
}

func TestSynchronizedNoInterleaving(t *testing.T) {
	var out bytes.Buffer
	dev := NewWriterDevice(&out)
	s := NewSynchronized(dev, WithLockTimeout(5*time.Second))

	const writers, lines = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			line := []byte(strings.Repeat(string(rune('a'+id)), 40) + "\r\n")
			for i := 0; i < lines; i++ {
				s.Write(line)
			}
		}(w)
	}
	wg.Wait()

	got := strings.Split(strings.TrimSuffix(out.String(), "\r\n"), "\r\n")
	require.Len(t, got, writers*lines)
	for _, l := range got {
		require.Len(t, l, 40)
		assert.Equal(t, strings.Repeat(l[:1], 40), l, "line interleaved")
	}
}

func TestSinksOverSameDeviceShareLock(t *testing.T) {
	dev := newFakeDevice(100)
	a := NewSynchronized(dev)
	b := NewThreadSafeNonBlocking(dev)
	assert.Same(t, a.mu, b.mu)

	other := NewSynchronized(newFakeDevice(100))
	assert.NotSame(t, a.mu, other.mu)
}

func TestThreadSafeNonBlockingDropsOnContention(t *testing.T) {
	dev := newFakeDevice(100)
	s := NewThreadSafeNonBlocking(dev)

	mu := lockFor(dev)
	require.True(t, mu.TryLock())
	s.Write([]byte("busy"))
	mu.Unlock()

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.DroppedMessages)
	assert.Equal(t, uint64(1), stats.LockContention)
	assert.Equal(t, uint64(4), stats.DroppedBytes)
	assert.Empty(t, dev.String())
}

func TestThreadSafeNonBlockingBufferFull(t *testing.T) {
	dev := newFakeDevice(3)
	s := NewThreadSafeNonBlocking(dev)

	s.Write([]byte("no room"))

	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.BufferFull)
	assert.Equal(t, uint64(1), stats.DroppedMessages)
	assert.True(t, s.Critical())
}

func TestThreadSafeNonBlockingTruncates(t *testing.T) {
	dev := newFakeDevice(25)
	s := NewThreadSafeNonBlocking(dev)

	s.Write([]byte(strings.Repeat("y", 40)))

	assert.Equal(t, strings.Repeat("y", 20)+TruncationMarker, dev.String())
	assert.Equal(t, uint64(1), s.Stats().PartialWrites)
}

func TestThreadSafeNonBlockingHealthy(t *testing.T) {
	dev := newFakeDevice(0)
	s := NewThreadSafeNonBlocking(dev)

	for i := 0; i < HealthyDropLimit-1; i++ {
		s.Write([]byte("x"))
	}
	assert.True(t, s.Healthy())

	s.Write([]byte("x"))
	assert.False(t, s.Healthy())

	s.ResetStats()
	assert.True(t, s.Healthy())
}

func TestMonitorImplementations(t *testing.T) {
	dev := newFakeDevice(100)
	var _ Monitor = NewNonBlocking(dev)
	var _ Monitor = NewThreadSafeNonBlocking(dev)
	var _ Monitor = NewSynchronized(dev)
	var _ Monitor = NewPlain(dev)
}

// shortDevice accepts at most limit bytes per write.
type shortDevice struct {
	*fakeDevice
	limit int
}

func (d shortDevice) Write(p []byte) (int, error) {
	return d.fakeDevice.Write(p[:min(len(p), d.limit)])
}

func TestPlainCountsShortWrites(t *testing.T) {
	dev := shortDevice{fakeDevice: newFakeDevice(10), limit: 4}
	s := NewPlain(dev, WithMinSpace(20))

	s.Write([]byte("abcdef"))

	assert.Equal(t, "abcd", dev.String())
	assert.Equal(t, Stats{PartialWrites: 1, DroppedBytes: 2}, s.Stats())
	assert.True(t, s.Critical())

	s.ResetStats()
	assert.Equal(t, Stats{}, s.Stats())
}

func TestNonBlockingSpaceTakenBeforeWrite(t *testing.T) {
	// The check sees room, but the device takes nothing by the time we write
	dev := &vanishingDevice{fakeDevice: newFakeDevice(100)}
	s := NewNonBlocking(dev)

	s.Write([]byte("late line\r\n"))

	assert.Empty(t, dev.String())
	assert.Equal(t, uint64(1), s.Stats().DroppedMessages)
	assert.Zero(t, dev.blockingWrites)
}

// vanishingDevice reports space but refuses every non-waiting write.
type vanishingDevice struct {
	*fakeDevice
	blockingWrites int
}

func (d *vanishingDevice) Write(p []byte) (int, error) {
	d.blockingWrites++
	return len(p), nil
}

func (d *vanishingDevice) TryWrite([]byte) int { return 0 }

func TestMemory(t *testing.T) {
	m := NewMemory()
	buf := []byte("first\r\n")
	m.Write(buf)
	buf[0] = 'X'
	m.Write([]byte("second\r\n"))
	m.Flush()

	assert.Equal(t, []string{"first\r\n", "second\r\n"}, m.Lines(), "lines must be copied")
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.Contains("sec"))
	assert.False(t, m.Contains("third"))
	assert.Equal(t, "second\r\n", m.Last())
	assert.Equal(t, 1, m.Flushes())

	m.Clear()
	assert.Zero(t, m.Count())
	assert.Empty(t, m.Last())
}
