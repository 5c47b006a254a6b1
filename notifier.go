package rtlog

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/rtlog/formatter"
	"github.com/lixenwraith/rtlog/internal/lock"
	"github.com/lixenwraith/rtlog/platform"
)

var (
	ErrNilSubscriber       = errors.New("rtlog: subscriber is nil")
	ErrSubscriberLimit     = errors.New("rtlog: subscriber limit reached")
	ErrDuplicateSubscriber = errors.New("rtlog: subscriber already registered")
	ErrLockTimeout         = errors.New("rtlog: lock timeout")
)

// Subscriber receives every emitted message before decoration. Implementations
// must be comparable; registration and removal use ==.
type Subscriber interface {
	OnLog(severity Severity, tag string, msg string)
}

type funcSubscriber struct {
	fn func(Severity, string, string)
}

func (s *funcSubscriber) OnLog(severity Severity, tag string, msg string) {
	s.fn(severity, tag, msg)
}

// NewSubscriber wraps fn. Each call returns a distinct Subscriber.
func NewSubscriber(fn func(severity Severity, tag string, msg string)) Subscriber {
	return &funcSubscriber{fn: fn}
}

// Message is the bounded copy queued for asynchronous delivery.
type Message struct {
	Severity Severity
	Tag      string
	Text     string
}

// consumer is one run of the delivery goroutine. A stuck consumer is
// abandoned together with its queue.
type consumer struct {
	queue  chan Message
	quit   chan struct{}
	exited chan struct{}
	core   int
}

// Notifier fans messages out to up to MaxSubscribers subscribers, either
// synchronously on the caller or through a bounded queue drained by a
// goroutine pinned to one core.
type Notifier struct {
	mu      *lock.Timed
	timeout atomic.Int64 // time.Duration
	subs    [MaxSubscribers]Subscriber
	n       atomic.Int32

	lifecycle sync.Mutex
	running   atomic.Bool
	active    atomic.Pointer[consumer]
	queueSize int

	platform platform.Platform
	logf     func(format string, args ...any)

	dropped      atomic.Uint64
	lockTimeouts atomic.Uint64
	forcedStops  atomic.Uint64
	panics       atomic.Uint64
}

// NewNotifier creates a stopped notifier. logf receives internal diagnostics
// and may be nil.
func NewNotifier(queueSize int, timeout time.Duration, p platform.Platform, logf func(string, ...any)) *Notifier {
	if p == nil {
		p = platform.Default()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	n := &Notifier{mu: lock.New(), queueSize: queueSize, platform: p, logf: logf}
	n.timeout.Store(int64(timeout))
	return n
}

func (n *Notifier) acquire() (held bool, ok bool) {
	if !n.platform.SchedulerRunning() {
		return false, true
	}
	if !n.mu.LockTimeout(time.Duration(n.timeout.Load())) {
		n.lockTimeouts.Add(1)
		return false, false
	}
	return true, true
}

func (n *Notifier) release(held bool) {
	if held {
		n.mu.Unlock()
	}
}

// AddSubscriber registers s.
func (n *Notifier) AddSubscriber(s Subscriber) error {
	if s == nil {
		return ErrNilSubscriber
	}
	held, ok := n.acquire()
	if !ok {
		return ErrLockTimeout
	}
	defer n.release(held)

	count := int(n.n.Load())
	for i := 0; i < count; i++ {
		if n.subs[i] == s {
			return ErrDuplicateSubscriber
		}
	}
	if count >= MaxSubscribers {
		return ErrSubscriberLimit
	}
	n.subs[count] = s
	n.n.Store(int32(count + 1))
	return nil
}

// RemoveSubscriber unregisters s and reports whether it was registered.
func (n *Notifier) RemoveSubscriber(s Subscriber) bool {
	held, ok := n.acquire()
	if !ok {
		return false
	}
	defer n.release(held)

	count := int(n.n.Load())
	for i := 0; i < count; i++ {
		if n.subs[i] == s {
			copy(n.subs[i:count], n.subs[i+1:count])
			n.subs[count-1] = nil
			n.n.Store(int32(count - 1))
			return true
		}
	}
	return false
}

// SubscriberCount returns the number of registered subscribers.
func (n *Notifier) SubscriberCount() int {
	return int(n.n.Load())
}

// snapshot copies the subscriber list so callbacks run without the lock.
func (n *Notifier) snapshot(dst *[MaxSubscribers]Subscriber) int {
	held, ok := n.acquire()
	if !ok {
		return -1
	}
	defer n.release(held)
	count := int(n.n.Load())
	copy(dst[:], n.subs[:count])
	return count
}

// Notify delivers a message. It does nothing in interrupt context. While the
// delivery goroutine runs, a bounded copy is queued without waiting and
// dropped if the queue is full; otherwise subscribers are called directly.
func (n *Notifier) Notify(severity Severity, tag string, msg []byte) {
	if n.n.Load() == 0 || n.platform.InInterrupt() {
		return
	}

	if n.running.Load() {
		c := n.active.Load()
		if c == nil {
			n.dropped.Add(1)
			return
		}
		m := Message{
			Severity: severity,
			Tag:      formatter.Truncate(tag, maxNotifyTagLen),
			Text:     formatter.Truncate(string(msg[:min(len(msg), maxNotifyMessageLen+utf8Slack)]), maxNotifyMessageLen),
		}
		select {
		case c.queue <- m:
		default:
			n.dropped.Add(1)
		}
		return
	}

	var subs [MaxSubscribers]Subscriber
	count := n.snapshot(&subs)
	if count < 0 {
		n.dropped.Add(1)
		return
	}
	text := string(msg)
	for i := 0; i < count; i++ {
		n.invoke(subs[i], severity, tag, text)
	}
}

// utf8Slack keeps enough bytes past the limit to find a rune boundary.
const utf8Slack = 4

func (n *Notifier) invoke(s Subscriber, severity Severity, tag, text string) {
	defer func() {
		if r := recover(); r != nil {
			n.panics.Add(1)
			n.logf("subscriber panic: %v\n", r)
		}
	}()
	s.OnLog(severity, tag, text)
}

// Start launches the delivery goroutine on its own OS thread pinned to core.
// A negative core leaves the thread unpinned. Starting a running notifier is
// a no-op.
func (n *Notifier) Start(core int) error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	if n.running.Load() {
		return nil
	}

	c := &consumer{
		queue:  make(chan Message, n.queueSize),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		core:   core,
	}
	pinned := make(chan error, 1)
	go n.run(c, pinned)
	if err := <-pinned; err != nil {
		return fmtErrorf("failed to start subscriber task on core %d: %w", core, err)
	}

	n.active.Store(c)
	n.running.Store(true)
	return nil
}

func (n *Notifier) run(c *consumer, pinned chan<- error) {
	defer close(c.exited)

	runtime.LockOSThread()
	// The thread is never unlocked: its affinity mask has been narrowed and it
	// must not return to the scheduler's pool.
	if c.core >= 0 {
		if err := n.platform.PinToCore(c.core); err != nil {
			pinned <- err
			return
		}
	}
	pinned <- nil

	var subs [MaxSubscribers]Subscriber
	for {
		select {
		case <-c.quit:
			return
		case m := <-c.queue:
			count := n.snapshot(&subs)
			if count < 0 {
				n.dropped.Add(1)
				continue
			}
			for i := 0; i < count; i++ {
				n.invoke(subs[i], m.Severity, m.Tag, m.Text)
				subs[i] = nil
			}
		}
	}
}

// Stop signals the delivery goroutine and waits briefly for it to exit. A
// goroutine still busy in a callback is abandoned with its queue and counted
// as a forced stop. Notifications then go back to direct delivery.
func (n *Notifier) Stop() error {
	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	if !n.running.Load() {
		return nil
	}
	n.running.Store(false)
	c := n.active.Swap(nil)
	if c == nil {
		return nil
	}
	close(c.quit)

	for i := 0; i < stopPollAttempts; i++ {
		select {
		case <-c.exited:
			return nil
		case <-time.After(stopPollInterval):
		}
	}
	n.forcedStops.Add(1)
	n.logf("subscriber task did not exit within %v, abandoned\n", stopPollInterval*stopPollAttempts)
	return fmtErrorf("subscriber task did not exit within %v", stopPollInterval*stopPollAttempts)
}

// Running reports whether the delivery goroutine is active.
func (n *Notifier) Running() bool { return n.running.Load() }

// Core returns the core the delivery goroutine was pinned to, or -1.
func (n *Notifier) Core() int {
	if c := n.active.Load(); c != nil {
		return c.core
	}
	return -1
}

// SetQueueSize sets the queue capacity used by the next Start.
func (n *Notifier) SetQueueSize(size int) {
	if size < 1 {
		return
	}
	n.lifecycle.Lock()
	n.queueSize = size
	n.lifecycle.Unlock()
}

// SetLockTimeout changes how long subscriber list access waits.
func (n *Notifier) SetLockTimeout(d time.Duration) { n.timeout.Store(int64(d)) }

func (n *Notifier) Dropped() uint64 { return n.dropped.Load() }

func (n *Notifier) LockTimeouts() uint64 { return n.lockTimeouts.Load() }

func (n *Notifier) ForcedStops() uint64 { return n.forcedStops.Load() }

func (n *Notifier) Panics() uint64 { return n.panics.Load() }

func (n *Notifier) ResetLockTimeouts() { n.lockTimeouts.Store(0) }

// ResetStats zeroes the notifier counters.
func (n *Notifier) ResetStats() {
	n.dropped.Store(0)
	n.lockTimeouts.Store(0)
	n.forcedStops.Store(0)
	n.panics.Store(0)
}
