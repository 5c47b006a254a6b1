package sink

import (
	"context"
	"io"
	"sync"

	"golang.org/x/time/rate"
)

const (
	DefaultTxBuffer = 88 // Transmit buffer of a typical embedded UART
	unbounded       = 1 << 30
)

// Console emulates a serial port: a small transmit buffer drained to out by a
// writer goroutine. Write blocks while the buffer is full, Flush blocks until
// it is empty. Both are the behaviors the non-blocking sinks avoid.
type Console struct {
	mu       sync.Mutex
	cond     *sync.Cond
	out      io.Writer
	pending  []byte
	size     int
	rate     int // Bytes per second, 0 = unthrottled
	pace     *rate.Limiter
	draining bool
	closed   bool
	done     chan struct{}
}

// ConsoleOption configures a Console
type ConsoleOption func(*Console)

// TxBuffer sets the transmit buffer size.
func TxBuffer(n int) ConsoleOption {
	return func(c *Console) {
		if n > 0 {
			c.size = n
		}
	}
}

// BytesPerSecond throttles the drain to emulate a line rate.
func BytesPerSecond(n int) ConsoleOption {
	return func(c *Console) {
		if n > 0 {
			c.rate = n
		}
	}
}

// NewConsole starts a console device draining into out.
func NewConsole(out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		out:  out,
		size: DefaultTxBuffer,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pending = make([]byte, 0, c.size)
	if c.rate > 0 {
		c.pace = rate.NewLimiter(rate.Limit(c.rate), max(1, c.rate/100))
	}
	c.cond = sync.NewCond(&c.mu)
	go c.drain()
	return c
}

// Write queues p, blocking while the transmit buffer is full.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	written := 0
	for written < len(p) {
		if c.closed {
			return written, io.ErrClosedPipe
		}
		room := c.size - len(c.pending)
		if room == 0 {
			c.cond.Wait()
			continue
		}
		n := min(room, len(p)-written)
		c.pending = append(c.pending, p[written:written+n]...)
		written += n
		c.cond.Broadcast()
	}
	return written, nil
}

// TryWrite queues as much of p as the transmit buffer has room for.
func (c *Console) TryWrite(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	n := min(c.size-len(c.pending), len(p))
	if n > 0 {
		c.pending = append(c.pending, p[:n]...)
		c.cond.Broadcast()
	}
	return n
}

// Available returns the free transmit buffer space.
func (c *Console) Available() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size - len(c.pending)
}

// Flush blocks until every queued byte has reached out.
func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for (len(c.pending) > 0 || c.draining) && !c.closed {
		c.cond.Wait()
	}
	return nil
}

// Close drains what is queued and stops the writer goroutine.
func (c *Console) Close() error {
	c.Flush()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cond.Broadcast()
	c.mu.Unlock()
	<-c.done
	forgetDevice(c)
	return nil
}

func (c *Console) drain() {
	defer close(c.done)
	chunk := make([]byte, c.size)

	c.mu.Lock()
	for {
		for len(c.pending) == 0 && !c.closed {
			c.cond.Wait()
		}
		if c.closed {
			c.mu.Unlock()
			return
		}

		n := len(c.pending)
		if c.pace != nil {
			n = min(n, c.pace.Burst())
		}
		copy(chunk, c.pending[:n])
		c.draining = true
		c.mu.Unlock()

		if c.pace != nil {
			_ = c.pace.WaitN(context.Background(), n)
		}
		c.out.Write(chunk[:n])

		c.mu.Lock()
		// Bytes stay counted against the buffer until transmitted
		c.pending = append(c.pending[:0], c.pending[n:]...)
		c.draining = false
		c.cond.Broadcast()
	}
}

// WriterDevice adapts an io.Writer that never reports back-pressure.
type WriterDevice struct {
	w io.Writer
}

// NewWriterDevice wraps w as a Device with unbounded space.
func NewWriterDevice(w io.Writer) *WriterDevice {
	return &WriterDevice{w: w}
}

func (d *WriterDevice) Write(p []byte) (int, error) {
	return d.w.Write(p)
}

// TryWrite writes p through; the writer has no buffer to run out of.
func (d *WriterDevice) TryWrite(p []byte) int {
	n, _ := d.w.Write(p)
	return n
}

// Available is unbounded.
func (d *WriterDevice) Available() int { return unbounded }

// Flush syncs the underlying writer when it supports it.
func (d *WriterDevice) Flush() error {
	switch w := d.w.(type) {
	case interface{ Flush() error }:
		return w.Flush()
	case interface{ Sync() error }:
		return w.Sync()
	}
	return nil
}
