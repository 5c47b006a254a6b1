package sink

// Plain writes straight to its device and flushes by blocking until the
// device has drained. It never drops a line; its counters only see bytes the
// device itself refused.
type Plain struct {
	device   Device
	minSpace int
	stats    counters
}

// NewPlain creates a sink that writes directly to d. Only WithMinSpace
// applies, as the Critical threshold.
func NewPlain(d Device, opts ...Option) *Plain {
	o := buildOptions(opts)
	return &Plain{device: d, minSpace: o.minSpace}
}

func (s *Plain) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	n, _ := s.device.Write(p)
	if n < len(p) {
		s.stats.partialWrites.Add(1)
		s.stats.droppedBytes.Add(uint64(len(p) - n))
	}
}

// Flush blocks until the device drains.
func (s *Plain) Flush() {
	s.device.Flush()
}

func (s *Plain) Stats() Stats { return s.stats.snapshot() }

func (s *Plain) ResetStats() { s.stats.reset() }

// Critical reports whether the next write is likely to block.
func (s *Plain) Critical() bool {
	return s.device.Available() < s.minSpace
}
