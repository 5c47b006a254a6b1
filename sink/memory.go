package sink

import (
	"strings"
	"sync"
)

// Memory captures every line it receives. It is meant for tests.
type Memory struct {
	mu      sync.Mutex
	lines   []string
	flushes int
}

// NewMemory creates an empty capture sink
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Write(p []byte) {
	m.mu.Lock()
	m.lines = append(m.lines, string(p))
	m.mu.Unlock()
}

func (m *Memory) Flush() {
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
}

// Lines returns a copy of the captured lines.
func (m *Memory) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines)
}

// Contains reports whether any captured line contains substr.
func (m *Memory) Contains(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// Last returns the most recent line, or "".
func (m *Memory) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.lines) == 0 {
		return ""
	}
	return m.lines[len(m.lines)-1]
}

func (m *Memory) Flushes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}

func (m *Memory) Clear() {
	m.mu.Lock()
	m.lines = nil
	m.mu.Unlock()
}
