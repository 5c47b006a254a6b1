package rtlog

import (
	"sync/atomic"
	"time"

	"github.com/lixenwraith/rtlog/internal/lock"
	"github.com/lixenwraith/rtlog/platform"
)

type tagLevel struct {
	tag   string
	level Severity
}

// tagTable is a fixed-capacity tag→level map. Entries are never removed.
type tagTable struct {
	entries  [MaxTags]tagLevel
	count    int
	mu       *lock.Timed
	timeout  atomic.Int64 // time.Duration
	platform platform.Platform
}

func newTagTable(timeout time.Duration, p platform.Platform) *tagTable {
	t := &tagTable{mu: lock.New(), platform: p}
	t.timeout.Store(int64(timeout))
	return t
}

func normalizeTag(tag string) string {
	if len(tag) >= MaxTagLength {
		return tag[:MaxTagLength-1]
	}
	return tag
}

// acquire locks the table once the scheduler runs. held tells release
// whether there is a lock to give back.
func (t *tagTable) acquire() (held bool, ok bool) {
	if !t.platform.SchedulerRunning() {
		return false, true
	}
	if !t.mu.LockTimeout(time.Duration(t.timeout.Load())) {
		return false, false
	}
	return true, true
}

func (t *tagTable) release(held bool) {
	if held {
		t.mu.Unlock()
	}
}

// set inserts or updates tag. It reports false only on lock timeout; a full
// table drops new tags silently.
func (t *tagTable) set(tag string, level Severity) bool {
	tag = normalizeTag(tag)
	held, ok := t.acquire()
	if !ok {
		return false
	}
	defer t.release(held)

	for i := 0; i < t.count; i++ {
		if t.entries[i].tag == tag {
			t.entries[i].level = level
			return true
		}
	}
	if t.count < MaxTags {
		t.entries[t.count] = tagLevel{tag: tag, level: level}
		t.count++
	}
	return true
}

// get returns the tag's level and whether it was present. ok is false on
// lock timeout.
func (t *tagTable) get(tag string) (Severity, bool, bool) {
	tag = normalizeTag(tag)
	held, ok := t.acquire()
	if !ok {
		return SeverityNone, false, false
	}
	defer t.release(held)

	for i := 0; i < t.count; i++ {
		if t.entries[i].tag == tag {
			return t.entries[i].level, true, true
		}
	}
	return SeverityNone, false, true
}

func (t *tagTable) len() int {
	held, ok := t.acquire()
	if !ok {
		return -1
	}
	defer t.release(held)
	return t.count
}

// SetTagLevel sets the level for tag, overriding the global level. Tags are
// matched exactly and cut to MaxTagLength-1 bytes. Once MaxTags tags exist,
// new tags are ignored.
func (l *Logger) SetTagLevel(tag string, level Severity) {
	if !l.tags.set(tag, level) {
		l.noteLockTimeout("tag table update")
	}
}

// GetTagLevel returns the level in force for tag: its own if set, else the
// global level. Contention on the table falls back to the global level.
func (l *Logger) GetTagLevel(tag string) Severity {
	level, found, ok := l.tags.get(tag)
	if !ok {
		l.noteLockTimeout("tag table lookup")
		return l.Level()
	}
	if !found {
		return l.Level()
	}
	return level
}

// IsLevelEnabledForTag reports whether a message of level under tag would be
// emitted.
func (l *Logger) IsLevelEnabledForTag(tag string, level Severity) bool {
	if !l.state.Enabled.Load() || level == SeverityNone {
		return false
	}
	return level <= l.GetTagLevel(tag)
}

// TagCount returns the number of tags with their own level, or -1 if the
// table was busy.
func (l *Logger) TagCount() int {
	return l.tags.len()
}
