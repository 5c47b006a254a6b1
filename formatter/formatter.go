// Package formatter renders log text into caller-owned fixed-size buffers.
// Nothing here grows a buffer: output that does not fit is truncated on a
// UTF-8 boundary and the line terminator, when requested, is always kept.
package formatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"

	"github.com/lixenwraith/rtlog/sanitizer"
)

// DefaultTerminator ends every decorated line.
const DefaultTerminator = "\r\n"

// Header carries the decoration of one log line.
type Header struct {
	Millis uint32 // Milliseconds since start
	Task   string // Originating task name
	Letter byte   // Severity letter
	Tag    string
}

// Formatter builds decorated lines. It holds no per-call state and is safe for
// concurrent use once configured.
type Formatter struct {
	sanitizer       *sanitizer.Sanitizer
	terminator      string
	timestampFormat string
	dumper          *spew.ConfigState
}

// New creates a formatter with the provided sanitizer
func New(s ...*sanitizer.Sanitizer) *Formatter {
	var san *sanitizer.Sanitizer
	if len(s) > 0 && s[0] != nil {
		san = s[0]
	}
	return &Formatter{
		sanitizer:       san,
		terminator:      DefaultTerminator,
		timestampFormat: time.RFC3339Nano,
		dumper: &spew.ConfigState{
			Indent:                  " ",
			MaxDepth:                10,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		},
	}
}

// Terminator sets the line terminator
func (f *Formatter) Terminator(t string) *Formatter {
	f.terminator = t
	return f
}

// TimestampFormat sets the layout used for time.Time values
func (f *Formatter) TimestampFormat(format string) *Formatter {
	if format != "" {
		f.timestampFormat = format
	}
	return f
}

// Printf formats into dst and returns the byte count and whether output was cut.
func Printf(dst []byte, format string, args ...any) (int, bool) {
	w := fixedWriter{buf: dst}
	if len(args) == 0 && strings.IndexByte(format, '%') < 0 {
		w.WriteString(format)
	} else {
		fmt.Fprintf(&w, format, args...)
	}
	return w.n, w.truncated
}

// Envelope writes "[millis][task][L] tag: msg" followed by the terminator when
// terminate is set. Overlong lines lose the end of msg, never the terminator.
func (f *Formatter) Envelope(dst []byte, h Header, msg []byte, terminate bool) int {
	term := ""
	if terminate {
		term = f.terminator
	}
	if len(dst) < len(term) {
		return copy(dst, term)
	}

	w := fixedWriter{buf: dst[:len(dst)-len(term)]}
	var num [10]byte
	w.WriteByte('[')
	w.Write(strconv.AppendUint(num[:0], uint64(h.Millis), 10))
	w.WriteString("][")
	w.WriteString(h.Task)
	w.WriteString("][")
	w.WriteByte(h.Letter)
	w.WriteString("] ")
	w.WriteString(h.Tag)
	w.WriteString(": ")
	if f.sanitizer.Clean(msg) {
		w.Write(msg)
	} else {
		w.Write(f.sanitizer.Append(make([]byte, 0, len(msg)+16), msg))
	}
	return w.n + copy(dst[w.n:], term)
}

// Values writes args space-separated into dst. Composite values are dumped.
func (f *Formatter) Values(dst []byte, args ...any) int {
	w := fixedWriter{buf: dst}
	for i, arg := range args {
		if i > 0 {
			w.WriteByte(' ')
		}
		f.writeValue(&w, arg)
	}
	return w.n
}

func (f *Formatter) writeValue(w *fixedWriter, v any) {
	var num [32]byte
	switch val := v.(type) {
	case string:
		w.WriteString(f.sanitizer.Sanitize(val))
	case []byte:
		w.WriteString(f.sanitizer.Sanitize(string(val)))
	case int:
		w.Write(strconv.AppendInt(num[:0], int64(val), 10))
	case int32:
		w.Write(strconv.AppendInt(num[:0], int64(val), 10))
	case int64:
		w.Write(strconv.AppendInt(num[:0], val, 10))
	case uint:
		w.Write(strconv.AppendUint(num[:0], uint64(val), 10))
	case uint32:
		w.Write(strconv.AppendUint(num[:0], uint64(val), 10))
	case uint64:
		w.Write(strconv.AppendUint(num[:0], val, 10))
	case float32:
		w.Write(strconv.AppendFloat(num[:0], float64(val), 'f', -1, 32))
	case float64:
		w.Write(strconv.AppendFloat(num[:0], val, 'f', -1, 64))
	case bool:
		w.Write(strconv.AppendBool(num[:0], val))
	case nil:
		w.WriteString("nil")
	case time.Time:
		w.WriteString(val.Format(f.timestampFormat))
	case error:
		w.WriteString(f.sanitizer.Sanitize(val.Error()))
	case fmt.Stringer:
		w.WriteString(f.sanitizer.Sanitize(val.String()))
	default:
		var b bytes.Buffer
		f.dumper.Fdump(&b, val)
		w.Write(bytes.TrimSpace(b.Bytes()))
	}
}

// Truncate returns the longest prefix of s within max bytes that does not
// split a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// fixedWriter copies into a fixed buffer and silently discards the overflow.
// Write always reports success so fmt keeps going.
type fixedWriter struct {
	buf       []byte
	n         int
	truncated bool
}

func (w *fixedWriter) Write(p []byte) (int, error) {
	if w.truncated {
		return len(p), nil
	}
	room := len(w.buf) - w.n
	if len(p) <= room {
		w.n += copy(w.buf[w.n:], p)
		return len(p), nil
	}
	// Back off to a rune start so the kept prefix stays valid UTF-8
	cut := room
	for cut > 0 && cut < len(p) && !utf8.RuneStart(p[cut]) {
		cut--
	}
	w.n += copy(w.buf[w.n:], p[:cut])
	w.truncated = true
	return len(p), nil
}

func (w *fixedWriter) WriteString(s string) (int, error) {
	if w.truncated {
		return len(s), nil
	}
	room := len(w.buf) - w.n
	if len(s) <= room {
		w.n += copy(w.buf[w.n:], s)
		return len(s), nil
	}
	cut := room
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	w.n += copy(w.buf[w.n:], s[:cut])
	w.truncated = true
	return len(s), nil
}

func (w *fixedWriter) WriteByte(c byte) error {
	if w.truncated || w.n >= len(w.buf) {
		w.truncated = true
		return nil
	}
	w.buf[w.n] = c
	w.n++
	return nil
}
