// Package sanitizer rewrites log text so it is safe to put on a raw console
// line. Rules combine a bitwise rune filter with a transform and are applied in
// order, first match wins. A built Sanitizer is immutable and safe for
// concurrent use.
package sanitizer

import (
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Filter flags for character matching
const (
	FilterNonPrintable uint64 = 1 << iota // Matches runes not classified as printable by strconv.IsPrint
	FilterControl                         // Matches control characters (unicode.IsControl)
	FilterLineBreak                       // Matches '\r' and '\n', which would split one log line into two
	FilterEscape                          // Matches ESC (0x1b), the start of terminal control sequences
)

// Transform flags for character transformation
const (
	TransformStrip     uint64 = 1 << iota // Removes the character
	TransformHexEncode                    // Encodes the character's UTF-8 bytes as "<XXYY>"
	TransformSpace                        // Replaces the character with a single space
)

// PolicyPreset defines pre-configured sanitization policies
type PolicyPreset string

const (
	PolicyRaw      PolicyPreset = "raw"      // Passthrough
	PolicyTxt      PolicyPreset = "txt"      // Hex-encode everything non-printable
	PolicyTerminal PolicyPreset = "terminal" // Flatten line breaks, strip escapes and other controls
)

type rule struct {
	filter    uint64
	transform uint64
}

var policyRules = map[PolicyPreset][]rule{
	PolicyRaw: {},
	PolicyTxt: {{filter: FilterNonPrintable, transform: TransformHexEncode}},
	PolicyTerminal: {
		{filter: FilterLineBreak, transform: TransformSpace},
		{filter: FilterEscape | FilterControl, transform: TransformStrip},
	},
}

// filterOrder fixes the evaluation order of filter flags.
var filterOrder = []uint64{FilterNonPrintable, FilterControl, FilterLineBreak, FilterEscape}

var filterCheckers = map[uint64]func(rune) bool{
	FilterNonPrintable: func(r rune) bool { return !strconv.IsPrint(r) },
	FilterControl:      unicode.IsControl,
	FilterLineBreak:    func(r rune) bool { return r == '\r' || r == '\n' },
	FilterEscape:       func(r rune) bool { return r == 0x1b },
}

// Sanitizer provides chainable text sanitization
type Sanitizer struct {
	rules []rule
}

// New creates a passthrough Sanitizer
func New() *Sanitizer {
	return &Sanitizer{}
}

// Rule appends a custom rule. Call only while building.
func (s *Sanitizer) Rule(filter uint64, transform uint64) *Sanitizer {
	s.rules = append(s.rules, rule{filter: filter, transform: transform})
	return s
}

// Policy appends the rules of a preset. Unknown presets are ignored.
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	if rules, ok := policyRules[preset]; ok {
		s.rules = append(s.rules, rules...)
	}
	return s
}

// Clean reports whether data passes through unchanged.
func (s *Sanitizer) Clean(data []byte) bool {
	if s == nil || len(s.rules) == 0 {
		return true
	}
	for i := 0; i < len(data); {
		r, size := decode(data[i:])
		if s.match(r) != nil {
			return false
		}
		i += size
	}
	return true
}

// Sanitize applies all rules to data
func (s *Sanitizer) Sanitize(data string) string {
	if s.Clean([]byte(data)) {
		return data
	}
	return string(s.Append(make([]byte, 0, len(data)+8), []byte(data)))
}

// Append appends the sanitized form of data to dst.
func (s *Sanitizer) Append(dst []byte, data []byte) []byte {
	if s == nil || len(s.rules) == 0 {
		return append(dst, data...)
	}
	for i := 0; i < len(data); {
		r, size := decode(data[i:])
		if rl := s.match(r); rl != nil {
			dst = applyTransform(dst, data[i:i+size], rl.transform)
		} else {
			dst = append(dst, data[i:i+size]...)
		}
		i += size
	}
	return dst
}

// decode returns -1 for an invalid byte so it is never treated as printable.
func decode(p []byte) (rune, int) {
	r, size := utf8.DecodeRune(p)
	if r == utf8.RuneError && size <= 1 {
		return -1, 1
	}
	return r, size
}

func (s *Sanitizer) match(r rune) *rule {
	for i := range s.rules {
		if matchesFilter(r, s.rules[i].filter) {
			return &s.rules[i]
		}
	}
	return nil
}

func matchesFilter(r rune, filterMask uint64) bool {
	for _, flag := range filterOrder {
		if filterMask&flag != 0 && filterCheckers[flag](r) {
			return true
		}
	}
	return false
}

const hexDigits = "0123456789abcdef"

// applyTransform works on the raw bytes so invalid UTF-8 is encoded as found.
func applyTransform(dst []byte, raw []byte, transformMask uint64) []byte {
	switch {
	case transformMask&TransformStrip != 0:
	case transformMask&TransformHexEncode != 0:
		dst = append(dst, '<')
		for _, b := range raw {
			dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0f])
		}
		dst = append(dst, '>')
	case transformMask&TransformSpace != 0:
		dst = append(dst, ' ')
	default:
		dst = append(dst, raw...)
	}
	return dst
}
