package rtlog

import (
	"fmt"
	"strings"
)

var severityNames = [...]string{"NONE", "ERROR", "WARN", "INFO", "DEBUG", "VERBOSE"}

const severityLetters = "NEWIDV"

// String returns the upper-case severity name.
func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("SEVERITY(%d)", s)
}

// Letter returns the single-letter code used in the line envelope.
func (s Severity) Letter() byte {
	if int(s) < len(severityLetters) {
		return severityLetters[s]
	}
	return '?'
}

// ParseSeverity converts a level name or letter to a Severity.
func ParseSeverity(levelStr string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "none", "n", "off":
		return SeverityNone, nil
	case "error", "e":
		return SeverityError, nil
	case "warn", "warning", "w":
		return SeverityWarn, nil
	case "info", "i":
		return SeverityInfo, nil
	case "debug", "d":
		return SeverityDebug, nil
	case "verbose", "v":
		return SeverityVerbose, nil
	default:
		return SeverityNone, fmtErrorf("invalid level string: '%s' (use none, error, warn, info, debug, verbose)", levelStr)
	}
}

// parseTagLevels parses "TagA=warn,TagB=debug" into ordered pairs.
func parseTagLevels(spec string) ([]tagLevel, error) {
	var out []tagLevel
	if strings.TrimSpace(spec) == "" {
		return out, nil
	}
	for _, item := range strings.Split(spec, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		tag, levelStr, err := parseKeyValue(item)
		if err != nil {
			return nil, err
		}
		level, err := ParseSeverity(levelStr)
		if err != nil {
			return nil, fmtErrorf("tag '%s': %w", tag, err)
		}
		out = append(out, tagLevel{tag: tag, level: level})
	}
	if len(out) > MaxTags {
		return nil, fmtErrorf("too many tag levels: %d (max %d)", len(out), MaxTags)
	}
	return out, nil
}

// fmtErrorf wrapper
func fmtErrorf(format string, args ...any) error {
	if !strings.HasPrefix(format, "rtlog: ") {
		format = "rtlog: " + format
	}
	return fmt.Errorf(format, args...)
}

// combineErrors helper
func combineErrors(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	return fmt.Errorf("%v; %w", err1, err2)
}

// parseKeyValue splits a "key=value" string.
func parseKeyValue(arg string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(arg), "=", 2)
	if len(parts) != 2 {
		return "", "", fmtErrorf("invalid format in override string '%s', expected key=value", arg)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if key == "" {
		return "", "", fmtErrorf("key cannot be empty in override string '%s'", arg)
	}
	return key, value, nil
}
