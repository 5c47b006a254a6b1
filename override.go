package rtlog

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ApplyConfigString applies "key=value" overrides on top of the current
// configuration. Keys are the toml names. Nothing is applied unless every
// override parses, and concurrent calls never lose each other's changes.
//
// Example:
//
//	err := logger.ApplyConfigString(
//	    "level=debug",
//	    "max_logs_per_second=0",
//	    "tag_levels=Net=warn,Ota=verbose",
//	)
func (l *Logger) ApplyConfigString(overrides ...string) error {
	l.initMu.Lock()
	defer l.initMu.Unlock()

	current := l.getConfig()
	next := current.Clone()
	if err := overrideConfig(next, overrides); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return fmtErrorf("invalid configuration: %w", err)
	}
	return l.reconfigure(current, next)
}

func overrideConfig(cfg *Config, overrides []string) error {
	var errs []error
	for _, override := range overrides {
		key, value, err := parseKeyValue(override)
		if err == nil {
			err = applyConfigField(cfg, key, value)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return combineConfigErrors(errs)
}

// combineConfigErrors folds a list of errors into one numbered error.
func combineConfigErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}

	var sb strings.Builder
	sb.WriteString("rtlog: multiple configuration errors:")
	for i, err := range errs {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, strings.TrimPrefix(err.Error(), "rtlog: "))
	}
	return fmt.Errorf("%s", sb.String())
}

var (
	configFieldsOnce sync.Once
	configFields     map[string]int // toml key to field index
)

func configFieldIndex(key string) (int, bool) {
	configFieldsOnce.Do(func() {
		t := reflect.TypeOf(Config{})
		configFields = make(map[string]int, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if name := t.Field(i).Tag.Get("toml"); name != "" {
				configFields[name] = i
			}
		}
	})
	i, ok := configFields[key]
	return i, ok
}

// applyConfigField sets the field tagged key. Values with their own grammar
// are checked here so the error names the offending override.
func applyConfigField(cfg *Config, key, value string) error {
	idx, ok := configFieldIndex(key)
	if !ok {
		return fmtErrorf("unknown configuration key '%s'", key)
	}

	switch key {
	case "level":
		if _, err := ParseSeverity(value); err != nil {
			return fmtErrorf("invalid level value '%s': %w", value, err)
		}
	case "tag_levels":
		if _, err := parseTagLevels(value); err != nil {
			return fmtErrorf("invalid tag_levels '%s': %w", value, err)
		}
	}

	field := reflect.ValueOf(cfg).Elem().Field(idx)
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmtErrorf("invalid integer value for %s '%s': %w", key, value, err)
		}
		field.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmtErrorf("invalid boolean value for %s '%s': %w", key, value, err)
		}
		field.SetBool(b)
	default:
		return fmtErrorf("unsupported field type for %s: %v", key, field.Kind())
	}
	return nil
}
