package rtlog

import (
	"time"
)

// Severity orders log levels from most to least important. A message is
// emitted when its severity is not SeverityNone and does not exceed the
// effective level.
type Severity uint8

const (
	SeverityNone Severity = iota
	SeverityError
	SeverityWarn
	SeverityInfo
	SeverityDebug
	SeverityVerbose
)

// Tag table
const (
	// MaxTags is the capacity of the per-tag level table
	MaxTags = 32
	// MaxTagLength bounds stored tags; longer tags are cut to MaxTagLength-1 bytes
	MaxTagLength = 32
)

// Notifier limits
const (
	MaxSubscribers      = 4
	maxNotifyTagLen     = MaxTagLength - 1
	maxNotifyMessageLen = 199
	stopPollInterval    = 10 * time.Millisecond
	stopPollAttempts    = 50
)

// Inline writes
const (
	inlineTag = "INL"
	// heartbeatTag marks the logger's own status records
	heartbeatTag = "rtlog"
)
