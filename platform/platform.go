// Package platform abstracts the execution environment the logging core runs on:
// scheduler state, interrupt context, core affinity, task identity and the
// memory-readability check used when accepting foreign format strings.
package platform

import (
	"errors"
	"runtime"
)

// ErrAffinityUnsupported is returned when the host cannot pin threads to cores.
var ErrAffinityUnsupported = errors.New("platform: core affinity not supported on this host")

// ErrInvalidCore is returned for a core id outside the host's range.
var ErrInvalidCore = errors.New("platform: invalid core id")

// Platform is the capability set the core consumes from its environment.
// Implementations must be safe for concurrent use.
type Platform interface {
	// SchedulerRunning reports whether concurrent tasks may exist.
	// While false, the core runs single-threaded and skips its locks.
	SchedulerRunning() bool

	// InInterrupt reports whether the caller runs in interrupt-like context,
	// where queue operations are not allowed.
	InInterrupt() bool

	// PinToCore binds the calling goroutine's OS thread to core.
	// The caller must hold runtime.LockOSThread for the binding to be meaningful.
	PinToCore(core int) error

	// CurrentCore returns the core the caller is bound to, or -1 if unbound.
	CurrentCore() int

	// TaskName returns the name of the calling task.
	TaskName() string

	// Readable reports whether n bytes at addr may be safely read.
	Readable(addr uintptr, n int) bool
}

// Host is the Platform for a hosted Go process.
type Host struct{}

// Default returns the host platform.
func Default() Platform {
	return Host{}
}

// SchedulerRunning is always true once the Go runtime is up.
func (Host) SchedulerRunning() bool { return true }

// InInterrupt is always false: Go code never runs in interrupt context.
func (Host) InInterrupt() bool { return false }

// PinToCore pins the calling thread to core.
func (Host) PinToCore(core int) error {
	if core < 0 || core >= runtime.NumCPU() {
		return ErrInvalidCore
	}
	return pinThread(core)
}

// CurrentCore returns the core the calling thread is pinned to, or -1.
func (Host) CurrentCore() int {
	return currentCore()
}

// TaskName returns "?": goroutines carry no name.
func (Host) TaskName() string { return "?" }

// Readable rejects only the nil address. Hosted memory is managed by the runtime.
func (Host) Readable(addr uintptr, n int) bool {
	return addr != 0 && n >= 0
}
