//go:build linux

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// pinThread restricts the calling thread's affinity mask to a single core.
func pinThread(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return fmt.Errorf("platform: failed to pin thread to core %d: %w", core, err)
	}
	return nil
}

// currentCore returns the single core in the calling thread's affinity mask.
func currentCore() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return -1
	}
	if set.Count() != 1 {
		return -1
	}
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			return i
		}
	}
	return -1
}
