//go:build !linux

package platform

func pinThread(core int) error {
	return ErrAffinityUnsupported
}

func currentCore() int {
	return -1
}
