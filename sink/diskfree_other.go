//go:build !unix

package sink

import "errors"

func diskFree(string) (int64, error) {
	return 0, errors.New("sink: disk free space not supported on this platform")
}
