//go:build !linux && !darwin && !freebsd && !windows

package preflight

import "errors"

func freeDiskSpace(string) (uint64, error) {
	return 0, errors.New("disk space query not supported on this platform")
}
