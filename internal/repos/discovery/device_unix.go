//go:build unix

package discovery

import "golang.org/x/sys/unix"

func systemDeviceIdentifier(path string) (uint64, error) {
	var status unix.Stat_t
	if statError := unix.Stat(path, &status); statError != nil {
		return 0, statError
	}
	return uint64(status.Dev), nil
}
