//go:build darwin

package util

import (
	"strings"
	"syscall"
)

func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	info := &NetworkInfo{}
	fsType := strings.ToLower(cString(stat.Fstypename[:]))
	if isNetworkFSName(fsType) || strings.Contains(fsType, "osxfuse") {
		info.IsNetwork = true
		info.Protocol = fsType
		info.MountPath = cString(stat.Mntonname[:])
	}
	return info, nil
}

// cString converts a NUL-terminated statfs field
func cString(arr []int8) string {
	b := make([]byte, 0, len(arr))
	for _, c := range arr {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
