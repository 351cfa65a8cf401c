package util

import (
	"fmt"
	"path/filepath"
	"strings"
	"syscall"
)

// NetworkInfo describes the filesystem under a path
type NetworkInfo struct {
	IsNetwork bool
	Protocol  string // smb, nfs, cifs, ... or empty when local
	MountPath string
}

// networkFSNames are substrings of mount types that go over the wire
var networkFSNames = []string{"nfs", "cifs", "smb", "afpfs", "webdav", "ncpfs", "fuse.sshfs", "fuse.rclone"}

// DetectNetworkFilesystem reports whether path lives on a network share
func DetectNetworkFilesystem(path string) (*NetworkInfo, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(absPath, &stat); err != nil {
		return nil, fmt.Errorf("failed to stat filesystem: %w", err)
	}
	return detectPlatformNetwork(absPath, &stat)
}

// IsNetworkPath is DetectNetworkFilesystem without the details
func IsNetworkPath(path string) bool {
	info, err := DetectNetworkFilesystem(path)
	if err != nil {
		return false
	}
	return info.IsNetwork
}

func isNetworkFSName(fsType string) bool {
	fsType = strings.ToLower(fsType)
	for _, n := range networkFSNames {
		if strings.Contains(fsType, n) {
			return true
		}
	}
	return false
}
