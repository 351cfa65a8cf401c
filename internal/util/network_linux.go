//go:build linux

package util

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Kernel VFS magic numbers of network filesystems
var networkMagic = map[uint32]string{
	0x6969:     "nfs",
	0xff534d42: "cifs",
	0x517b:     "smb",
	0x01021994: "smbfs",
	0x564c:     "ncp",
	0xfe534d42: "smb2",
}

func detectPlatformNetwork(path string, stat *syscall.Statfs_t) (*NetworkInfo, error) {
	info := &NetworkInfo{}
	if proto, ok := networkMagic[uint32(stat.Type)]; ok {
		info.IsNetwork = true
		info.Protocol = proto
	}

	f, err := os.Open("/proc/mounts")
	if err != nil {
		// The magic number alone decides
		return info, nil
	}
	defer f.Close()

	mounts, err := parseMounts(f)
	if err != nil {
		return info, nil
	}
	if mount, fsType, ok := mountFor(path, mounts); ok {
		info.MountPath = mount
		if isNetworkFSName(fsType) {
			info.IsNetwork = true
			info.Protocol = strings.ToLower(fsType)
		}
	}
	return info, nil
}

// parseMounts reads /proc/mounts lines into mount point -> fs type
func parseMounts(r io.Reader) (map[string]string, error) {
	mounts := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		// device mountpoint fstype options dump pass
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts[fields[1]] = fields[2]
	}
	return mounts, scanner.Err()
}

// mountFor returns the deepest mount point containing path
func mountFor(path string, mounts map[string]string) (string, string, bool) {
	best, bestType := "", ""
	for mount, fsType := range mounts {
		if !withinMount(path, mount) || len(mount) <= len(best) {
			continue
		}
		best, bestType = mount, fsType
	}
	return best, bestType, best != ""
}

func withinMount(path, mount string) bool {
	if mount == "/" || path == mount {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(mount, string(filepath.Separator))+string(filepath.Separator))
}
