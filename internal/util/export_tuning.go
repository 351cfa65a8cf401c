package util

import (
	"os"
	"path/filepath"
)

// ExportTuning holds copy settings for one export destination
type ExportTuning struct {
	Workers int
	Retries int
	Network *NetworkInfo // nil on local storage
}

// TuneExport adapts export concurrency and retries to the destination.
// Network shares get at most 2 parallel copies and at least 3 attempts per
// file. A destination that does not exist yet is judged by its nearest
// existing parent.
func TuneExport(dest string, workers, retries int) *ExportTuning {
	t := &ExportTuning{Workers: workers, Retries: retries}

	info, err := DetectNetworkFilesystem(existingParent(dest))
	if err != nil {
		DebugLog("Failed to detect filesystem for %s: %v", dest, err)
		return t
	}
	if !info.IsNetwork {
		return t
	}

	t.Network = info
	if t.Workers <= 0 || t.Workers > 2 {
		t.Workers = 2
	}
	if t.Retries < 3 {
		t.Retries = 3
	}
	return t
}

func existingParent(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
