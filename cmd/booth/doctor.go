package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/franz/photobooth/internal/camera"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure booth can operate correctly.

This command checks:
- SQLite version
- Database accessibility and integrity
- Photo files referenced by the library
- Save directory permissions and disk space
- Capture devices of the configured frame driver

Use this command to troubleshoot issues before an event.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Booth Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	// 1. SQLite
	results = append(results, checkSQLite())

	// 2. Database file and library contents
	dbPath := util.DatabasePath()
	results = append(results, checkDatabase(dbPath))

	if db, err := store.Open(dbPath); err == nil {
		results = append(results, checkPhotoFiles(db))

		saveDir := filepath.Join(util.DataDir(), "photos")
		if st, err := db.GetSettings(context.Background()); err == nil && st != nil && st.SaveDirectory != "" {
			saveDir = st.SaveDirectory
		}
		db.Close()

		// 3. Save directory
		results = append(results, checkSaveDirectory(saveDir))
		results = append(results, checkDiskSpace(saveDir, "save directory"))
	}

	// 4. Camera
	driver, err := newDriver()
	if err != nil {
		results = append(results, checkResult{name: "Camera", error: true, message: err.Error()})
	} else {
		results = append(results, checkCamera(driver, GetConfigStringSlice("camera.exclude")))
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before running the booth.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed! The booth is ready.")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is compiled in, there is no external library to find
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.CheckIntegrity(ctx); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	stats, err := db.GetPhotoStats(ctx)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot read photos: %v", err),
		}
	}

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, %d photos)", dbPath, util.FormatBytes(info.Size()), stats.Total),
	}
}

// checkPhotoFiles warns about photo records whose file is gone
func checkPhotoFiles(db *store.Store) checkResult {
	photos, err := db.ListPhotos(context.Background(), 0, 0)
	if err != nil {
		return checkResult{
			name:    "Photo files",
			error:   true,
			message: fmt.Sprintf("cannot list photos: %v", err),
		}
	}

	missing := 0
	for _, p := range photos {
		if !util.FileExists(p.Filepath) {
			missing++
		}
	}
	if missing > 0 {
		return checkResult{
			name:    "Photo files",
			warning: true,
			message: fmt.Sprintf("%d of %d photo files missing on disk", missing, len(photos)),
		}
	}
	return checkResult{
		name:    "Photo files",
		message: fmt.Sprintf("%d present", len(photos)),
	}
}

// checkSaveDirectory verifies the save directory is writable
func checkSaveDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(path, 0755); err != nil {
				return checkResult{
					name:    "Save directory",
					error:   true,
					message: fmt.Sprintf("cannot create %s: %v", path, err),
				}
			}
			return checkResult{
				name:    "Save directory",
				message: fmt.Sprintf("%s (created)", path),
			}
		}
		return checkResult{
			name:    "Save directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Save directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	// Check write permission by creating a temp file
	testFile := filepath.Join(path, ".booth_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Save directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Save directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))

	availGB := float64(availBytes) / (1024 * 1024 * 1024)
	usedPercent := float64(usedBytes) / float64(totalBytes) * 100

	// A night of strips at full resolution needs a few gigabytes
	warning := false
	warningMsg := ""
	if availGB < 2 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 95 {
		warning = true
		warningMsg = " (>95% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", util.FormatBytes(int64(availBytes)), warningMsg),
	}
}

// checkCamera lists the devices of driver and reports the one a capture
// would open
func checkCamera(driver camera.Driver, exclude []string) checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	devices, err := driver.Devices(ctx)
	if err != nil {
		return checkResult{
			name:    "Camera",
			error:   true,
			message: err.Error(),
		}
	}
	dev, err := camera.SelectDevice(devices, "", exclude)
	if err != nil {
		return checkResult{
			name:    "Camera",
			error:   true,
			message: err.Error(),
		}
	}
	if camera.IsExcluded(dev, exclude) {
		return checkResult{
			name:    "Camera",
			warning: true,
			message: fmt.Sprintf("only excluded devices found, would use %s", dev.Label),
		}
	}
	return checkResult{
		name:    "Camera",
		message: fmt.Sprintf("%s (%d device(s))", dev.Label, len(devices)),
	}
}
