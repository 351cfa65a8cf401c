package util

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DataDir returns the directory holding the database, default photos and
// event logs. The "data-dir" setting overrides the platform user-config path.
func DataDir() string {
	if dir := viper.GetString("data-dir"); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = "."
	}
	return filepath.Join(base, "photobooth")
}

// DatabasePath returns the configured database file, defaulting into DataDir
func DatabasePath() string {
	if p := viper.GetString("db"); p != "" {
		return p
	}
	return filepath.Join(DataDir(), "photobooth.db")
}
