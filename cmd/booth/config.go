package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/franz/photobooth/internal/booth"
	"github.com/franz/photobooth/internal/camera"
	"github.com/franz/photobooth/internal/capture"
	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/group"
	"github.com/franz/photobooth/internal/photo"
	"github.com/franz/photobooth/internal/report"
	"github.com/franz/photobooth/internal/session"
	"github.com/franz/photobooth/internal/settings"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/templates"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_")

func setDefaults() {
	viper.SetDefault("camera.driver", "pattern")
	viper.SetDefault("camera.exclude", camera.DefaultExclude)
	viper.SetDefault("capture.inter-shot-delay", capture.DefaultInterShotDelay)
	viper.SetDefault("brand", compose.DefaultBrand)
	viper.SetDefault("events.level", string(report.LevelInfo))
	viper.SetDefault("export.workers", 4)
	viper.SetDefault("export.retries", 3)
}

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (BOOTH_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigDuration retrieves a duration config value. An explicit zero is
// kept; unset or negative values fall back to defaultValue.
func GetConfigDuration(key string, defaultValue time.Duration) time.Duration {
	if !viper.IsSet(key) {
		return defaultValue
	}
	val := viper.GetDuration(key)
	if val < 0 {
		return defaultValue
	}
	return val
}

// GetConfigStringSlice retrieves a string slice config value
func GetConfigStringSlice(key string) []string {
	return viper.GetStringSlice(key)
}

// app holds the opened library and the services built on it
type app struct {
	store      *store.Store
	settings   *settings.Service
	photos     *photo.Service
	sessions   *session.Service
	templates  *templates.Service
	groups     *group.Service
	compositor *compose.Compositor
	events     *report.EventLogger
}

// openApp opens the library. With withEvents set, events go to a JSONL file
// under <data-dir>/events and into the analytics table.
func openApp(withEvents bool) (*app, error) {
	dbPath := util.DatabasePath()
	util.DebugLog("Database: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	st := settings.New(db, filepath.Join(util.DataDir(), "photos"))
	photos := photo.New(db, st)
	compositor := compose.New(compose.Config{
		Templates: db,
		Brand:     GetConfigString("brand", compose.DefaultBrand),
	})

	a := &app{
		store:      db,
		settings:   st,
		photos:     photos,
		sessions:   session.New(db),
		templates:  templates.New(db, photos, compositor),
		groups:     group.New(db),
		compositor: compositor,
		events:     report.NullLogger(),
	}

	if withEvents {
		level, err := report.ParseLevel(viper.GetString("events.level"))
		if err != nil {
			db.Close()
			return nil, err
		}
		events, err := report.NewEventLogger(filepath.Join(util.DataDir(), "events"), level)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create event logger: %w", err)
		}
		events.SetSink(db)
		a.events = events
		util.DebugLog("Event log: %s", events.Path())
	}
	return a, nil
}

// Close releases the event log and the database
func (a *app) Close() error {
	a.events.Close()
	return a.store.Close()
}

// newBooth builds the capture pipeline over the configured frame driver
func (a *app) newBooth() (*booth.Booth, error) {
	driver, err := newDriver()
	if err != nil {
		return nil, err
	}
	interShot := GetConfigDuration("capture.inter-shot-delay", capture.DefaultInterShotDelay)
	return booth.New(booth.Config{
		Store:          a.store,
		Settings:       a.settings,
		Photos:         a.photos,
		Sessions:       a.sessions,
		Templates:      a.templates,
		Compositor:     a.compositor,
		Source:         camera.NewSource(driver),
		Events:         a.events,
		Exclude:        GetConfigStringSlice("camera.exclude"),
		InterShotDelay: &interShot,
	}), nil
}

// newDriver returns the frame driver named by camera.driver
func newDriver() (camera.Driver, error) {
	switch name := GetConfigString("camera.driver", "pattern"); name {
	case "pattern":
		return &camera.PatternDriver{}, nil
	case "hotfolder":
		root := viper.GetString("camera.hotfolder")
		if root == "" {
			return nil, fmt.Errorf("camera.hotfolder must be set for the hotfolder driver: %w", util.ErrInvalidInput)
		}
		return &camera.HotFolderDriver{Root: root}, nil
	default:
		return nil, fmt.Errorf("unknown camera driver %q: %w", name, util.ErrInvalidInput)
	}
}
