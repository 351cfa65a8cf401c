package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change the booth settings",
	Long: `The booth settings live in the library database and apply to every
device that opens it. Process options such as the frame driver are read from
booth.yaml and BOOTH_* environment variables instead.`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current settings",
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key=value>...",
	Short: "Change one or more settings",
	Long: `Change settings. Keys:

  camera-device  preferred device id (empty = first non-excluded device)
  resolution     WIDTHxHEIGHT, e.g. 1920x1080
  countdown      seconds before each shot (0 = immediate)
  flash          true/false
  sound          true/false
  save-dir       directory for new photos
  format         jpg or png
  quality        JPEG quality 1-100
  printer        printer id for auto-print
  auto-print     true/false`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSettingsSet,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default capture and output settings",
	RunE:  runSettingsReset,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsResetCmd)
}

// settingSetters maps a command-line key onto its patch field
var settingSetters = map[string]func(p *store.SettingsPatch, v string) error{
	"camera-device": func(p *store.SettingsPatch, v string) error { p.CameraDeviceID = &v; return nil },
	"resolution":    func(p *store.SettingsPatch, v string) error { p.Resolution = &v; return nil },
	"save-dir":      func(p *store.SettingsPatch, v string) error { p.SaveDirectory = &v; return nil },
	"format":        func(p *store.SettingsPatch, v string) error { p.PhotoFormat = &v; return nil },
	"printer":       func(p *store.SettingsPatch, v string) error { p.PrinterID = &v; return nil },
	"countdown":     intSetter(func(p *store.SettingsPatch, n *int) { p.CountdownDuration = n }),
	"quality":       intSetter(func(p *store.SettingsPatch, n *int) { p.PhotoQuality = n }),
	"flash":         boolSetter(func(p *store.SettingsPatch, b *bool) { p.EnableFlash = b }),
	"sound":         boolSetter(func(p *store.SettingsPatch, b *bool) { p.EnableSound = b }),
	"auto-print":    boolSetter(func(p *store.SettingsPatch, b *bool) { p.AutoPrint = b }),
}

func intSetter(assign func(*store.SettingsPatch, *int)) func(*store.SettingsPatch, string) error {
	return func(p *store.SettingsPatch, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%q is not a number: %w", v, util.ErrInvalidInput)
		}
		assign(p, &n)
		return nil
	}
}

func boolSetter(assign func(*store.SettingsPatch, *bool)) func(*store.SettingsPatch, string) error {
	return func(p *store.SettingsPatch, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%q is not true or false: %w", v, util.ErrInvalidInput)
		}
		assign(p, &b)
		return nil
	}
}

// parseSettingsPatch turns key=value pairs into a patch
func parseSettingsPatch(pairs []string) (store.SettingsPatch, error) {
	var p store.SettingsPatch
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return p, fmt.Errorf("expected key=value, got %q: %w", pair, util.ErrInvalidInput)
		}
		set, ok := settingSetters[strings.TrimSpace(key)]
		if !ok {
			return p, fmt.Errorf("unknown setting %q (known: %s): %w", key, strings.Join(settingKeys(), ", "), util.ErrInvalidInput)
		}
		if err := set(&p, strings.TrimSpace(value)); err != nil {
			return p, fmt.Errorf("%s: %w", key, err)
		}
	}
	return p, nil
}

func settingKeys() []string {
	keys := make([]string, 0, len(settingSetters))
	for k := range settingSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printSettings(st *store.Settings, saveDir string) {
	device := st.CameraDeviceID
	if device == "" {
		device = "(auto)"
	}
	if st.SaveDirectory != "" {
		saveDir = st.SaveDirectory
	}
	fmt.Println(renderTable([]string{"Setting", "Value"}, [][]string{
		{"camera-device", device},
		{"resolution", st.Resolution},
		{"countdown", strconv.Itoa(st.CountdownDuration)},
		{"flash", strconv.FormatBool(st.EnableFlash)},
		{"sound", strconv.FormatBool(st.EnableSound)},
		{"save-dir", saveDir},
		{"format", st.PhotoFormat},
		{"quality", strconv.Itoa(st.PhotoQuality)},
		{"printer", st.PrinterID},
		{"auto-print", strconv.FormatBool(st.AutoPrint)},
		{"updated", st.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
	}, nil))
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.settings.Get(context.Background())
	if err != nil {
		return err
	}
	printSettings(st, filepath.Join(util.DataDir(), "photos")+" (default)")
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	patch, err := parseSettingsPatch(args)
	if err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.settings.Update(context.Background(), patch)
	if err != nil {
		return err
	}
	util.SuccessLog("Settings updated")
	printSettings(st, "")
	return nil
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.settings.Reset(context.Background())
	if err != nil {
		return err
	}
	util.SuccessLog("Settings restored to defaults")
	printSettings(st, "")
	return nil
}
