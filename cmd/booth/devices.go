package main

import (
	"context"
	"fmt"

	"github.com/franz/photobooth/internal/camera"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the capture devices of the configured frame driver",
	Long: `List the devices offered by the camera.driver setting. The device a
capture would open is marked with *. Devices whose label matches one of the
camera.exclude patterns are only chosen when nothing else is available.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	driver, err := newDriver()
	if err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	st, err := a.settings.Get(ctx)
	if err != nil {
		return err
	}

	devices, err := driver.Devices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	exclude := GetConfigStringSlice("camera.exclude")
	selected, err := camera.SelectDevice(devices, st.CameraDeviceID, exclude)
	if err != nil {
		util.WarnLog("%v", err)
		return nil
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		mark := ""
		if d.ID == selected.ID {
			mark = "*"
		}
		note := ""
		if camera.IsExcluded(d, exclude) {
			note = "excluded"
		}
		rows = append(rows, []string{mark, d.ID, d.Label, note})
	}
	fmt.Println(renderTable([]string{"", "ID", "Label", "Note"}, rows, nil))
	if st.CameraDeviceID != "" && st.CameraDeviceID != selected.ID {
		util.WarnLog("Configured device %q is unavailable, using %s", st.CameraDeviceID, selected.Label)
	}
	return nil
}
