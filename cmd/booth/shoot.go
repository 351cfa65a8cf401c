package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/franz/photobooth/internal/booth"
	"github.com/franz/photobooth/internal/capture"
	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var shootCmd = &cobra.Command{
	Use:   "shoot",
	Short: "Run a capture sequence and keep the result",
	Long: `Start the camera, count down and capture one or more shots, then compose
them into a single photo or a strip.

After the run you are asked whether to keep the photo. Kept photos are saved
into the active session (one is started when none is active) and queued for
printing when auto-print is on. Press Ctrl+C during the countdown to abort;
nothing is saved for an aborted run.`,
	RunE: runShoot,
}

func init() {
	rootCmd.AddCommand(shootCmd)

	shootCmd.Flags().StringP("layout", "l", string(layout.Single), "layout: single, strip-3 or strip-4")
	shootCmd.Flags().StringP("template", "t", "", "template id to apply when keeping")
	shootCmd.Flags().String("guest", "", "value for {{guestName}} in template text")
	shootCmd.Flags().String("event-date", "", "value for {{eventDate}} in template text")
	shootCmd.Flags().String("text", "", "value for {{customText}} in template text")
	shootCmd.Flags().BoolP("yes", "y", false, "keep without asking")
	shootCmd.Flags().Int("runs", 1, "number of capture runs")
	shootCmd.Flags().Duration("ready-timeout", 10*time.Second, "how long to wait for the first camera frame")
}

func runShoot(cmd *cobra.Command, args []string) error {
	layoutName, _ := cmd.Flags().GetString("layout")
	l, err := layout.ParseCapturable(layoutName)
	if err != nil {
		return err
	}
	templateID, _ := cmd.Flags().GetString("template")
	guest, _ := cmd.Flags().GetString("guest")
	eventDate, _ := cmd.Flags().GetString("event-date")
	custom, _ := cmd.Flags().GetString("text")
	yes, _ := cmd.Flags().GetBool("yes")
	runs, _ := cmd.Flags().GetInt("runs")
	readyTimeout, _ := cmd.Flags().GetDuration("ready-timeout")

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := a.newBooth()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if _, err := b.StartCamera(ctx); err != nil {
		return fmt.Errorf("failed to start camera: %w", err)
	}
	defer b.StopCamera()

	util.InfoLog("Waiting for camera...")
	if err := b.WaitReady(ctx, readyTimeout); err != nil {
		return fmt.Errorf("camera not ready: %w", err)
	}

	opts := booth.KeepOptions{
		TemplateID: templateID,
		Overrides:  compose.Overrides{GuestName: guest, EventDate: eventDate, CustomText: custom},
	}
	interactive := !yes && util.IsTerminal(os.Stdin.Fd())
	in := bufio.NewReader(os.Stdin)

	for run := 1; run <= runs; run++ {
		if runs > 1 {
			util.InfoLog("=== Run %d/%d ===", run, runs)
		}
		pending, err := b.Capture(ctx, l, printCaptureEvent)
		if err != nil {
			return err
		}

		if interactive && !confirm(in, "Keep this photo? [Y/n] ") {
			b.Discard(pending)
			util.WarnLog("Discarded")
			continue
		}

		saved, err := b.Keep(ctx, pending, opts)
		if err != nil {
			return fmt.Errorf("failed to keep photo: %w", err)
		}
		util.SuccessLog("Saved %s (%dx%d, %s)", saved.Filepath, saved.Width, saved.Height, util.FormatBytes(saved.FileSize))
	}
	return nil
}

func printCaptureEvent(e capture.Event) {
	switch e.Kind {
	case capture.EventTick:
		util.InfoLog("  %d...", e.Remaining)
	case capture.EventFlash:
		util.DebugLog("  flash")
	case capture.EventShutterSound:
		if util.IsTerminal(os.Stderr.Fd()) {
			fmt.Fprint(os.Stderr, "\a")
		}
	case capture.EventCaptured:
		util.InfoLog("📸 Shot %d/%d", e.Shot, e.Shots)
	}
}

// confirm reads a yes/no answer; an empty answer means yes
func confirm(in *bufio.Reader, prompt string) bool {
	answer, ok := readAnswer(in, prompt)
	return ok && (answer == "" || answer == "y" || answer == "yes")
}

// confirmNo reads a yes/no answer from stdin; an empty answer means no
func confirmNo(prompt string) bool {
	answer, ok := readAnswer(bufio.NewReader(os.Stdin), prompt)
	return ok && (answer == "y" || answer == "yes")
}

func readAnswer(in *bufio.Reader, prompt string) (string, bool) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(line)), true
}
