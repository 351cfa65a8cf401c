package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/franz/photobooth/internal/session"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage booth sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Start a new session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsNew,
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "Mark a session completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return finishSession(args[0], false)
	},
}

var sessionsCancelCmd = &cobra.Command{
	Use:   "cancel <session-id>",
	Short: "Mark a session cancelled",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return finishSession(args[0], true)
	},
}

var sessionsStatsCmd = &cobra.Command{
	Use:   "stats <session-id>",
	Short: "Show photo count, duration and capture rate of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsStats,
}

var sessionsExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session's photos into a folder or zip archive",
	Long: `Copy the photos of a session into a new folder (or zip archive) named
session_<id>_<unix-millis> under the destination directory.

Use --originals and --processed to restrict the export to captured photos or
to template and filter outputs. Without either flag every photo is exported.
Photos whose files are missing are skipped and listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsExport,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session with all of its photos and files",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsNewCmd, sessionsEndCmd, sessionsCancelCmd,
		sessionsStatsCmd, sessionsExportCmd, sessionsDeleteCmd)

	sessionsExportCmd.Flags().StringP("dest", "d", "", "destination directory (required)")
	sessionsExportCmd.Flags().String("format", string(session.FormatFolder), "export format: folder or zip")
	sessionsExportCmd.Flags().Bool("originals", false, "export captured photos")
	sessionsExportCmd.Flags().Bool("processed", false, "export template and filter outputs")
	sessionsExportCmd.Flags().Int("workers", 0, "parallel copies (default from export.workers)")
	sessionsExportCmd.MarkFlagRequired("dest")

	sessionsDeleteCmd.Flags().Bool("force", false, "delete without asking")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := a.sessions.List(context.Background())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		util.WarnLog("No sessions yet.")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		ended := "-"
		if s.EndedAt != nil {
			ended = s.EndedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			s.ID,
			s.Name,
			string(s.Status),
			strconv.Itoa(s.PhotoCount),
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			ended,
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "Name", "Status", "Photos", "Started", "Ended"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	))
	return nil
}

func runSessionsNew(cmd *cobra.Command, args []string) error {
	var name string
	if len(args) > 0 {
		name = args[0]
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.sessions.Create(context.Background(), name)
	if err != nil {
		return err
	}
	a.events.LogSessionStarted(s)
	util.SuccessLog("Started %q (%s)", s.Name, s.ID)
	return nil
}

func finishSession(id string, cancel bool) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	var s *store.Session
	if cancel {
		s, err = a.sessions.Cancel(ctx, id)
	} else {
		s, err = a.sessions.End(ctx, id)
	}
	if err != nil {
		return err
	}
	util.SuccessLog("Session %q is now %s (%d photos)", s.Name, s.Status, s.PhotoCount)
	return nil
}

func runSessionsStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	s, err := a.sessions.Get(ctx, args[0])
	if err != nil {
		return err
	}
	stats, err := a.sessions.Stats(ctx, s.ID)
	if err != nil {
		return err
	}

	duration := time.Duration(stats.DurationSeconds * float64(time.Second)).Round(time.Second)
	fmt.Println(renderTable([]string{"Metric", "Value"}, [][]string{
		{"Session", s.Name},
		{"Status", string(s.Status)},
		{"Photos", strconv.Itoa(stats.PhotoCount)},
		{"Duration", duration.String()},
		{"Photos / minute", strconv.FormatFloat(stats.AvgPhotosPerMinute, 'f', 2, 64)},
	}, []columnAlignment{alignLeft, alignRight}))
	return nil
}

func runSessionsExport(cmd *cobra.Command, args []string) error {
	dest, _ := cmd.Flags().GetString("dest")
	formatName, _ := cmd.Flags().GetString("format")
	originals, _ := cmd.Flags().GetBool("originals")
	processed, _ := cmd.Flags().GetBool("processed")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = GetConfigInt("export.workers", 4)
	}

	format, err := session.ParseFormat(formatName)
	if err != nil {
		return err
	}

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

	util.InfoLog("=== Exporting Session ===")
	tuning := util.TuneExport(dest, workers, GetConfigInt("export.retries", 3))
	if tuning.Network != nil {
		util.InfoLog("Network destination (%s at %s): %d workers, %d attempts per file",
			tuning.Network.Protocol, tuning.Network.MountPath, tuning.Workers, tuning.Retries)
	}
	res, err := b.ExportSession(ctx, args[0], session.ExportOptions{
		Format:      format,
		Destination: dest,
		Originals:   originals,
		Processed:   processed,
		Workers:     tuning.Workers,
		Retries:     tuning.Retries,
		Progress:    true,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	util.SuccessLog("Exported %d photos (%s) to %s", res.Files, util.FormatBytes(res.Bytes), res.Path)
	for _, p := range res.Skipped {
		util.WarnLog("  Skipped missing file: %s", p)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	s, err := a.sessions.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if !force {
		if !util.IsTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("refusing to delete %q without --force: %w", s.Name, util.ErrInvalidInput)
		}
		prompt := fmt.Sprintf("Delete %q and its %d photos? [y/N] ", s.Name, s.PhotoCount)
		if !confirmNo(prompt) {
			util.InfoLog("Aborted")
			return nil
		}
	}

	n, err := a.sessions.DeleteWithFiles(ctx, s.ID)
	if err != nil {
		return err
	}
	util.SuccessLog("Deleted %q with %d photos", s.Name, n)
	return nil
}
