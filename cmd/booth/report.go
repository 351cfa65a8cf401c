package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/franz/photobooth/internal/report"
	"github.com/franz/photobooth/internal/util"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a summary report from the library",
	Long: `Generate a summary report in Markdown format.

The report includes:
- Photo counts per layout and disk usage
- Recent sessions with their duration
- Templates, groups and pending print jobs
- Activity counts from the analytics events

The report is saved to <data-dir>/reports/<timestamp>/summary.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("out", "", "Output directory for report (default: <data-dir>/reports/<timestamp>)")
	reportCmd.Flags().String("event-log", "", "Path to event log file (optional)")
}

func runReport(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Generating Summary Report ===")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()
	util.InfoLog("Database: %s", a.store.Path())

	eventLogPath, _ := cmd.Flags().GetString("event-log")

	util.InfoLog("Analyzing data...")
	summaryReport, err := report.GenerateSummaryReport(context.Background(), a.store, eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join(util.DataDir(), "reports", timestamp)
	}
	outputPath := filepath.Join(outputDir, "summary.md")

	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summaryReport, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Summary:")
	util.InfoLog("  Photos: %d (%s)", summaryReport.PhotosTotal, util.FormatBytes(summaryReport.DiskBytes))
	util.InfoLog("  Sessions: %d", len(summaryReport.RecentSessions))
	if summaryReport.PendingPrints > 0 {
		util.WarnLog("  Pending prints: %d", summaryReport.PendingPrints)
	}
	return nil
}
