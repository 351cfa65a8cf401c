package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// SummaryReport represents a complete summary report
type SummaryReport struct {
	GeneratedAt time.Time

	// Session statistics
	SessionsByStatus map[store.SessionStatus]int
	RecentSessions   []SessionSummary

	// Photo statistics
	PhotosTotal    int
	PhotosByLayout map[layout.Layout]int
	DiskBytes      int64

	// Library
	Templates     int
	Groups        int
	PendingPrints int

	// Analytics
	EventCounts  []EventCount
	RecentEvents []*store.AnalyticsEvent

	// Metadata
	DatabasePath string
	EventLogPath string
	SaveDir      string
}

// SessionSummary is one row of the session table
type SessionSummary struct {
	Name       string
	Status     store.SessionStatus
	PhotoCount int
	StartedAt  time.Time
	Duration   time.Duration
}

// EventCount represents an analytics event type with its count
type EventCount struct {
	Event string
	Count int
}

// GenerateSummaryReport creates a summary report from the database
func GenerateSummaryReport(ctx context.Context, db *store.Store, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
		DatabasePath: db.Path(),
	}

	byStatus, err := db.CountSessionsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	report.SessionsByStatus = byStatus

	sessions, err := db.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	report.RecentSessions = summarizeSessions(sessions, report.GeneratedAt, 10)

	stats, err := db.GetPhotoStats(ctx)
	if err != nil {
		return nil, err
	}
	report.PhotosTotal = stats.Total
	report.PhotosByLayout = stats.ByLayout
	report.DiskBytes = stats.TotalBytes

	if report.Templates, err = db.CountTemplates(ctx); err != nil {
		return nil, err
	}
	groups, err := db.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	report.Groups = len(groups)

	pending, err := db.ListPrintJobs(ctx, "pending")
	if err != nil {
		return nil, err
	}
	report.PendingPrints = len(pending)

	counts, err := db.CountAnalyticsByType(ctx)
	if err != nil {
		return nil, err
	}
	report.EventCounts = sortEventCounts(counts)

	if report.RecentEvents, err = db.ListAnalyticsEvents(ctx, 20); err != nil {
		return nil, err
	}

	if st, err := db.GetSettings(ctx); err == nil && st != nil {
		report.SaveDir = st.SaveDirectory
	}

	return report, nil
}

// summarizeSessions keeps the newest limit sessions. Open sessions are
// measured up to now.
func summarizeSessions(sessions []*store.Session, now time.Time, limit int) []SessionSummary {
	out := make([]SessionSummary, 0, limit)
	for _, sess := range sessions {
		if len(out) == limit {
			break
		}
		end := now
		if sess.EndedAt != nil {
			end = *sess.EndedAt
		}
		out = append(out, SessionSummary{
			Name:       sess.Name,
			Status:     sess.Status,
			PhotoCount: sess.PhotoCount,
			StartedAt:  sess.StartedAt,
			Duration:   end.Sub(sess.StartedAt),
		})
	}
	return out
}

func sortEventCounts(counts map[string]int) []EventCount {
	out := make([]EventCount, 0, len(counts))
	for e, n := range counts {
		out = append(out, EventCount{Event: e, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Event < out[j].Event
	})
	return out
}

// RenderMarkdown formats the summary report as Markdown
func RenderMarkdown(report *SummaryReport) string {
	var md strings.Builder

	md.WriteString("# PhotoBooth - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.SaveDir != "" {
		md.WriteString(fmt.Sprintf("**Save Directory:** `%s`\n\n", report.SaveDir))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	// Overview
	md.WriteString("## 📊 Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Photos | %d |\n", report.PhotosTotal))
	md.WriteString(fmt.Sprintf("| Disk Usage | %s |\n", util.FormatBytes(report.DiskBytes)))
	md.WriteString(fmt.Sprintf("| Templates | %d |\n", report.Templates))
	md.WriteString(fmt.Sprintf("| Groups | %d |\n", report.Groups))
	if report.PendingPrints > 0 {
		md.WriteString(fmt.Sprintf("| Pending Prints | %d |\n", report.PendingPrints))
	}
	md.WriteString("\n")

	// Layouts
	if report.PhotosTotal > 0 {
		md.WriteString("## 🖼️ Photos by Layout\n\n")
		md.WriteString("| Layout | Photos |\n")
		md.WriteString("|--------|--------|\n")
		for _, l := range []layout.Layout{layout.Single, layout.Strip3, layout.Strip4, layout.Template} {
			if n := report.PhotosByLayout[l]; n > 0 {
				md.WriteString(fmt.Sprintf("| %s | %d |\n", l, n))
			}
		}
		md.WriteString("\n")
	}

	// Sessions
	if len(report.RecentSessions) > 0 {
		md.WriteString("## 🎉 Sessions\n\n")
		md.WriteString(fmt.Sprintf("Active: %d · Completed: %d · Cancelled: %d\n\n",
			report.SessionsByStatus[store.SessionActive],
			report.SessionsByStatus[store.SessionCompleted],
			report.SessionsByStatus[store.SessionCancelled]))
		md.WriteString("| Session | Status | Photos | Started | Duration |\n")
		md.WriteString("|---------|--------|--------|---------|----------|\n")
		for _, s := range report.RecentSessions {
			md.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s |\n",
				escapeCell(truncatePath(s.Name, 40)), s.Status, s.PhotoCount,
				s.StartedAt.Local().Format("2006-01-02 15:04"), s.Duration.Round(time.Second)))
		}
		md.WriteString("\n")
	}

	// Analytics
	if len(report.EventCounts) > 0 {
		md.WriteString("## 📈 Activity\n\n")
		md.WriteString("| Event | Count |\n")
		md.WriteString("|-------|-------|\n")
		for _, e := range report.EventCounts {
			md.WriteString(fmt.Sprintf("| %s | %d |\n", e.Event, e.Count))
		}
		md.WriteString("\n")
	}

	if len(report.RecentEvents) > 0 {
		md.WriteString("### Recent Events\n\n")
		for _, e := range report.RecentEvents {
			md.WriteString(fmt.Sprintf("- %s `%s`\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.EventType))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by booth*\n")
	return md.String()
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(outputPath, []byte(RenderMarkdown(report)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// truncatePath truncates a string to a maximum length
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Truncate from the middle, keeping start and end
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
