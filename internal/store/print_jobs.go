package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PrintJob is a queued print request. Nothing in the booth drains the queue
// yet; an external print agent consumes pending rows.
type PrintJob struct {
	ID           string
	PhotoID      string
	PrinterID    string
	Status       string
	Copies       int
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// InsertPrintJob queues a print job
func (s *Store) InsertPrintJob(ctx context.Context, j *PrintJob) error {
	if j.Status == "" {
		j.Status = "pending"
	}
	if j.Copies <= 0 {
		j.Copies = 1
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO print_jobs (id, photo_id, printer_id, status, copies, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, j.ID, j.PhotoID, nullableString(j.PrinterID), j.Status, j.Copies, formatTime(j.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert print job: %w", err)
	}
	return nil
}

// ListPrintJobs returns jobs with the given status, oldest first. An empty
// status lists every job.
func (s *Store) ListPrintJobs(ctx context.Context, status string) ([]*PrintJob, error) {
	query := `SELECT id, photo_id, COALESCE(printer_id, ''), status, copies,
	                 COALESCE(error_message, ''), created_at, completed_at
	          FROM print_jobs`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query print jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*PrintJob
	for rows.Next() {
		j := &PrintJob{}
		var createdAt, completedAt sql.NullString
		if err := rows.Scan(&j.ID, &j.PhotoID, &j.PrinterID, &j.Status, &j.Copies,
			&j.ErrorMessage, &createdAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan print job: %w", err)
		}
		j.CreatedAt = parseTime(createdAt.String)
		j.CompletedAt = nullTime(completedAt)
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
