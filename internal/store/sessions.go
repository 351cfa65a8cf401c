package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/franz/photobooth/internal/util"
)

// SessionStatus is the lifecycle state of a session
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session groups the photos taken during one booth-usage period
type Session struct {
	ID         string
	Name       string
	StartedAt  time.Time
	EndedAt    *time.Time
	PhotoCount int
	Status     SessionStatus
}

const sessionColumns = `id, COALESCE(name, ''), started_at, ended_at, COALESCE(photo_count, 0), COALESCE(status, 'active')`

func scanSession(row rowScanner) (*Session, error) {
	sess := &Session{}
	var startedAt, endedAt sql.NullString
	var status string
	if err := row.Scan(&sess.ID, &sess.Name, &startedAt, &endedAt, &sess.PhotoCount, &status); err != nil {
		return nil, err
	}
	sess.StartedAt = parseTime(startedAt.String)
	sess.EndedAt = nullTime(endedAt)
	sess.Status = SessionStatus(status)
	return sess, nil
}

// InsertSession inserts a new session record
func (s *Store) InsertSession(ctx context.Context, sess *Session) error {
	if sess.Status == "" {
		sess.Status = SessionActive
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, name, started_at, ended_at, photo_count, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, nullableString(sess.Name), formatTime(sess.StartedAt), nullableTime(sess.EndedAt),
		sess.PhotoCount, string(sess.Status))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id, or nil if it does not exist
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// GetLatestActiveSession returns the most recently started active session,
// or nil if none is active
func (s *Store) GetLatestActiveSession(ctx context.Context) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE status = ? ORDER BY started_at DESC LIMIT 1
	`, string(SessionActive))
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, newest first
func (s *Store) ListSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// FinishSession moves a session to a terminal status and stamps its end time
func (s *Store) FinishSession(ctx context.Context, id string, status SessionStatus, endedAt time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?
	`, string(status), formatTime(endedAt), id)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return requireAffected(result, "session", id)
}

// RecountSessionPhotos sets photo_count to the number of photo rows that
// reference the session and returns the new count
func (s *Store) RecountSessionPhotos(ctx context.Context, id string) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET photo_count = (SELECT COUNT(*) FROM photos WHERE session_id = ?)
		WHERE id = ?
	`, id, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update photo count: %w", err)
	}
	if err := requireAffected(result, "session", id); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT photo_count FROM sessions WHERE id = ?`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read photo count: %w", err)
	}
	return count, nil
}

// DeleteSessionWithPhotos removes a session and the photo rows it owns in one
// transaction. Files are the caller's concern.
func (s *Store) DeleteSessionWithPhotos(ctx context.Context, id string) error {
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete session photos: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return requireAffected(result, "session", id)
	})
}

// CountSessionsByStatus returns the number of sessions per status
func (s *Store) CountSessionsByStatus(ctx context.Context) (map[SessionStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[SessionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[SessionStatus(status)] = n
	}
	return counts, rows.Err()
}

// requireAffected turns a zero-row update or delete into ErrNotFound
func requireAffected(result sql.Result, entity string, id any) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", entity, id, util.ErrNotFound)
	}
	return nil
}
