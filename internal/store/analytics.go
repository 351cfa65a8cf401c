package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AnalyticsEvent is one row of the append-only analytics log
type AnalyticsEvent struct {
	ID        int64
	EventType string
	EventData string
	CreatedAt time.Time
}

// InsertAnalyticsEvent appends an event. data is stored verbatim.
func (s *Store) InsertAnalyticsEvent(ctx context.Context, eventType, data string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics_events (event_type, event_data, created_at) VALUES (?, ?, ?)
	`, eventType, nullableString(data), formatTime(at))
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

// ListAnalyticsEvents returns the most recent events first
func (s *Store) ListAnalyticsEvents(ctx context.Context, limit int) ([]*AnalyticsEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, COALESCE(event_data, ''), created_at
		FROM analytics_events ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics events: %w", err)
	}
	defer rows.Close()

	var events []*AnalyticsEvent
	for rows.Next() {
		e := &AnalyticsEvent{}
		var createdAt sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &e.EventData, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan analytics event: %w", err)
		}
		e.CreatedAt = parseTime(createdAt.String)
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountAnalyticsByType returns event counts keyed by event type
func (s *Store) CountAnalyticsByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event_type, COUNT(*) FROM analytics_events GROUP BY event_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count analytics events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}
