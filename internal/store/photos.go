package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/franz/photobooth/internal/layout"
)

// Photo is a stored image plus its thumbnail
type Photo struct {
	ID            string
	SessionID     string // empty when unowned
	Filename      string
	Filepath      string
	ThumbnailPath string
	Width         int
	Height        int
	FileSize      int64
	TakenAt       time.Time
	LayoutType    layout.Layout
	HasOverlay    bool
	HasFilter     bool
	Metadata      string // serialized JSON, empty when absent
}

const photoColumns = `p.id, COALESCE(p.session_id, ''), p.filename, p.filepath, COALESCE(p.thumbnail_path, ''),
	COALESCE(p.width, 0), COALESCE(p.height, 0), COALESCE(p.file_size, 0), p.taken_at,
	COALESCE(p.layout_type, 'single'), COALESCE(p.has_overlay, 0), COALESCE(p.has_filter, 0), COALESCE(p.metadata, '')`

func scanPhoto(row rowScanner) (*Photo, error) {
	p := &Photo{}
	var takenAt sql.NullString
	var lt string
	var overlay, filter int
	err := row.Scan(
		&p.ID, &p.SessionID, &p.Filename, &p.Filepath, &p.ThumbnailPath,
		&p.Width, &p.Height, &p.FileSize, &takenAt,
		&lt, &overlay, &filter, &p.Metadata,
	)
	if err != nil {
		return nil, err
	}
	p.TakenAt = parseTime(takenAt.String)
	p.LayoutType = layout.Layout(lt)
	p.HasOverlay = overlay != 0
	p.HasFilter = filter != 0
	return p, nil
}

// InsertPhoto inserts a photo record
func (s *Store) InsertPhoto(ctx context.Context, p *Photo) error {
	if p.TakenAt.IsZero() {
		p.TakenAt = time.Now().UTC()
	}
	if p.LayoutType == "" {
		p.LayoutType = layout.Single
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photos (id, session_id, filename, filepath, thumbnail_path, width, height,
		                    file_size, taken_at, layout_type, has_overlay, has_filter, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, nullableString(p.SessionID), p.Filename, p.Filepath, nullableString(p.ThumbnailPath),
		p.Width, p.Height, p.FileSize, formatTime(p.TakenAt), string(p.LayoutType),
		boolToInt(p.HasOverlay), boolToInt(p.HasFilter), nullableString(p.Metadata))
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return nil
}

// GetPhoto retrieves a photo by id, or nil if it does not exist
func (s *Store) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos p WHERE p.id = ?`, id)
	p, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return p, nil
}

// ListPhotos returns photos newest first. A limit <= 0 returns everything.
func (s *Store) ListPhotos(ctx context.Context, limit, offset int) ([]*Photo, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos p
		ORDER BY p.taken_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	return collectPhotos(rows)
}

// ListSessionPhotos returns a session's photos in capture order
func (s *Store) ListSessionPhotos(ctx context.Context, sessionID string) ([]*Photo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+photoColumns+` FROM photos p
		WHERE p.session_id = ?
		ORDER BY p.taken_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session photos: %w", err)
	}
	return collectPhotos(rows)
}

// DeletePhoto removes a photo record
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return requireAffected(result, "photo", id)
}

// PhotoStats aggregates the photo table for reports
type PhotoStats struct {
	Total      int
	TotalBytes int64
	ByLayout   map[layout.Layout]int
}

// GetPhotoStats counts photos per layout and sums their stored size
func (s *Store) GetPhotoStats(ctx context.Context) (*PhotoStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(layout_type, 'single'), COUNT(*), COALESCE(SUM(file_size), 0)
		FROM photos GROUP BY layout_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query photo stats: %w", err)
	}
	defer rows.Close()

	stats := &PhotoStats{ByLayout: make(map[layout.Layout]int)}
	for rows.Next() {
		var lt string
		var n int
		var size int64
		if err := rows.Scan(&lt, &n, &size); err != nil {
			return nil, fmt.Errorf("failed to scan photo stats: %w", err)
		}
		stats.ByLayout[layout.Layout(lt)] += n
		stats.Total += n
		stats.TotalBytes += size
	}
	return stats, rows.Err()
}

func collectPhotos(rows *sql.Rows) ([]*Photo, error) {
	defer rows.Close()

	var photos []*Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}
