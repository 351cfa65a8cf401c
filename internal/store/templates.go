package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/franz/photobooth/internal/layout"
)

// Template is a reusable overlay definition. TextOverlays holds the
// serialized overlay list as stored.
type Template struct {
	ID              string
	Name            string
	Description     string
	LayoutType      layout.Layout
	FramePath       string
	BackgroundColor string
	Width           int
	Height          int
	TextOverlays    string
	IsDefault       bool
	IsActive        bool
	ThumbnailPath   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TemplatePatch lists the mutable template fields
type TemplatePatch struct {
	Name            *string
	Description     *string
	LayoutType      *layout.Layout
	FramePath       *string
	BackgroundColor *string
	Width           *int
	Height          *int
	TextOverlays    *string
	IsDefault       *bool
	IsActive        *bool
	ThumbnailPath   *string
}

const templateColumns = `id, name, COALESCE(description, ''), layout_type, COALESCE(frame_path, ''),
	COALESCE(background_color, '#ffffff'), COALESCE(width, 1800), COALESCE(height, 1200),
	COALESCE(text_overlays, ''), COALESCE(is_default, 0), COALESCE(is_active, 1),
	COALESCE(thumbnail_path, ''), created_at, updated_at`

func scanTemplate(row rowScanner) (*Template, error) {
	t := &Template{}
	var lt string
	var isDefault, isActive int
	var createdAt, updatedAt sql.NullString
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &lt, &t.FramePath,
		&t.BackgroundColor, &t.Width, &t.Height,
		&t.TextOverlays, &isDefault, &isActive,
		&t.ThumbnailPath, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.LayoutType = layout.Layout(lt)
	t.IsDefault = isDefault != 0
	t.IsActive = isActive != 0
	t.CreatedAt = parseTime(createdAt.String)
	t.UpdatedAt = parseTime(updatedAt.String)
	return t, nil
}

// InsertTemplate inserts a template record
func (s *Store) InsertTemplate(ctx context.Context, t *Template) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = t.CreatedAt
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (id, name, description, layout_type, frame_path, background_color,
		                       width, height, text_overlays, is_default, is_active, thumbnail_path,
		                       created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, nullableString(t.Description), string(t.LayoutType), nullableString(t.FramePath),
		t.BackgroundColor, t.Width, t.Height, nullableString(t.TextOverlays),
		boolToInt(t.IsDefault), boolToInt(t.IsActive), nullableString(t.ThumbnailPath),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a template by id, or nil if it does not exist
func (s *Store) GetTemplate(ctx context.Context, id string) (*Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// ListTemplates returns templates newest first. With activeOnly, inactive
// templates are skipped and defaults sort ahead of the rest.
func (s *Store) ListTemplates(ctx context.Context, activeOnly bool) ([]*Template, error) {
	query := `SELECT ` + templateColumns + ` FROM templates ORDER BY created_at DESC`
	if activeOnly {
		query = `SELECT ` + templateColumns + ` FROM templates WHERE is_active = 1 ORDER BY is_default DESC, created_at DESC`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// UpdateTemplate applies the present fields of p and refreshes updated_at
func (s *Store) UpdateTemplate(ctx context.Context, id string, p TemplatePatch) error {
	var a assignments
	if p.Name != nil {
		a.set("name", *p.Name)
	}
	if p.Description != nil {
		a.set("description", nullableString(*p.Description))
	}
	if p.LayoutType != nil {
		a.set("layout_type", string(*p.LayoutType))
	}
	if p.FramePath != nil {
		a.set("frame_path", nullableString(*p.FramePath))
	}
	if p.BackgroundColor != nil {
		a.set("background_color", *p.BackgroundColor)
	}
	if p.Width != nil {
		a.set("width", *p.Width)
	}
	if p.Height != nil {
		a.set("height", *p.Height)
	}
	if p.TextOverlays != nil {
		a.set("text_overlays", nullableString(*p.TextOverlays))
	}
	if p.IsDefault != nil {
		a.set("is_default", boolToInt(*p.IsDefault))
	}
	if p.IsActive != nil {
		a.set("is_active", boolToInt(*p.IsActive))
	}
	if p.ThumbnailPath != nil {
		a.set("thumbnail_path", nullableString(*p.ThumbnailPath))
	}
	a.set("updated_at", formatTime(time.Now()))

	args := append(a.args, id)
	result, err := s.db.ExecContext(ctx, "UPDATE templates SET "+a.clause()+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return requireAffected(result, "template", id)
}

// DeleteTemplate removes a template record
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return requireAffected(result, "template", id)
}

// CountTemplates returns the number of template rows
func (s *Store) CountTemplates(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return n, nil
}

// SeedTemplates inserts ts only when the template table is empty and
// reports how many rows were written. The emptiness check and the inserts
// share one transaction.
func (s *Store) SeedTemplates(ctx context.Context, ts []*Template) (int, error) {
	seeded := 0
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`).Scan(&n); err != nil {
			return fmt.Errorf("failed to count templates: %w", err)
		}
		if n > 0 {
			return nil
		}
		now := time.Now().UTC()
		for _, t := range ts {
			t.CreatedAt, t.UpdatedAt = now, now
			_, err := tx.ExecContext(ctx, `
				INSERT INTO templates (id, name, description, layout_type, frame_path, background_color,
				                       width, height, text_overlays, is_default, is_active, thumbnail_path,
				                       created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, t.ID, t.Name, nullableString(t.Description), string(t.LayoutType), nullableString(t.FramePath),
				t.BackgroundColor, t.Width, t.Height, nullableString(t.TextOverlays),
				boolToInt(t.IsDefault), boolToInt(t.IsActive), nullableString(t.ThumbnailPath),
				formatTime(now), formatTime(now))
			if err != nil {
				return fmt.Errorf("failed to seed template %s: %w", t.Name, err)
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}
