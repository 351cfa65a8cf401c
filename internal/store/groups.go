package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Group is a named, many-to-many collection of photos
type Group struct {
	ID            int64
	Name          string
	Description   string
	PhotoCount    int
	ThumbnailPath string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GroupPatch lists the mutable group fields
type GroupPatch struct {
	Name          *string
	Description   *string
	ThumbnailPath *string
}

const groupColumns = `id, name, COALESCE(description, ''), COALESCE(photo_count, 0),
	COALESCE(thumbnail_path, ''), created_at, updated_at`

func scanGroup(row rowScanner) (*Group, error) {
	g := &Group{}
	var createdAt, updatedAt sql.NullString
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.PhotoCount, &g.ThumbnailPath, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	g.CreatedAt = parseTime(createdAt.String)
	g.UpdatedAt = parseTime(updatedAt.String)
	return g, nil
}

// InsertGroup inserts a group and sets its generated id
func (s *Store) InsertGroup(ctx context.Context, g *Group) error {
	now := time.Now().UTC()
	g.CreatedAt, g.UpdatedAt = now, now
	g.PhotoCount = 0
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (name, description, thumbnail_path, photo_count, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, g.Name, nullableString(g.Description), nullableString(g.ThumbnailPath), formatTime(now), formatTime(now))
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get group ID: %w", err)
	}
	g.ID = id
	return nil
}

// GetGroup retrieves a group by id, or nil if it does not exist
func (s *Store) GetGroup(ctx context.Context, id int64) (*Group, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = ?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// ListGroups returns every group in creation order
func (s *Store) ListGroups(ctx context.Context) ([]*Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+groupColumns+` FROM groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UpdateGroup applies the present fields of p and refreshes updated_at
func (s *Store) UpdateGroup(ctx context.Context, id int64, p GroupPatch) error {
	var a assignments
	if p.Name != nil {
		a.set("name", *p.Name)
	}
	if p.Description != nil {
		a.set("description", nullableString(*p.Description))
	}
	if p.ThumbnailPath != nil {
		a.set("thumbnail_path", nullableString(*p.ThumbnailPath))
	}
	a.set("updated_at", formatTime(time.Now()))

	args := append(a.args, id)
	result, err := s.db.ExecContext(ctx, "UPDATE groups SET "+a.clause()+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}
	return requireAffected(result, "group", id)
}

// DeleteGroup removes a group; its associations cascade
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return requireAffected(result, "group", id)
}

// AddGroupPhotos associates photoIDs with a group in one transaction.
// Photos already in the group are skipped. Returns the number added.
func (s *Store) AddGroupPhotos(ctx context.Context, groupID int64, photoIDs []string) (int, error) {
	added := 0
	err := s.Transaction(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for _, photoID := range photoIDs {
			result, err := tx.ExecContext(ctx, `
				INSERT INTO group_photos (group_id, photo_id, added_at)
				SELECT ?, ?, ?
				WHERE NOT EXISTS (SELECT 1 FROM group_photos WHERE group_id = ? AND photo_id = ?)
			`, groupID, photoID, now, groupID, photoID)
			if err != nil {
				return fmt.Errorf("failed to add photo %s to group: %w", photoID, err)
			}
			n, _ := result.RowsAffected()
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveGroupPhotos deletes the given associations with a single batch
// statement and returns how many rows went away
func (s *Store) RemoveGroupPhotos(ctx context.Context, groupID int64, photoIDs []string) (int64, error) {
	if len(photoIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(photoIDs)+1)
	args = append(args, groupID)
	for _, id := range photoIDs {
		args = append(args, id)
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM group_photos WHERE group_id = ? AND photo_id IN (`+makePlaceholders(len(photoIDs))+`)`,
		args...)
	if err != nil {
		return 0, fmt.Errorf("failed to remove photos from group: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// ListGroupPhotoIDs returns the ids of a group's photos in the order added
func (s *Store) ListGroupPhotoIDs(ctx context.Context, groupID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT photo_id FROM group_photos WHERE group_id = ? ORDER BY added_at, rowid
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group photos: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group photo: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecountGroupPhotos sets photo_count to the number of associations and
// returns the new count
func (s *Store) RecountGroupPhotos(ctx context.Context, groupID int64) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE groups SET photo_count = (SELECT COUNT(*) FROM group_photos WHERE group_id = ?)
		WHERE id = ?
	`, groupID, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to update group photo count: %w", err)
	}
	if err := requireAffected(result, "group", groupID); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT photo_count FROM groups WHERE id = ?`, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to read group photo count: %w", err)
	}
	return count, nil
}
