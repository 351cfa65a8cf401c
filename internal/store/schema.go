package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one additive schema step. Migrations run in slice order and
// are recorded by name in the migrations ledger.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{name: "001_initial_schema", sql: schemaV1},
	{name: "002_add_analytics", sql: schemaV2},
	{name: "003_template_layout", sql: schemaV3},
	{name: "004_groups", sql: schemaV4},
}

const migrationsTable = `
CREATE TABLE IF NOT EXISTS migrations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Schema v1 - settings, sessions, photos, templates and print jobs
const schemaV1 = `
CREATE TABLE IF NOT EXISTS settings (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  camera_device_id TEXT,
  resolution TEXT DEFAULT '1920x1080',
  countdown_duration INTEGER DEFAULT 3,
  enable_flash BOOLEAN DEFAULT 1,
  enable_sound BOOLEAN DEFAULT 1,
  save_directory TEXT,
  photo_format TEXT DEFAULT 'jpg',
  photo_quality INTEGER DEFAULT 95,
  printer_id TEXT,
  auto_print BOOLEAN DEFAULT 0,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  name TEXT,
  started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  ended_at DATETIME,
  photo_count INTEGER DEFAULT 0,
  status TEXT DEFAULT 'active' CHECK(status IN ('active', 'completed', 'cancelled'))
);

CREATE TABLE IF NOT EXISTS photos (
  id TEXT PRIMARY KEY,
  session_id TEXT,
  filename TEXT NOT NULL,
  filepath TEXT NOT NULL,
  thumbnail_path TEXT,
  width INTEGER,
  height INTEGER,
  file_size INTEGER,
  taken_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  layout_type TEXT DEFAULT 'single',
  has_overlay BOOLEAN DEFAULT 0,
  has_filter BOOLEAN DEFAULT 0,
  metadata TEXT,
  FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS templates (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  layout_type TEXT NOT NULL,
  frame_path TEXT,
  overlay_data TEXT,
  is_active BOOLEAN DEFAULT 1,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS print_jobs (
  id TEXT PRIMARY KEY,
  photo_id TEXT NOT NULL,
  printer_id TEXT,
  status TEXT DEFAULT 'pending' CHECK(status IN ('pending', 'printing', 'completed', 'failed', 'cancelled')),
  copies INTEGER DEFAULT 1,
  error_message TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  completed_at DATETIME,
  FOREIGN KEY (photo_id) REFERENCES photos(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_photos_session ON photos(session_id);
CREATE INDEX IF NOT EXISTS idx_photos_taken_at ON photos(taken_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_print_jobs_status ON print_jobs(status);

INSERT OR IGNORE INTO settings (id) VALUES (1);
`

// Schema v2 - append-only analytics log
const schemaV2 = `
CREATE TABLE IF NOT EXISTS analytics_events (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  event_type TEXT NOT NULL,
  event_data TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_analytics_type ON analytics_events(event_type);
CREATE INDEX IF NOT EXISTS idx_analytics_date ON analytics_events(created_at DESC);
`

// Schema v3 - template canvas geometry and text overlays
const schemaV3 = `
ALTER TABLE templates ADD COLUMN background_color TEXT DEFAULT '#ffffff';
ALTER TABLE templates ADD COLUMN width INTEGER DEFAULT 1800;
ALTER TABLE templates ADD COLUMN height INTEGER DEFAULT 1200;
ALTER TABLE templates ADD COLUMN text_overlays TEXT;
ALTER TABLE templates ADD COLUMN is_default BOOLEAN DEFAULT 0;
ALTER TABLE templates ADD COLUMN thumbnail_path TEXT;

CREATE INDEX IF NOT EXISTS idx_templates_active ON templates(is_active, is_default);
`

// Schema v4 - photo groups
const schemaV4 = `
CREATE TABLE IF NOT EXISTS groups (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  description TEXT,
  photo_count INTEGER DEFAULT 0,
  thumbnail_path TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS group_photos (
  group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
  photo_id TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
  added_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_group_photos_group ON group_photos(group_id);
CREATE INDEX IF NOT EXISTS idx_group_photos_photo ON group_photos(photo_id);
`

// migrate applies pending migrations in declaration order. Each migration and
// its ledger row commit together, so an interrupted step is never recorded.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		applied, err := s.migrationApplied(ctx, m.name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = s.Transaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return fmt.Errorf("failed to apply %s: %w", m.name, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO migrations (name) VALUES (?)`, m.name); err != nil {
				return fmt.Errorf("failed to record %s: %w", m.name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Store) migrationApplied(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM migrations WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration %s: %w", name, err)
	}
	return count > 0, nil
}

// AppliedMigrations returns the ledger in application order
func (s *Store) AppliedMigrations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM migrations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
