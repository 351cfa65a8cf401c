package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Settings is the singleton booth configuration row (id = 1)
type Settings struct {
	CameraDeviceID    string
	Resolution        string
	CountdownDuration int
	EnableFlash       bool
	EnableSound       bool
	SaveDirectory     string
	PhotoFormat       string
	PhotoQuality      int
	PrinterID         string
	AutoPrint         bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SettingsPatch lists the mutable settings fields. Nil fields are left
// untouched; an empty string clears an optional text column.
type SettingsPatch struct {
	CameraDeviceID    *string
	Resolution        *string
	CountdownDuration *int
	EnableFlash       *bool
	EnableSound       *bool
	SaveDirectory     *string
	PhotoFormat       *string
	PhotoQuality      *int
	PrinterID         *string
	AutoPrint         *bool
}

// IsEmpty reports whether the patch changes nothing
func (p SettingsPatch) IsEmpty() bool {
	return p.CameraDeviceID == nil && p.Resolution == nil && p.CountdownDuration == nil &&
		p.EnableFlash == nil && p.EnableSound == nil && p.SaveDirectory == nil &&
		p.PhotoFormat == nil && p.PhotoQuality == nil && p.PrinterID == nil && p.AutoPrint == nil
}

// GetSettings reads the singleton settings row
func (s *Store) GetSettings(ctx context.Context) (*Settings, error) {
	st := &Settings{}
	var flash, sound, autoPrint int
	var createdAt, updatedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(camera_device_id, ''), COALESCE(resolution, '1920x1080'),
		       COALESCE(countdown_duration, 3), COALESCE(enable_flash, 1), COALESCE(enable_sound, 1),
		       COALESCE(save_directory, ''), COALESCE(photo_format, 'jpg'), COALESCE(photo_quality, 95),
		       COALESCE(printer_id, ''), COALESCE(auto_print, 0), created_at, updated_at
		FROM settings WHERE id = 1
	`).Scan(
		&st.CameraDeviceID, &st.Resolution,
		&st.CountdownDuration, &flash, &sound,
		&st.SaveDirectory, &st.PhotoFormat, &st.PhotoQuality,
		&st.PrinterID, &autoPrint, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("settings row missing")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	st.EnableFlash = flash != 0
	st.EnableSound = sound != 0
	st.AutoPrint = autoPrint != 0
	st.CreatedAt = parseTime(createdAt.String)
	st.UpdatedAt = parseTime(updatedAt.String)
	return st, nil
}

// UpdateSettings applies the present fields of p and refreshes updated_at.
// The id column is not reachable from a patch.
func (s *Store) UpdateSettings(ctx context.Context, p SettingsPatch) error {
	var a assignments
	if p.CameraDeviceID != nil {
		a.set("camera_device_id", nullableString(*p.CameraDeviceID))
	}
	if p.Resolution != nil {
		a.set("resolution", *p.Resolution)
	}
	if p.CountdownDuration != nil {
		a.set("countdown_duration", *p.CountdownDuration)
	}
	if p.EnableFlash != nil {
		a.set("enable_flash", boolToInt(*p.EnableFlash))
	}
	if p.EnableSound != nil {
		a.set("enable_sound", boolToInt(*p.EnableSound))
	}
	if p.SaveDirectory != nil {
		a.set("save_directory", nullableString(*p.SaveDirectory))
	}
	if p.PhotoFormat != nil {
		a.set("photo_format", *p.PhotoFormat)
	}
	if p.PhotoQuality != nil {
		a.set("photo_quality", *p.PhotoQuality)
	}
	if p.PrinterID != nil {
		a.set("printer_id", nullableString(*p.PrinterID))
	}
	if p.AutoPrint != nil {
		a.set("auto_print", boolToInt(*p.AutoPrint))
	}
	a.set("updated_at", formatTime(time.Now()))

	_, err := s.db.ExecContext(ctx, "UPDATE settings SET "+a.clause()+" WHERE id = 1", a.args...)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}
