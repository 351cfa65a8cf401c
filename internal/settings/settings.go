package settings

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// Default values restored by Reset
const (
	DefaultResolution = "1920x1080"
	DefaultCountdown  = 3
	DefaultFormat     = "jpg"
	DefaultQuality    = 95
)

// Service reads and mutates the singleton settings row
type Service struct {
	store          *store.Store
	defaultSaveDir string
}

// New returns a settings service. defaultSaveDir is used whenever the
// settings row carries no save directory.
func New(s *store.Store, defaultSaveDir string) *Service {
	return &Service{store: s, defaultSaveDir: defaultSaveDir}
}

// Get returns the current settings
func (s *Service) Get(ctx context.Context) (*store.Settings, error) {
	return s.store.GetSettings(ctx)
}

// Update validates and applies a partial change and returns the merged result
func (s *Service) Update(ctx context.Context, p store.SettingsPatch) (*store.Settings, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return s.Get(ctx)
	}
	if p.PhotoFormat != nil {
		f := normalizeFormat(*p.PhotoFormat)
		p.PhotoFormat = &f
	}
	if err := s.store.UpdateSettings(ctx, p); err != nil {
		return nil, err
	}
	return s.Get(ctx)
}

// Reset restores capture and output defaults. Printer selection and
// auto-print are left as they are.
func (s *Service) Reset(ctx context.Context) (*store.Settings, error) {
	empty := ""
	resolution := DefaultResolution
	countdown := DefaultCountdown
	on := true
	saveDir := s.defaultSaveDir
	format := DefaultFormat
	quality := DefaultQuality

	return s.Update(ctx, store.SettingsPatch{
		CameraDeviceID:    &empty,
		Resolution:        &resolution,
		CountdownDuration: &countdown,
		EnableFlash:       &on,
		EnableSound:       &on,
		SaveDirectory:     &saveDir,
		PhotoFormat:       &format,
		PhotoQuality:      &quality,
	})
}

// SaveDirectory resolves where photos are written, creating the directory
// on first use
func (s *Service) SaveDirectory(st *store.Settings) (string, error) {
	dir := st.SaveDirectory
	if dir == "" {
		dir = s.defaultSaveDir
	}
	if dir == "" {
		return "", fmt.Errorf("no save directory configured: %w", util.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}
	return dir, nil
}

// Validate checks the fields present in p
func Validate(p store.SettingsPatch) error {
	if p.CountdownDuration != nil && *p.CountdownDuration < 0 {
		return fmt.Errorf("countdown must be >= 0, got %d: %w", *p.CountdownDuration, util.ErrInvalidInput)
	}
	if p.PhotoQuality != nil && (*p.PhotoQuality < 1 || *p.PhotoQuality > 100) {
		return fmt.Errorf("quality must be 1-100, got %d: %w", *p.PhotoQuality, util.ErrInvalidInput)
	}
	if p.PhotoFormat != nil {
		switch normalizeFormat(*p.PhotoFormat) {
		case "jpg", "png":
		default:
			return fmt.Errorf("unsupported photo format %q: %w", *p.PhotoFormat, util.ErrInvalidInput)
		}
	}
	if p.Resolution != nil {
		if _, _, err := ParseResolution(*p.Resolution); err != nil {
			return err
		}
	}
	return nil
}

// ParseResolution splits a "WIDTHxHEIGHT" string
func ParseResolution(s string) (int, int, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("resolution %q is not WIDTHxHEIGHT: %w", s, util.ErrInvalidInput)
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("resolution %q is not WIDTHxHEIGHT: %w", s, util.ErrInvalidInput)
	}
	return w, h, nil
}

func normalizeFormat(f string) string {
	f = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), "."))
	if f == "jpeg" {
		return "jpg"
	}
	return f
}
