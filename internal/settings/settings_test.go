package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "booth.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	saveDir := filepath.Join(dir, "photos")
	return New(s, saveDir), saveDir
}

func ptr[T any](v T) *T { return &v }

func TestUpdateMergesOnlyPresentFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	before, err := svc.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}

	after, err := svc.Update(ctx, store.SettingsPatch{PhotoQuality: ptr(80), PhotoFormat: ptr("JPEG")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if after.PhotoQuality != 80 || after.PhotoFormat != "jpg" {
		t.Errorf("expected quality 80 jpg, got %d %s", after.PhotoQuality, after.PhotoFormat)
	}
	if after.Resolution != before.Resolution || after.CountdownDuration != before.CountdownDuration ||
		after.EnableSound != before.EnableSound {
		t.Errorf("omitted fields changed: before %+v after %+v", before, after)
	}
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		patch store.SettingsPatch
	}{
		{"negative countdown", store.SettingsPatch{CountdownDuration: ptr(-1)}},
		{"quality zero", store.SettingsPatch{PhotoQuality: ptr(0)}},
		{"quality too high", store.SettingsPatch{PhotoQuality: ptr(101)}},
		{"bad format", store.SettingsPatch{PhotoFormat: ptr("gif")}},
		{"bad resolution", store.SettingsPatch{Resolution: ptr("1920by1080")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Update(ctx, tt.patch); !errors.Is(err, util.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	svc, saveDir := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, store.SettingsPatch{
		CameraDeviceID:    ptr("cam-2"),
		CountdownDuration: ptr(10),
		EnableFlash:       ptr(false),
		PrinterID:         ptr("printer-1"),
		AutoPrint:         ptr(true),
	})
	if err != nil {
		t.Fatal(err)
	}

	st, err := svc.Reset(ctx)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if st.CameraDeviceID != "" || st.CountdownDuration != DefaultCountdown || !st.EnableFlash ||
		st.SaveDirectory != saveDir || st.PhotoQuality != DefaultQuality {
		t.Errorf("unexpected settings after reset: %+v", st)
	}
	if st.PrinterID != "printer-1" || !st.AutoPrint {
		t.Errorf("printer settings should survive reset: %+v", st)
	}
}

func TestSaveDirectoryFallsBackAndCreates(t *testing.T) {
	svc, saveDir := newTestService(t)

	dir, err := svc.SaveDirectory(&store.Settings{})
	if err != nil {
		t.Fatalf("SaveDirectory failed: %v", err)
	}
	if dir != saveDir {
		t.Errorf("expected %s, got %s", saveDir, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected directory to be created: %v", err)
	}
}

func TestParseResolution(t *testing.T) {
	w, h, err := ParseResolution("1280x720")
	if err != nil || w != 1280 || h != 720 {
		t.Errorf("got %d %d %v", w, h, err)
	}
	for _, bad := range []string{"", "x", "0x10", "axb", "1x2x3"} {
		if _, _, err := ParseResolution(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
