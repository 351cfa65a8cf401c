package photo

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/settings"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

type fixture struct {
	store   *store.Store
	photos  *Service
	saveDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "booth.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	saveDir := filepath.Join(dir, "photos")
	svc := New(s, settings.New(s, saveDir))
	svc.now = func() time.Time { return time.Date(2026, 10, 14, 15, 4, 5, 0, time.Local) }
	return &fixture{store: s, photos: svc, saveDir: saveDir}
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{40, 120, 200, 255}), image.Point{}, draw.Src)
	return img
}

func TestSaveRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.photos.Save(ctx, SaveInput{
		Image:    testImage(640, 480),
		Layout:   layout.Strip3,
		Metadata: CaptureMetadata{PhotoCount: 3},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := f.photos.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Width != 640 || got.Height != 480 {
		t.Errorf("expected 640x480, got %dx%d", got.Width, got.Height)
	}
	if got.LayoutType != layout.Strip3 {
		t.Errorf("expected strip-3, got %s", got.LayoutType)
	}

	for _, path := range []string{got.Filepath, got.ThumbnailPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", path, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
	if got.FileSize <= 0 {
		t.Errorf("expected recorded size, got %d", got.FileSize)
	}

	wantDir := filepath.Join(f.saveDir, "2026-10-14")
	if filepath.Dir(got.Filepath) != wantDir {
		t.Errorf("expected dated folder %s, got %s", wantDir, filepath.Dir(got.Filepath))
	}
	if !strings.HasPrefix(got.Filename, "photo_") || !strings.HasSuffix(got.Filename, ".jpg") {
		t.Errorf("unexpected filename %s", got.Filename)
	}
	if parts := strings.Split(strings.TrimSuffix(got.Filename, ".jpg"), "_"); len(parts) != 3 || len(parts[2]) != 8 {
		t.Errorf("expected photo_<millis>_<8 hex> name, got %s", got.Filename)
	}
	if !strings.HasPrefix(filepath.Base(got.ThumbnailPath), "thumb_") {
		t.Errorf("unexpected thumbnail name %s", got.ThumbnailPath)
	}

	meta, err := DecodeMetadata(got.Metadata)
	if err != nil {
		t.Fatal(err)
	}
	cm, ok := meta.(*CaptureMetadata)
	if !ok || cm.PhotoCount != 3 || cm.Kind != KindCapture {
		t.Errorf("unexpected metadata %#v", meta)
	}
}

func TestSaveHonoursFormatSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.store.GetSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	st.PhotoFormat = "png"

	p, err := f.photos.Save(ctx, SaveInput{Image: testImage(32, 32), Settings: st})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(p.Filepath) != ".png" {
		t.Errorf("expected png output, got %s", p.Filepath)
	}
	if filepath.Ext(p.ThumbnailPath) != ".jpg" {
		t.Errorf("thumbnail should always be jpeg, got %s", p.ThumbnailPath)
	}
}

func TestSaveFailureWritesNoRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A regular file where the save directory should be
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	st, _ := f.store.GetSettings(ctx)
	st.SaveDirectory = blocker

	if _, err := f.photos.Save(ctx, SaveInput{Image: testImage(8, 8), Settings: st}); err == nil {
		t.Fatal("expected save to fail")
	}
	photos, err := f.photos.List(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(photos) != 0 {
		t.Errorf("expected no records after failed write, got %d", len(photos))
	}
}

func TestDeleteRemovesFilesAndRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.photos.Save(ctx, SaveInput{Image: testImage(16, 16)})
	if err != nil {
		t.Fatal(err)
	}
	// Thumbnail already gone must not block deletion
	os.Remove(p.ThumbnailPath)

	if _, err := f.photos.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if util.FileExists(p.Filepath) {
		t.Error("primary file should be removed")
	}
	if _, err := f.photos.Get(ctx, p.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if _, err := f.photos.Delete(ctx, p.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestApplyFilterCreatesLinkedCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orig, err := f.photos.Save(ctx, SaveInput{Image: testImage(20, 10), Layout: layout.Single})
	if err != nil {
		t.Fatal(err)
	}

	filtered, err := f.photos.ApplyFilter(ctx, orig.ID, compose.Filter{Type: compose.FilterGrayscale, Brightness: 100, Contrast: 100})
	if err != nil {
		t.Fatalf("ApplyFilter failed: %v", err)
	}
	if filtered.ID == orig.ID || !filtered.HasFilter {
		t.Errorf("expected a new filtered photo, got %+v", filtered)
	}
	meta, err := DecodeMetadata(filtered.Metadata)
	if err != nil {
		t.Fatal(err)
	}
	fm, ok := meta.(*FilterMetadata)
	if !ok || fm.OriginalPhotoID != orig.ID || fm.Filter.Type != compose.FilterGrayscale {
		t.Errorf("unexpected filter metadata %#v", meta)
	}
	if !util.FileExists(orig.Filepath) {
		t.Error("original should be untouched")
	}
}

func TestDisplayPathFallback(t *testing.T) {
	dir := t.TempDir()
	primary := filepath.Join(dir, "a.jpg")
	thumb := filepath.Join(dir, "thumb_a.jpg")
	os.WriteFile(primary, []byte("p"), 0o644)
	os.WriteFile(thumb, []byte("t"), 0o644)

	p := &store.Photo{Filepath: primary, ThumbnailPath: thumb}
	if got := DisplayPath(p); got != thumb {
		t.Errorf("expected thumbnail first, got %s", got)
	}
	os.Remove(thumb)
	if got := DisplayPath(p); got != primary {
		t.Errorf("expected primary fallback, got %s", got)
	}
	os.Remove(primary)
	if got := DisplayPath(p); got != "" {
		t.Errorf("expected placeholder, got %s", got)
	}
}

func TestMediaURLRoundTrip(t *testing.T) {
	path := "/home/booth/photos/2026-10-14/photo 1#x.jpg"
	u := MediaURL(path)
	if !strings.HasPrefix(u, MediaPrefix) || strings.Contains(u, " ") {
		t.Fatalf("unexpected url %s", u)
	}
	got, err := resolveMediaURL(u, "linux")
	if err != nil || got != path {
		t.Errorf("expected %s, got %s (%v)", path, got, err)
	}

	got, err = resolveMediaURL("media://local-resource//C:/Users/booth/My%20Photos/a.jpg", "windows")
	if err != nil || got != `C:\Users\booth\My Photos\a.jpg` {
		t.Errorf("unexpected windows path %q (%v)", got, err)
	}

	got, err = resolveMediaURL("media://local-resource/local-resource/tmp/a.jpg", "linux")
	if err != nil || got != "/tmp/a.jpg" {
		t.Errorf("expected doubled host to collapse, got %q (%v)", got, err)
	}

	if _, err := resolveMediaURL("file:///tmp/a.jpg", "linux"); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
