package session

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/photo"
	"github.com/franz/photobooth/internal/settings"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

type fixture struct {
	store    *store.Store
	sessions *Service
	photos   *photo.Service
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "booth.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	f := &fixture{
		store:  s,
		photos: photo.New(s, settings.New(s, filepath.Join(dir, "photos"))),
		clock:  time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC),
	}
	f.sessions = New(s)
	f.sessions.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) addPhoto(t *testing.T, sessionID string, meta any) *store.Photo {
	t.Helper()
	p, err := f.photos.Save(context.Background(), photo.SaveInput{
		Image:     image.NewRGBA(image.Rect(0, 0, 24, 16)),
		SessionID: sessionID,
		Layout:    layout.Single,
		Metadata:  meta,
	})
	if err != nil {
		t.Fatalf("failed to save photo: %v", err)
	}
	return p
}

func TestActiveOrCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.sessions.ActiveOrCreate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !created || first.Status != store.SessionActive {
		t.Fatalf("expected a new active session, got %+v (created=%v)", first, created)
	}
	if !strings.HasPrefix(first.Name, "Session ") {
		t.Errorf("expected default name, got %q", first.Name)
	}

	again, created, err := f.sessions.ActiveOrCreate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if created || again.ID != first.ID {
		t.Errorf("expected the existing session back, got %s (created=%v)", again.ID, created)
	}

	f.clock = f.clock.Add(time.Minute)
	newer, err := f.sessions.Create(ctx, "Evening")
	if err != nil {
		t.Fatal(err)
	}
	latest, _, err := f.sessions.ActiveOrCreate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.ID != newer.ID {
		t.Errorf("expected most recently started session %s, got %s", newer.ID, latest.ID)
	}
}

func TestEndAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, _ := f.sessions.Create(ctx, "a")
	b, _ := f.sessions.Create(ctx, "b")

	f.clock = f.clock.Add(10 * time.Minute)
	ended, err := f.sessions.End(ctx, a.ID)
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if ended.Status != store.SessionCompleted || ended.EndedAt == nil || !ended.EndedAt.Equal(f.clock) {
		t.Errorf("unexpected ended session %+v", ended)
	}

	cancelled, err := f.sessions.Cancel(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != store.SessionCancelled || cancelled.EndedAt == nil {
		t.Errorf("unexpected cancelled session %+v", cancelled)
	}

	if _, err := f.sessions.End(ctx, "missing"); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPhotoCountAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, _ := f.sessions.Create(ctx, "")
	for i := 0; i < 3; i++ {
		f.addPhoto(t, sess.ID, nil)
	}
	n, err := f.sessions.UpdatePhotoCount(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 photos, got %d", n)
	}

	f.clock = f.clock.Add(90 * time.Second)
	st, err := f.sessions.Stats(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.PhotoCount != 3 || st.DurationSeconds != 90 {
		t.Errorf("unexpected stats %+v", st)
	}
	if math.Abs(st.AvgPhotosPerMinute-2) > 1e-9 {
		t.Errorf("expected 2 photos per minute, got %f", st.AvgPhotosPerMinute)
	}

	// An ended session measures up to its end time
	if _, err := f.sessions.End(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}
	f.clock = f.clock.Add(time.Hour)
	st, _ = f.sessions.Stats(ctx, sess.ID)
	if st.DurationSeconds != 90 {
		t.Errorf("expected duration frozen at 90s, got %f", st.DurationSeconds)
	}

	empty, _ := f.sessions.Create(ctx, "")
	st, _ = f.sessions.Stats(ctx, empty.ID)
	if st.AvgPhotosPerMinute != 0 {
		t.Errorf("expected zero rate for zero duration, got %f", st.AvgPhotosPerMinute)
	}
}

func TestExportFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, _ := f.sessions.Create(ctx, "")
	kept := []*store.Photo{f.addPhoto(t, sess.ID, nil), f.addPhoto(t, sess.ID, nil)}
	gone := f.addPhoto(t, sess.ID, nil)
	os.Remove(gone.Filepath)

	dest := t.TempDir()
	res, err := f.sessions.Export(ctx, sess.ID, ExportOptions{Format: FormatFolder, Destination: dest, Workers: 2})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	wantName := "session_" + sess.ID + "_"
	if !strings.HasPrefix(filepath.Base(res.Path), wantName) {
		t.Errorf("unexpected export path %s", res.Path)
	}
	if res.Files != 2 || len(res.Skipped) != 1 {
		t.Errorf("expected 2 files and 1 skipped, got %+v", res)
	}
	for _, p := range kept {
		if !util.FileExists(filepath.Join(res.Path, p.Filename)) {
			t.Errorf("missing exported %s", p.Filename)
		}
	}
}

func TestExportZipSelectsProcessed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, _ := f.sessions.Create(ctx, "")
	f.addPhoto(t, sess.ID, nil)
	processed := f.addPhoto(t, sess.ID, photo.TemplateMetadata{TemplateID: "t1"})

	res, err := f.sessions.Export(ctx, sess.ID, ExportOptions{Format: FormatZip, Destination: t.TempDir(), Processed: true})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Ext(res.Path) != ".zip" || res.Files != 1 || res.Bytes == 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	zr, err := zip.OpenReader(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	var names []string
	for _, zf := range zr.File {
		names = append(names, zf.Name)
	}
	sort.Strings(names)
	if len(names) != 1 || names[0] != processed.Filename {
		t.Errorf("expected only %s in archive, got %v", processed.Filename, names)
	}
}

func TestExportEmptySession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, _ := f.sessions.Create(ctx, "")
	if _, err := f.sessions.Export(ctx, sess.ID, ExportOptions{Destination: t.TempDir()}); !errors.Is(err, util.ErrEmptySession) {
		t.Errorf("expected ErrEmptySession, got %v", err)
	}
	if _, err := f.sessions.Export(ctx, "missing", ExportOptions{Destination: t.TempDir()}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := ParseFormat("tar"); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for tar, got %v", err)
	}
}

func TestDeleteWithFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, _ := f.sessions.Create(ctx, "")
	a := f.addPhoto(t, sess.ID, nil)
	b := f.addPhoto(t, sess.ID, nil)
	other := f.addPhoto(t, "", nil)

	n, err := f.sessions.DeleteWithFiles(ctx, sess.ID)
	if err != nil {
		t.Fatalf("DeleteWithFiles failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 photos removed, got %d", n)
	}
	for _, p := range []*store.Photo{a, b} {
		if util.FileExists(p.Filepath) || util.FileExists(p.ThumbnailPath) {
			t.Errorf("files of %s should be gone", p.ID)
		}
	}
	if _, err := f.sessions.Get(ctx, sess.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected session gone, got %v", err)
	}
	if _, err := f.photos.Get(ctx, other.ID); err != nil {
		t.Errorf("unrelated photo should survive: %v", err)
	}
	if _, err := f.sessions.DeleteWithFiles(ctx, sess.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
