package booth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/franz/photobooth/internal/camera"
	"github.com/franz/photobooth/internal/capture"
	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/photo"
	"github.com/franz/photobooth/internal/report"
	"github.com/franz/photobooth/internal/session"
	"github.com/franz/photobooth/internal/settings"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/templates"
	"github.com/franz/photobooth/internal/util"
)

// instantClock fires every timer immediately
type instantClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type fixture struct {
	booth     *Booth
	clock     *instantClock
	store     *store.Store
	settings  *settings.Service
	photos    *photo.Service
	sessions  *session.Service
	templates *templates.Service
}

func ptr[T any](v T) *T { return &v }

func newFixture(t *testing.T, start bool) *fixture {
	t.Helper()
	return newFixtureWith(t, start, nil)
}

func newFixtureWith(t *testing.T, start bool, configure func(*Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "booth.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	st := settings.New(s, filepath.Join(dir, "photos"))
	if _, err := st.Update(context.Background(), store.SettingsPatch{Resolution: ptr("64x48")}); err != nil {
		t.Fatal(err)
	}
	photos := photo.New(s, st)
	compositor := compose.New(compose.Config{Templates: s})
	f := &fixture{
		store:     s,
		settings:  st,
		photos:    photos,
		sessions:  session.New(s),
		templates: templates.New(s, photos, compositor),
	}
	source := camera.NewSource(&camera.PatternDriver{Interval: 5 * time.Millisecond})
	f.clock = &instantClock{now: time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC)}
	cfg := Config{
		Store:      s,
		Settings:   st,
		Photos:     photos,
		Sessions:   f.sessions,
		Templates:  f.templates,
		Compositor: compositor,
		Source:     source,
		Clock:      f.clock,
		Events:     report.NewSinkLogger(s, report.LevelDebug),
	}
	if configure != nil {
		configure(&cfg)
	}
	f.booth = New(cfg)
	t.Cleanup(func() { f.booth.StopCamera() })

	if start {
		if _, err := f.booth.StartCamera(context.Background()); err != nil {
			t.Fatalf("StartCamera failed: %v", err)
		}
		if err := f.booth.WaitReady(context.Background(), 2*time.Second); err != nil {
			t.Fatalf("camera never became ready: %v", err)
		}
	}
	return f
}

func TestShootStripKeepsIntoActiveSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var ticks, captured int
	saved, err := f.booth.Shoot(ctx, layout.Strip3, KeepOptions{}, func(e capture.Event) {
		switch e.Kind {
		case capture.EventTick:
			ticks++
		case capture.EventCaptured:
			captured++
		}
	})
	if err != nil {
		t.Fatalf("Shoot failed: %v", err)
	}
	if captured != 3 || ticks != 3*settings.DefaultCountdown {
		t.Errorf("expected 3 shots and %d ticks, got %d and %d", 3*settings.DefaultCountdown, captured, ticks)
	}

	w, h := compose.StripSize(3)
	if saved.Width != w || saved.Height != h || saved.LayoutType != layout.Strip3 {
		t.Errorf("expected %dx%d strip-3, got %dx%d %s", w, h, saved.Width, saved.Height, saved.LayoutType)
	}

	sess, err := f.sessions.Get(ctx, saved.SessionID)
	if err != nil {
		t.Fatalf("photo should belong to a session: %v", err)
	}
	if sess.Status != store.SessionActive || sess.PhotoCount != 1 {
		t.Errorf("unexpected session %+v", sess)
	}

	meta, err := photo.DecodeMetadata(saved.Metadata)
	if err != nil {
		t.Fatal(err)
	}
	cm, ok := meta.(*photo.CaptureMetadata)
	if !ok || cm.PhotoCount != 3 || len(cm.ShotTimes) != 3 || cm.Device != "Test Pattern" {
		t.Errorf("unexpected capture metadata %#v", meta)
	}

	counts, err := f.store.CountAnalyticsByType(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []report.EventType{report.EventSessionStarted, report.EventCaptureCompleted, report.EventPhotoSaved} {
		if counts[string(e)] != 1 {
			t.Errorf("expected one %s event, got %d", e, counts[string(e)])
		}
	}

	// A second keep reuses the session
	again, err := f.booth.Shoot(ctx, layout.Single, KeepOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.SessionID != saved.SessionID {
		t.Errorf("expected the active session to be reused")
	}
	sess, _ = f.sessions.Get(ctx, saved.SessionID)
	if sess.PhotoCount != 2 {
		t.Errorf("expected photo count 2, got %d", sess.PhotoCount)
	}
}

func TestAbortedCaptureWritesNothing(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.booth.Capture(ctx, layout.Strip4, func(e capture.Event) {
		if e.Kind == capture.EventCaptured && e.Shot == 2 {
			cancel()
		}
	})
	if !errors.Is(err, util.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	bg := context.Background()
	photos, _ := f.photos.List(bg, 0, 0)
	sessions, _ := f.sessions.List(bg)
	if len(photos) != 0 || len(sessions) != 0 {
		t.Errorf("aborted run left %d photos and %d sessions", len(photos), len(sessions))
	}
	events, err := f.store.ListAnalyticsEvents(bg, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].EventType != string(report.EventCaptureAborted) {
		t.Errorf("expected a single capture_aborted event, got %+v", events)
	}
}

func TestCaptureWithoutCameraIsNotReady(t *testing.T) {
	f := newFixture(t, false)
	if _, err := f.settings.Update(context.Background(), store.SettingsPatch{CountdownDuration: ptr(0)}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.booth.Capture(context.Background(), layout.Single, nil); !errors.Is(err, util.ErrFrameNotReady) {
		t.Fatalf("expected ErrFrameNotReady, got %v", err)
	}
}

func TestKeepUsesSettingsSnapshot(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	pending, err := f.booth.Capture(ctx, layout.Single, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Changes after the run started do not apply to it
	if _, err := f.settings.Update(ctx, store.SettingsPatch{PhotoFormat: ptr("png"), AutoPrint: ptr(true)}); err != nil {
		t.Fatal(err)
	}
	saved, err := f.booth.Keep(ctx, pending, KeepOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(saved.Filepath) != ".jpg" {
		t.Errorf("expected the format snapshot (jpg), got %s", saved.Filepath)
	}
	jobs, _ := f.store.ListPrintJobs(ctx, "")
	if len(jobs) != 0 {
		t.Errorf("auto print was off when the run started, got %d jobs", len(jobs))
	}
}

func TestAutoPrintQueuesJob(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.settings.Update(ctx, store.SettingsPatch{AutoPrint: ptr(true), PrinterID: ptr("dnp-ds620")}); err != nil {
		t.Fatal(err)
	}
	saved, err := f.booth.Shoot(ctx, layout.Single, KeepOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	jobs, err := f.store.ListPrintJobs(ctx, "pending")
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].PhotoID != saved.ID || jobs[0].PrinterID != "dnp-ds620" || jobs[0].Copies != 1 {
		t.Errorf("unexpected print jobs %+v", jobs)
	}
}

func TestKeepWithTemplate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	if _, err := f.templates.ApplyDefaults(ctx); err != nil {
		t.Fatal(err)
	}
	list, _ := f.templates.List(ctx, true)
	var strip *store.Template
	for _, tpl := range list {
		if tpl.LayoutType == layout.Strip4 {
			strip = tpl
		}
	}
	if strip == nil {
		t.Fatal("default strip template missing")
	}

	saved, err := f.booth.Shoot(ctx, layout.Strip4, KeepOptions{TemplateID: strip.ID, Overrides: compose.Overrides{GuestName: "Ada"}}, nil)
	if err != nil {
		t.Fatalf("Shoot failed: %v", err)
	}
	if !saved.HasOverlay || saved.Width != 600 || saved.Height != 1800 {
		t.Errorf("expected templated 600x1800 photo, got %+v", saved)
	}
}

func TestKeepMissingTemplateLeavesNoTrace(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	pending, err := f.booth.Capture(ctx, layout.Single, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.booth.Keep(ctx, pending, KeepOptions{TemplateID: "gone"}); !errors.Is(err, util.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	photos, _ := f.photos.List(ctx, 0, 0)
	sessions, _ := f.sessions.List(ctx)
	if len(photos) != 0 || len(sessions) != 0 {
		t.Errorf("failed keep left %d photos and %d sessions", len(photos), len(sessions))
	}

	f.booth.Discard(pending)
	if _, err := f.booth.Keep(ctx, pending, KeepOptions{}); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected a discarded run to be unkeepable, got %v", err)
	}
}

func TestDeletePhotoRecountsSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	a, err := f.booth.Shoot(ctx, layout.Single, KeepOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.booth.Shoot(ctx, layout.Single, KeepOptions{}, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := f.booth.DeletePhoto(ctx, a.ID); err != nil {
		t.Fatalf("DeletePhoto failed: %v", err)
	}
	sess, _ := f.sessions.Get(ctx, a.SessionID)
	if sess.PhotoCount != 1 {
		t.Errorf("expected count 1 after delete, got %d", sess.PhotoCount)
	}
	if _, err := f.booth.DeletePhoto(ctx, a.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	filtered, err := f.booth.ApplyFilter(ctx, sess.ID, compose.DefaultFilter)
	if !errors.Is(err, util.ErrNotFound) || filtered != nil {
		t.Errorf("expected ErrNotFound filtering a session id, got %v", err)
	}
}

func TestFailedSaveLeavesNoSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.settings.Update(ctx, store.SettingsPatch{SaveDirectory: ptr(filepath.Join(blocker, "photos"))}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.booth.Shoot(ctx, layout.Single, KeepOptions{}, nil); err == nil {
		t.Fatal("expected the save to fail under a regular file")
	}
	photos, _ := f.photos.List(ctx, 0, 0)
	sessions, _ := f.sessions.List(ctx)
	if len(photos) != 0 || len(sessions) != 0 {
		t.Errorf("failed save left %d photos and %d sessions", len(photos), len(sessions))
	}
	counts, _ := f.store.CountAnalyticsByType(ctx)
	if counts[string(report.EventSessionStarted)] != 0 {
		t.Errorf("no session_started event expected, got %d", counts[string(report.EventSessionStarted)])
	}
}

func TestFailedSaveKeepsExistingSession(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	first, err := f.booth.Shoot(ctx, layout.Single, KeepOptions{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := f.settings.Update(ctx, store.SettingsPatch{SaveDirectory: ptr(filepath.Join(blocker, "photos"))}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.booth.Shoot(ctx, layout.Single, KeepOptions{}, nil); err == nil {
		t.Fatal("expected the save to fail under a regular file")
	}
	sess, err := f.sessions.Get(ctx, first.SessionID)
	if err != nil {
		t.Fatalf("the earlier session should survive: %v", err)
	}
	if sess.PhotoCount != 1 {
		t.Errorf("expected photo count 1, got %d", sess.PhotoCount)
	}
}

func TestKeepConsumesPending(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	pending, err := f.booth.Capture(ctx, layout.Single, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.booth.Keep(ctx, pending, KeepOptions{}); err != nil {
		t.Fatalf("Keep failed: %v", err)
	}
	if _, err := f.booth.Keep(ctx, pending, KeepOptions{}); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput keeping twice, got %v", err)
	}
	photos, _ := f.photos.List(ctx, 0, 0)
	if len(photos) != 1 {
		t.Errorf("expected one photo, got %d", len(photos))
	}
}

func TestInterShotDelay(t *testing.T) {
	tests := []struct {
		name  string
		delay *time.Duration
		want  []time.Duration
	}{
		{"default", nil, []time.Duration{capture.DefaultInterShotDelay, capture.DefaultInterShotDelay}},
		{"explicit zero", ptr(time.Duration(0)), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixtureWith(t, true, func(c *Config) { c.InterShotDelay = tt.delay })
			ctx := context.Background()
			if _, err := f.settings.Update(ctx, store.SettingsPatch{CountdownDuration: ptr(0)}); err != nil {
				t.Fatal(err)
			}
			if _, err := f.booth.Capture(ctx, layout.Strip3, nil); err != nil {
				t.Fatalf("Capture failed: %v", err)
			}
			f.clock.mu.Lock()
			defer f.clock.mu.Unlock()
			if len(f.clock.waits) != len(tt.want) {
				t.Fatalf("expected waits %v, got %v", tt.want, f.clock.waits)
			}
			for i := range tt.want {
				if f.clock.waits[i] != tt.want[i] {
					t.Errorf("wait %d = %v, want %v", i, f.clock.waits[i], tt.want[i])
				}
			}
		})
	}
}
