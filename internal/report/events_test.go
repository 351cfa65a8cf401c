package report

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var decoded Event
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("Failed to decode line %d: %v", len(events)+1, err)
		}
		events = append(events, decoded)
	}
	return events
}

func TestNewEventLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewEventLogger(filepath.Join(tmpDir, "events"), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(logger.Path()); os.IsNotExist(err) {
		t.Errorf("Event log file was not created at %s", logger.Path())
	}

	filename := filepath.Base(logger.Path())
	if len(filename) != len("events-20060102-150405.jsonl") {
		t.Errorf("Event log filename format incorrect: %s", filename)
	}
}

func TestEventLogger_PhotoLifecycle(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	p := &store.Photo{ID: "p1", SessionID: "s1", LayoutType: layout.Strip4, Filepath: "/photos/a.jpg", FileSize: 2048}
	logger.LogSessionStarted(&store.Session{ID: "s1", Name: "Party"})
	logger.LogCaptureCompleted("strip-4", 4, 7*time.Second)
	logger.LogPhotoSaved(p)
	logger.LogPhotoDeleted(p)
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d", len(events))
	}

	want := []EventType{EventSessionStarted, EventCaptureCompleted, EventPhotoSaved, EventPhotoDeleted}
	for i, e := range events {
		if e.Event != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], e.Event)
		}
	}
	if events[0].Extra["name"] != "Party" {
		t.Errorf("Expected session name in extra, got %v", events[0].Extra)
	}
	if events[1].Shots != 4 || events[1].Duration != 7000 {
		t.Errorf("Unexpected capture event %+v", events[1])
	}
	if events[2].PhotoID != "p1" || events[2].Bytes != 2048 || events[2].Layout != "strip-4" {
		t.Errorf("Unexpected saved event %+v", events[2])
	}
}

func TestEventLogger_CaptureAborted(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelInfo)
	if err != nil {
		t.Fatal(err)
	}
	logger.LogCaptureAborted("strip-3", 2, util.ErrAborted)
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Level != LevelWarning || events[0].Shots != 2 || events[0].Error == "" {
		t.Errorf("Unexpected abort event %+v", events[0])
	}
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				logger.LogPhotoSaved(&store.Photo{ID: "p"})
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(readEvents(t, logger.Path())); got != 200 {
		t.Errorf("Expected 200 events, got %d", got)
	}
}

func TestEventLogger_LogLevelFiltering(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelWarning)
	if err != nil {
		t.Fatal(err)
	}

	logger.Log(&Event{Level: LevelDebug, Event: EventPhotoSaved})
	logger.Log(&Event{Level: LevelInfo, Event: EventPhotoSaved})
	logger.Log(&Event{Level: LevelWarning, Event: EventCaptureAborted})
	logger.LogError(EventError, "/photos/x.jpg", errors.New("disk full"))
	logger.Close()

	events := readEvents(t, logger.Path())
	if len(events) != 2 {
		t.Fatalf("Expected 2 events at warning and above, got %d", len(events))
	}
	if events[1].Error != "disk full" || events[1].Level != LevelError {
		t.Errorf("Unexpected error event %+v", events[1])
	}
}

func TestEventLogger_AutoTimestamp(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatal(err)
	}
	before := time.Now()
	event := &Event{Level: LevelInfo, Event: EventPhotoSaved}
	logger.Log(event)
	logger.Close()

	if event.Timestamp.Before(before) || event.Timestamp.After(time.Now()) {
		t.Errorf("Timestamp %v not stamped at log time", event.Timestamp)
	}
}

func TestEventLogger_NullLogger(t *testing.T) {
	logger := NullLogger()

	if err := logger.LogPhotoSaved(&store.Photo{ID: "p"}); err != nil {
		t.Errorf("NullLogger should not error: %v", err)
	}
	logger.SetSink(nil)
	if err := logger.Close(); err != nil {
		t.Errorf("NullLogger Close should not error: %v", err)
	}
	if logger.Path() != "" {
		t.Errorf("NullLogger path should be empty")
	}
}

func TestEventLogger_AnalyticsSink(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "booth.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	logger := NewSinkLogger(db, LevelInfo)
	logger.LogSessionExported("s1", "/exports/session_s1.zip", 3, 4096, time.Second)
	logger.Log(&Event{Level: LevelDebug, Event: EventPhotoSaved})

	events, err := db.ListAnalyticsEvents(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 analytics row, got %d", len(events))
	}
	if events[0].EventType != string(EventSessionExported) {
		t.Errorf("Unexpected event type %s", events[0].EventType)
	}

	var decoded Event
	if err := json.Unmarshal([]byte(events[0].EventData), &decoded); err != nil {
		t.Fatalf("analytics payload is not JSON: %v", err)
	}
	if decoded.Extra["files"] != "3" || decoded.Path != "/exports/session_s1.zip" {
		t.Errorf("Unexpected analytics payload %+v", decoded)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want EventLevel
	}{
		{"", LevelInfo},
		{"debug", LevelDebug},
		{"warn", LevelWarning},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, %v", tt.in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
