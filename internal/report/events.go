package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// EventType represents the type of event
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventCaptureCompleted EventType = "capture_completed"
	EventCaptureAborted   EventType = "capture_aborted"
	EventPhotoSaved       EventType = "photo_saved"
	EventPhotoDeleted     EventType = "photo_deleted"
	EventTemplateApplied  EventType = "template_applied"
	EventFilterApplied    EventType = "filter_applied"
	EventSessionExported  EventType = "session_exported"
	EventError            EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel converts a config value into an EventLevel
func ParseLevel(s string) (EventLevel, error) {
	switch s {
	case "":
		return LevelInfo, nil
	case "warn":
		return LevelWarning, nil
	}
	l := EventLevel(s)
	if _, ok := levelPriority[l]; !ok {
		return "", fmt.Errorf("unknown event level %q: %w", s, util.ErrInvalidInput)
	}
	return l, nil
}

// Event represents a single booth event
type Event struct {
	Timestamp  time.Time         `json:"ts"`
	Level      EventLevel        `json:"level"`
	Event      EventType         `json:"event"`
	SessionID  string            `json:"session_id,omitempty"`
	PhotoID    string            `json:"photo_id,omitempty"`
	SourceID   string            `json:"source_photo_id,omitempty"`
	TemplateID string            `json:"template_id,omitempty"`
	Layout     string            `json:"layout,omitempty"`
	Path       string            `json:"path,omitempty"`
	Shots      int               `json:"shots,omitempty"`
	Bytes      int64             `json:"bytes,omitempty"`
	Duration   int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error      string            `json:"error,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Sink receives every logged event in addition to the JSONL file.
// *store.Store satisfies it through the analytics_events table.
type Sink interface {
	InsertAnalyticsEvent(ctx context.Context, eventType, data string, at time.Time) error
}

// EventLogger writes events to a JSONL file and an optional sink
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
	sink     Sink
}

// NewEventLogger creates a new event logger with a minimum log level.
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	// Append so two loggers started in the same second share one file
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// NewSinkLogger returns a logger that only feeds sink
func NewSinkLogger(sink Sink, minLevel EventLevel) *EventLogger {
	return &EventLogger{sink: sink, minLevel: minLevel}
}

// SetSink attaches a sink to the logger
func (l *EventLogger) SetSink(sink Sink) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// Log writes an event to the JSONL file and the sink
func (l *EventLogger) Log(event *Event) error {
	if l == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if l.encoder != nil {
		if err := l.encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}

	if l.sink != nil {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		if err := l.sink.InsertAnalyticsEvent(context.Background(), string(event.Event), string(data), event.Timestamp); err != nil {
			return fmt.Errorf("failed to record analytics event: %w", err)
		}
	}

	return nil
}

// LogSessionStarted logs a new session
func (l *EventLogger) LogSessionStarted(sess *store.Session) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventSessionStarted,
		SessionID: sess.ID,
		Extra:     map[string]string{"name": sess.Name},
	})
}

// LogCaptureCompleted logs a finished capture run
func (l *EventLogger) LogCaptureCompleted(layout string, shots int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventCaptureCompleted,
		Layout:   layout,
		Shots:    shots,
		Duration: duration.Milliseconds(),
	})
}

// LogCaptureAborted logs a run that ended early. shots is how many frames
// were grabbed and discarded.
func (l *EventLogger) LogCaptureAborted(layout string, shots int, err error) error {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return l.Log(&Event{
		Level:  LevelWarning,
		Event:  EventCaptureAborted,
		Layout: layout,
		Shots:  shots,
		Error:  errMsg,
	})
}

// LogPhotoSaved logs a persisted photo
func (l *EventLogger) LogPhotoSaved(p *store.Photo) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventPhotoSaved,
		SessionID: p.SessionID,
		PhotoID:   p.ID,
		Layout:    string(p.LayoutType),
		Path:      p.Filepath,
		Bytes:     p.FileSize,
	})
}

// LogPhotoDeleted logs a removed photo
func (l *EventLogger) LogPhotoDeleted(p *store.Photo) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventPhotoDeleted,
		SessionID: p.SessionID,
		PhotoID:   p.ID,
		Path:      p.Filepath,
	})
}

// LogTemplateApplied logs a templated copy of sourceID
func (l *EventLogger) LogTemplateApplied(sourceID, templateID string, p *store.Photo) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventTemplateApplied,
		SessionID:  p.SessionID,
		PhotoID:    p.ID,
		SourceID:   sourceID,
		TemplateID: templateID,
	})
}

// LogFilterApplied logs a filtered copy of sourceID
func (l *EventLogger) LogFilterApplied(sourceID, filter string, p *store.Photo) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventFilterApplied,
		SessionID: p.SessionID,
		PhotoID:   p.ID,
		SourceID:  sourceID,
		Extra:     map[string]string{"filter": filter},
	})
}

// LogSessionExported logs a finished export
func (l *EventLogger) LogSessionExported(sessionID, path string, files int, bytes int64, duration time.Duration) error {
	return l.Log(&Event{
		Level:     LevelInfo,
		Event:     EventSessionExported,
		SessionID: sessionID,
		Path:      path,
		Bytes:     bytes,
		Duration:  duration.Milliseconds(),
		Extra:     map[string]string{"files": fmt.Sprintf("%d", files)},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Path:  path,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
