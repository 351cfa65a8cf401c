package photo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/franz/photobooth/internal/compose"
)

// MetadataKind tags the producer of a photo's metadata blob
type MetadataKind string

const (
	KindCapture  MetadataKind = "capture"
	KindFilter   MetadataKind = "filter"
	KindTemplate MetadataKind = "template"
)

// CaptureMetadata is written for photos kept from a capture run
type CaptureMetadata struct {
	Kind       MetadataKind `json:"kind"`
	Timestamp  time.Time    `json:"timestamp"`
	PhotoCount int          `json:"photoCount"`
	ShotTimes  []time.Time  `json:"shotTimes,omitempty"`
	Device     string       `json:"device,omitempty"`
}

// FilterMetadata links a filtered copy to its original
type FilterMetadata struct {
	Kind            MetadataKind   `json:"kind"`
	OriginalPhotoID string         `json:"originalPhotoId"`
	Filter          compose.Filter `json:"filter"`
	AppliedAt       time.Time      `json:"appliedAt"`
}

// TemplateMetadata records which template produced a photo
type TemplateMetadata struct {
	Kind            MetadataKind      `json:"kind"`
	OriginalPhotoID string            `json:"originalPhotoId,omitempty"`
	TemplateID      string            `json:"templateId"`
	TemplateName    string            `json:"templateName,omitempty"`
	Overrides       compose.Overrides `json:"overrides,omitempty"`
	AppliedAt       time.Time         `json:"appliedAt"`
}

// EncodeMetadata serializes a metadata value. Typed views get their kind
// filled in; a string is stored as is; nil stores nothing.
func EncodeMetadata(v any) (string, error) {
	switch m := v.(type) {
	case nil:
		return "", nil
	case string:
		return m, nil
	case CaptureMetadata:
		m.Kind = KindCapture
		v = m
	case *CaptureMetadata:
		m.Kind = KindCapture
	case FilterMetadata:
		m.Kind = KindFilter
		v = m
	case *FilterMetadata:
		m.Kind = KindFilter
	case TemplateMetadata:
		m.Kind = KindTemplate
		v = m
	case *TemplateMetadata:
		m.Kind = KindTemplate
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}

// DecodeMetadata returns the typed view for a stored blob: one of
// *CaptureMetadata, *FilterMetadata, *TemplateMetadata, or a generic map
// for blobs without a known kind. Empty input returns nil.
func DecodeMetadata(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	var probe struct {
		Kind MetadataKind `json:"kind"`
	}
	if err := json.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	var v any
	switch probe.Kind {
	case KindCapture:
		v = &CaptureMetadata{}
	case KindFilter:
		v = &FilterMetadata{}
	case KindTemplate:
		v = &TemplateMetadata{}
	default:
		v = &map[string]any{}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return nil, fmt.Errorf("failed to decode %s metadata: %w", probe.Kind, err)
	}
	if m, ok := v.(*map[string]any); ok {
		return *m, nil
	}
	return v, nil
}

func metadataFlags(v any) (overlay, filter bool) {
	switch v.(type) {
	case TemplateMetadata, *TemplateMetadata:
		return true, false
	case FilterMetadata, *FilterMetadata:
		return false, true
	}
	return false, false
}
