package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a photo, session, template or group id does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a caller supplied an unusable value
	ErrInvalidInput = errors.New("invalid input")

	// ErrDeviceUnavailable indicates the frame source could not be opened.
	// The caller may retry after fixing the device.
	ErrDeviceUnavailable = errors.New("camera device unavailable")

	// ErrFrameNotReady indicates no frame has been delivered yet
	ErrFrameNotReady = errors.New("frame source not ready")

	// ErrAborted indicates a capture run was cancelled before completion
	ErrAborted = errors.New("capture aborted")

	// ErrTemplateNotFound indicates a composition referenced a missing template
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMalformedOverlay indicates stored overlay data could not be used
	ErrMalformedOverlay = errors.New("malformed overlay data")

	// ErrBusy indicates a capture run is already in progress
	ErrBusy = errors.New("capture already running")

	// ErrEmptySession indicates a session has no photos to export
	ErrEmptySession = errors.New("session has no photos")
)
