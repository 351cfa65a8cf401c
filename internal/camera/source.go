// Package camera abstracts a continuous frame provider. The capture pipeline
// pulls the latest frame on demand and never negotiates devices itself.
package camera

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/franz/photobooth/internal/util"
)

// Device is one enumerable capture device
type Device struct {
	ID    string
	Label string
}

// Stream delivers frames until Close is called. Frames must be closed by the
// driver when the stream ends.
type Stream interface {
	Frames() <-chan image.Image
	Close() error
}

// Driver enumerates and opens devices of one kind
type Driver interface {
	Devices(ctx context.Context) ([]Device, error)
	Open(ctx context.Context, dev Device, width, height int) (Stream, error)
}

// DefaultExclude matches virtual and loopback cameras that should not be
// chosen automatically
var DefaultExclude = []string{"virtual", "hitpaw"}

// Config selects and sizes the stream for one Start call
type Config struct {
	DeviceID string   // preferred device, may be empty
	Width    int      // requested frame width
	Height   int      // requested frame height
	Exclude  []string // case-insensitive label substrings to avoid
}

// Source owns at most one running stream and keeps its latest frame
type Source struct {
	driver Driver

	mu     sync.Mutex
	stream Stream
	device Device
	latest image.Image
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSource returns a stopped source backed by driver
func NewSource(driver Driver) *Source {
	return &Source{driver: driver}
}

// Start enumerates devices once, picks one and begins pumping frames from
// it. A running stream is stopped first. Device failures wrap
// util.ErrDeviceUnavailable.
func (s *Source) Start(ctx context.Context, cfg Config) (Device, error) {
	s.Stop()

	devices, err := s.driver.Devices(ctx)
	if err != nil {
		return Device{}, fmt.Errorf("failed to enumerate devices: %v: %w", err, util.ErrDeviceUnavailable)
	}
	dev, err := SelectDevice(devices, cfg.DeviceID, cfg.Exclude)
	if err != nil {
		return Device{}, err
	}

	stream, err := s.driver.Open(ctx, dev, cfg.Width, cfg.Height)
	if err != nil {
		return Device{}, fmt.Errorf("failed to open %s: %v: %w", dev.Label, err, util.ErrDeviceUnavailable)
	}

	pumpCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.stream = stream
	s.device = dev
	s.latest = nil
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.pump(pumpCtx, stream.Frames(), done)

	util.DebugLog("Camera started: %s (%dx%d)", dev.Label, cfg.Width, cfg.Height)
	return dev, nil
}

func (s *Source) pump(ctx context.Context, frames <-chan image.Image, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			s.mu.Lock()
			s.latest = frame
			s.mu.Unlock()
		}
	}
}

// ReadFrame returns the most recent frame. It fails with
// util.ErrFrameNotReady until the first frame has arrived.
func (s *Source) ReadFrame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == nil {
		return nil, fmt.Errorf("camera not started: %w", util.ErrFrameNotReady)
	}
	if s.latest == nil {
		return nil, util.ErrFrameNotReady
	}
	return s.latest, nil
}

// WaitFrame blocks until the first frame of the running stream has arrived
// or ctx is done
func (s *Source) WaitFrame(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := s.ReadFrame(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for first frame: %v: %w", ctx.Err(), util.ErrFrameNotReady)
		case <-ticker.C:
		}
	}
}

// Device returns the device of the running stream
func (s *Source) Device() (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device, s.stream != nil
}

// Stop releases the device. Stopping a stopped source is a no-op.
func (s *Source) Stop() error {
	s.mu.Lock()
	stream, cancel, done := s.stream, s.cancel, s.done
	s.stream, s.cancel, s.done, s.latest = nil, nil, nil, nil
	s.device = Device{}
	s.mu.Unlock()

	if stream == nil {
		return nil
	}
	cancel()
	err := stream.Close()
	<-done
	return err
}

// SelectDevice picks preferred when present and not excluded, else the
// first device that is not excluded, else the first device at all.
func SelectDevice(devices []Device, preferred string, exclude []string) (Device, error) {
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("no capture devices found: %w", util.ErrDeviceUnavailable)
	}

	if preferred != "" {
		for _, d := range devices {
			if d.ID == preferred && !IsExcluded(d, exclude) {
				return d, nil
			}
		}
	}
	for _, d := range devices {
		if !IsExcluded(d, exclude) {
			return d, nil
		}
	}
	return devices[0], nil
}

// IsExcluded reports whether the device label contains any pattern
func IsExcluded(d Device, patterns []string) bool {
	label := strings.ToLower(d.Label)
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(label, p) {
			return true
		}
	}
	return false
}
