// Package booth wires the camera, sequencer, compositor and services into
// the capture pipeline: start the camera, run a capture, then keep or
// discard the result.
package booth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

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

// Config holds the collaborators of a Booth
type Config struct {
	Store          *store.Store
	Settings       *settings.Service
	Photos         *photo.Service
	Sessions       *session.Service
	Templates      *templates.Service
	Compositor     *compose.Compositor
	Source         *camera.Source
	Clock          capture.Clock
	Events         *report.EventLogger
	Exclude        []string
	InterShotDelay *time.Duration
}

// Booth runs the capture pipeline. One capture runs at a time.
type Booth struct {
	store      *store.Store
	settings   *settings.Service
	photos     *photo.Service
	sessions   *session.Service
	templates  *templates.Service
	compositor *compose.Compositor
	source     *camera.Source
	sequencer  *capture.Sequencer
	clock      capture.Clock
	events     *report.EventLogger
	exclude    []string
	interShot  time.Duration

	running sync.Mutex
}

// New returns a booth. A nil InterShotDelay uses the sequencer default;
// a nil Exclude uses camera.DefaultExclude.
func New(cfg Config) *Booth {
	clock := cfg.Clock
	if clock == nil {
		clock = capture.RealClock
	}
	exclude := cfg.Exclude
	if exclude == nil {
		exclude = camera.DefaultExclude
	}
	interShot := capture.DefaultInterShotDelay
	if cfg.InterShotDelay != nil {
		interShot = *cfg.InterShotDelay
	}
	return &Booth{
		store:      cfg.Store,
		settings:   cfg.Settings,
		photos:     cfg.Photos,
		sessions:   cfg.Sessions,
		templates:  cfg.Templates,
		compositor: cfg.Compositor,
		source:     cfg.Source,
		sequencer:  capture.NewSequencer(cfg.Source, clock),
		clock:      clock,
		events:     cfg.Events,
		exclude:    exclude,
		interShot:  interShot,
	}
}

// Pending is a completed capture run that has not been kept yet. Nothing
// of it is on disk or in the database.
type Pending struct {
	Batch    *capture.Batch
	Settings *store.Settings
	Device   camera.Device
}

// StartCamera opens the configured device at the configured resolution
func (b *Booth) StartCamera(ctx context.Context) (camera.Device, error) {
	st, err := b.settings.Get(ctx)
	if err != nil {
		return camera.Device{}, err
	}
	w, h, err := settings.ParseResolution(st.Resolution)
	if err != nil {
		return camera.Device{}, err
	}
	dev, err := b.source.Start(ctx, camera.Config{
		DeviceID: st.CameraDeviceID,
		Width:    w,
		Height:   h,
		Exclude:  b.exclude,
	})
	if err != nil {
		b.events.LogError(report.EventError, "", err)
		return camera.Device{}, err
	}
	util.InfoLog("Camera: %s", dev.Label)
	return dev, nil
}

// WaitReady blocks until the camera delivers its first frame
func (b *Booth) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return b.source.WaitFrame(ctx)
}

// StopCamera releases the device
func (b *Booth) StopCamera() error {
	return b.source.Stop()
}

// Capture runs one capture sequence. The settings are read once when the
// run starts and govern the whole run and the later Keep. Cancelling ctx
// aborts the run and discards every shot.
func (b *Booth) Capture(ctx context.Context, l layout.Layout, onEvent func(capture.Event)) (*Pending, error) {
	if !b.running.TryLock() {
		return nil, util.ErrBusy
	}
	defer b.running.Unlock()

	st, err := b.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	dev, _ := b.source.Device()

	var shots int
	opts := capture.Options{
		Countdown:      st.CountdownDuration,
		Flash:          st.EnableFlash,
		Sound:          st.EnableSound,
		InterShotDelay: b.interShot,
		OnEvent: func(e capture.Event) {
			if e.Kind == capture.EventCaptured {
				shots = e.Shot
			}
			if onEvent != nil {
				onEvent(e)
			}
		},
	}

	batch, err := b.sequencer.Run(ctx, l, opts)
	if err != nil {
		if errors.Is(err, util.ErrAborted) || errors.Is(err, util.ErrFrameNotReady) {
			b.events.LogCaptureAborted(string(l), shots, err)
		}
		return nil, err
	}
	b.events.LogCaptureCompleted(string(l), len(batch.Shots), batch.FinishedAt.Sub(batch.StartedAt))
	return &Pending{Batch: batch, Settings: st, Device: dev}, nil
}

// KeepOptions selects an optional template for Keep
type KeepOptions struct {
	TemplateID string
	Overrides  compose.Overrides
}

// Keep composes a pending run, attaches it to the active session (creating
// one if needed), saves it and refreshes the session's count. With
// auto-print on, a print job is queued for the saved photo. A pending run
// can be kept once; a session created for a failed save is removed again.
func (b *Booth) Keep(ctx context.Context, p *Pending, opts KeepOptions) (*store.Photo, error) {
	if p == nil || p.Batch == nil {
		return nil, fmt.Errorf("nothing to keep: %w", util.ErrInvalidInput)
	}

	res, err := b.compositor.Compose(ctx, compose.Request{
		Layout:     p.Batch.Layout,
		Frames:     p.Batch.Images(),
		TemplateID: opts.TemplateID,
		Overrides:  opts.Overrides,
	})
	if err != nil {
		return nil, err
	}

	sess, created, err := b.sessions.ActiveOrCreate(ctx)
	if err != nil {
		return nil, err
	}

	var meta any = b.captureMetadata(p)
	if res.Template != nil {
		meta = photo.TemplateMetadata{
			TemplateID:   res.Template.ID,
			TemplateName: res.Template.Name,
			Overrides:    opts.Overrides,
			AppliedAt:    b.clock.Now().UTC(),
		}
	}
	saved, err := b.photos.Save(ctx, photo.SaveInput{
		Image:     res.Image,
		SessionID: sess.ID,
		Layout:    p.Batch.Layout,
		Settings:  p.Settings,
		Metadata:  meta,
	})
	if err != nil {
		if created {
			// the session only existed for this photo
			if derr := b.store.DeleteSessionWithPhotos(ctx, sess.ID); derr != nil {
				util.WarnLog("Failed to remove empty session %s: %v", sess.ID, derr)
			}
		}
		return nil, err
	}
	p.Batch = nil
	if created {
		b.events.LogSessionStarted(sess)
	}

	if _, err := b.sessions.UpdatePhotoCount(ctx, sess.ID); err != nil {
		return saved, err
	}

	if p.Settings.AutoPrint {
		if err := b.store.InsertPrintJob(ctx, &store.PrintJob{
			ID:        uuid.NewString(),
			PhotoID:   saved.ID,
			PrinterID: p.Settings.PrinterID,
		}); err != nil {
			return saved, err
		}
		util.DebugLog("Queued print of %s", saved.Filename)
	}

	b.events.LogPhotoSaved(saved)
	if res.Template != nil {
		b.events.LogTemplateApplied("", res.Template.ID, saved)
	}
	return saved, nil
}

func (b *Booth) captureMetadata(p *Pending) photo.CaptureMetadata {
	times := make([]time.Time, len(p.Batch.Shots))
	for i, s := range p.Batch.Shots {
		times[i] = s.CapturedAt.UTC()
	}
	return photo.CaptureMetadata{
		Timestamp:  p.Batch.FinishedAt.UTC(),
		PhotoCount: len(p.Batch.Shots),
		ShotTimes:  times,
		Device:     p.Device.Label,
	}
}

// Discard drops a pending run. Nothing was persisted for it.
func (b *Booth) Discard(p *Pending) {
	if p == nil || p.Batch == nil {
		return
	}
	util.DebugLog("Discarded %s run with %d shots", p.Batch.Layout, len(p.Batch.Shots))
	p.Batch = nil
}

// Shoot runs a capture and keeps it
func (b *Booth) Shoot(ctx context.Context, l layout.Layout, opts KeepOptions, onEvent func(capture.Event)) (*store.Photo, error) {
	p, err := b.Capture(ctx, l, onEvent)
	if err != nil {
		return nil, err
	}
	return b.Keep(ctx, p, opts)
}
