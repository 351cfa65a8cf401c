// Package capture drives the countdown and shutter sequence for one capture
// run. Timing goes through a Clock so that tests control every suspension.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/util"
)

// State of the sequencer
type State int

const (
	Idle State = iota
	Countdown
	Shutter
	Captured
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Countdown:
		return "countdown"
	case Shutter:
		return "shutter"
	case Captured:
		return "captured"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// EventKind identifies what an Event reports
type EventKind int

const (
	EventState EventKind = iota
	EventTick
	EventFlash
	EventShutterSound
	EventCaptured
	EventInterShot
)

// Event is emitted synchronously to the Options.OnEvent callback
type Event struct {
	Kind      EventKind
	State     State
	Shot      int // 1-based shot index
	Shots     int
	Remaining int // countdown value for EventTick
}

// Clock schedules the timed suspensions of a run
type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (realClock) Now() time.Time                         { return time.Now() }

// RealClock is the wall clock
var RealClock Clock = realClock{}

// FrameReader yields the current frame synchronously
type FrameReader interface {
	ReadFrame() (image.Image, error)
}

// Options is a snapshot of the settings that govern one run
type Options struct {
	Countdown      int           // seconds; 0 skips the countdown
	Flash          bool          // emit EventFlash before each grab
	Sound          bool          // emit EventShutterSound before each grab
	InterShotDelay time.Duration // pause between shots of a multi-shot layout
	OnEvent        func(Event)
}

// DefaultInterShotDelay gives the subject time to change pose
const DefaultInterShotDelay = 1500 * time.Millisecond

// Shot is one in-memory capture
type Shot struct {
	Image      image.Image
	CapturedAt time.Time
}

// Batch is the complete, ordered result of a run
type Batch struct {
	Layout     layout.Layout
	Shots      []Shot
	StartedAt  time.Time
	FinishedAt time.Time
}

// Images returns the shot bitmaps in capture order
func (b *Batch) Images() []image.Image {
	out := make([]image.Image, len(b.Shots))
	for i, s := range b.Shots {
		out[i] = s.Image
	}
	return out
}

// Sequencer runs capture sequences against a frame reader
type Sequencer struct {
	frames FrameReader
	clock  Clock
	state  State
}

// NewSequencer returns an idle sequencer. A nil clock uses RealClock.
func NewSequencer(frames FrameReader, clock Clock) *Sequencer {
	if clock == nil {
		clock = RealClock
	}
	return &Sequencer{frames: frames, clock: clock}
}

// State returns the current state
func (s *Sequencer) State() State { return s.state }

// Run captures ShotCount(l) frames in order. Cancelling ctx during a
// countdown or between shots returns util.ErrAborted and discards every
// capture of the run. A frame that is not ready aborts the run with
// util.ErrFrameNotReady. The sequencer is Idle again when Run returns.
func (s *Sequencer) Run(ctx context.Context, l layout.Layout, opts Options) (*Batch, error) {
	l, err := layout.ParseCapturable(string(l))
	if err != nil {
		return nil, err
	}
	if opts.Countdown < 0 {
		return nil, fmt.Errorf("countdown must be >= 0: %w", util.ErrInvalidInput)
	}

	shots := l.ShotCount()
	batch := &Batch{Layout: l, StartedAt: s.clock.Now()}
	defer s.transition(Idle, 0, shots, opts)

	for shot := 1; shot <= shots; shot++ {
		if err := s.countdown(ctx, shot, shots, opts); err != nil {
			return nil, err
		}

		s.transition(Shutter, shot, shots, opts)
		if opts.Flash {
			emit(opts, Event{Kind: EventFlash, State: Shutter, Shot: shot, Shots: shots})
		}
		if opts.Sound {
			emit(opts, Event{Kind: EventShutterSound, State: Shutter, Shot: shot, Shots: shots})
		}

		frame, err := s.frames.ReadFrame()
		if err != nil {
			if errors.Is(err, util.ErrFrameNotReady) {
				return nil, fmt.Errorf("shot %d of %d: %w", shot, shots, err)
			}
			return nil, fmt.Errorf("shot %d of %d: %v: %w", shot, shots, err, util.ErrFrameNotReady)
		}
		batch.Shots = append(batch.Shots, Shot{Image: frame, CapturedAt: s.clock.Now()})

		s.transition(Captured, shot, shots, opts)
		emit(opts, Event{Kind: EventCaptured, State: Captured, Shot: shot, Shots: shots})

		if shot < shots {
			emit(opts, Event{Kind: EventInterShot, State: Captured, Shot: shot, Shots: shots})
			if err := s.wait(ctx, opts.InterShotDelay); err != nil {
				return nil, err
			}
		}
	}

	batch.FinishedAt = s.clock.Now()
	return batch, nil
}

func (s *Sequencer) countdown(ctx context.Context, shot, shots int, opts Options) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrAborted, err)
	}
	if opts.Countdown == 0 {
		return nil
	}
	s.transition(Countdown, shot, shots, opts)
	for n := opts.Countdown; n >= 1; n-- {
		emit(opts, Event{Kind: EventTick, State: Countdown, Shot: shot, Shots: shots, Remaining: n})
		if err := s.wait(ctx, time.Second); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", util.ErrAborted, err)
		}
		return nil
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", util.ErrAborted, ctx.Err())
	case <-s.clock.After(d):
		return nil
	}
}

func (s *Sequencer) transition(to State, shot, shots int, opts Options) {
	if s.state == to {
		return
	}
	s.state = to
	emit(opts, Event{Kind: EventState, State: to, Shot: shot, Shots: shots})
}

func emit(opts Options, e Event) {
	if opts.OnEvent != nil {
		opts.OnEvent(e)
	}
}
