package camera

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"
)

// PatternDriver produces synthetic colour-bar frames. Each device renders a
// distinct hue so strips built from different devices are distinguishable.
type PatternDriver struct {
	Labels   []string      // device labels; one "Test Pattern" device when empty
	Interval time.Duration // frame interval, ~15 fps when zero
}

var barColors = []color.RGBA{
	{255, 255, 255, 255},
	{255, 255, 0, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
	{255, 0, 255, 255},
	{255, 0, 0, 255},
	{0, 0, 255, 255},
}

// Devices lists one device per label
func (d *PatternDriver) Devices(ctx context.Context) ([]Device, error) {
	labels := d.Labels
	if len(labels) == 0 {
		labels = []string{"Test Pattern"}
	}
	devices := make([]Device, len(labels))
	for i, l := range labels {
		devices[i] = Device{ID: fmt.Sprintf("pattern-%d", i), Label: l}
	}
	return devices, nil
}

// Open starts a ticker that emits a new frame every interval
func (d *PatternDriver) Open(ctx context.Context, dev Device, width, height int) (Stream, error) {
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}
	interval := d.Interval
	if interval <= 0 {
		interval = time.Second / 15
	}

	ps := &patternStream{
		frames: make(chan image.Image, 1),
		stop:   make(chan struct{}),
	}
	go ps.run(width, height, interval)
	return ps, nil
}

type patternStream struct {
	frames chan image.Image
	stop   chan struct{}
	once   sync.Once
}

func (p *patternStream) Frames() <-chan image.Image { return p.frames }

func (p *patternStream) Close() error {
	p.once.Do(func() { close(p.stop) })
	return nil
}

func (p *patternStream) run(width, height int, interval time.Duration) {
	defer close(p.frames)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		frame := PatternFrame(width, height, n)
		select {
		case p.frames <- frame:
		case <-p.stop:
			return
		}
		select {
		case <-ticker.C:
		case <-p.stop:
			return
		}
	}
}

// PatternFrame renders vertical colour bars shifted by offset columns
func PatternFrame(width, height, offset int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	barWidth := width / len(barColors)
	if barWidth == 0 {
		barWidth = 1
	}
	for x := 0; x < width; x++ {
		c := barColors[((x/barWidth)+offset)%len(barColors)]
		for y := 0; y < height; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
