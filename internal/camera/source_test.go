package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/photobooth/internal/util"
)

func TestSelectDevice(t *testing.T) {
	devices := []Device{
		{ID: "v", Label: "OBS Virtual Camera"},
		{ID: "h", Label: "HitPaw Webcam"},
		{ID: "usb", Label: "USB Camera"},
	}

	tests := []struct {
		name      string
		devices   []Device
		preferred string
		want      string
	}{
		{"preferred present", devices, "usb", "usb"},
		{"preferred excluded", devices, "v", "usb"},
		{"preferred missing", devices, "gone", "usb"},
		{"all excluded falls back to first", devices[:2], "", "v"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectDevice(tt.devices, tt.preferred, DefaultExclude)
			if err != nil {
				t.Fatalf("SelectDevice failed: %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.ID)
			}
		})
	}

	if _, err := SelectDevice(nil, "", nil); !errors.Is(err, util.ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}

// manualDriver hands out a stream whose frames the test pushes by hand
type manualDriver struct {
	devices []Device
	opened  []Device
	stream  *manualStream
	openErr error
}

type manualStream struct {
	frames chan image.Image
	closed bool
}

func (m *manualStream) Frames() <-chan image.Image { return m.frames }
func (m *manualStream) Close() error {
	if !m.closed {
		m.closed = true
		close(m.frames)
	}
	return nil
}

func (d *manualDriver) Devices(ctx context.Context) ([]Device, error) { return d.devices, nil }

func (d *manualDriver) Open(ctx context.Context, dev Device, w, h int) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened = append(d.opened, dev)
	d.stream = &manualStream{frames: make(chan image.Image)}
	return d.stream, nil
}

func TestSourceNotReadyUntilFirstFrame(t *testing.T) {
	driver := &manualDriver{devices: []Device{{ID: "cam", Label: "Cam"}}}
	src := NewSource(driver)

	if _, err := src.ReadFrame(); !errors.Is(err, util.ErrFrameNotReady) {
		t.Fatalf("expected not ready before start, got %v", err)
	}

	if _, err := src.Start(context.Background(), Config{Width: 8, Height: 8}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Stop()

	if _, err := src.ReadFrame(); !errors.Is(err, util.ErrFrameNotReady) {
		t.Fatalf("expected not ready before first frame, got %v", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 8, 8))
	driver.stream.frames <- frame

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := src.WaitFrame(ctx); err != nil {
		t.Fatalf("frame never became readable: %v", err)
	}
	got, err := src.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds() != frame.Bounds() {
		t.Errorf("unexpected frame bounds %v", got.Bounds())
	}

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	src.Stop()
	if err := src.WaitFrame(short); !errors.Is(err, util.ErrFrameNotReady) {
		t.Errorf("expected ErrFrameNotReady after stop, got %v", err)
	}
}

func TestSourceStopReleasesDevice(t *testing.T) {
	driver := &manualDriver{devices: []Device{{ID: "cam", Label: "Cam"}}}
	src := NewSource(driver)

	if _, err := src.Start(context.Background(), Config{}); err != nil {
		t.Fatal(err)
	}
	first := driver.stream
	if _, err := src.Start(context.Background(), Config{}); err != nil {
		t.Fatal(err)
	}
	if !first.closed {
		t.Error("restart should close the previous stream")
	}
	if err := src.Stop(); err != nil {
		t.Fatal(err)
	}
	if !driver.stream.closed {
		t.Error("stop should close the stream")
	}
	if _, ok := src.Device(); ok {
		t.Error("no device should be held after stop")
	}
	if err := src.Stop(); err != nil {
		t.Errorf("second stop should be a no-op: %v", err)
	}
}

func TestSourceOpenFailureIsDeviceUnavailable(t *testing.T) {
	driver := &manualDriver{devices: []Device{{ID: "cam", Label: "Cam"}}, openErr: errors.New("permission denied")}
	src := NewSource(driver)
	if _, err := src.Start(context.Background(), Config{}); !errors.Is(err, util.ErrDeviceUnavailable) {
		t.Errorf("expected ErrDeviceUnavailable, got %v", err)
	}
}

func TestPatternDriverDeliversFrames(t *testing.T) {
	src := NewSource(&PatternDriver{Interval: 5 * time.Millisecond})
	dev, err := src.Start(context.Background(), Config{Width: 70, Height: 10})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Stop()
	if dev.Label != "Test Pattern" {
		t.Errorf("unexpected device %+v", dev)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		frame, err := src.ReadFrame()
		if err == nil {
			if frame.Bounds().Dx() != 70 || frame.Bounds().Dy() != 10 {
				t.Errorf("unexpected frame size %v", frame.Bounds())
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("pattern driver never produced a frame")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHotFolderDevicesAndInitialFrame(t *testing.T) {
	root := t.TempDir()
	camDir := filepath.Join(root, "booth-cam")
	if err := os.Mkdir(camDir, 0o755); err != nil {
		t.Fatal(err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.SetRGBA(0, 0, color.RGBA{255, 0, 0, 255})
	f, err := os.Create(filepath.Join(camDir, "frame.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	driver := &HotFolderDriver{Root: root}
	devices, err := driver.Devices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 1 || devices[0].Label != "booth-cam" {
		t.Fatalf("unexpected devices %+v", devices)
	}

	src := NewSource(driver)
	if _, err := src.Start(context.Background(), Config{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer src.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for {
		frame, err := src.ReadFrame()
		if err == nil {
			if frame.Bounds().Dx() != 4 || frame.Bounds().Dy() != 3 {
				t.Errorf("unexpected frame size %v", frame.Bounds())
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("hot folder never delivered the existing frame")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
