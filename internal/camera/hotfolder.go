package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decoders for tethered-camera output
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/franz/photobooth/internal/util"
)

// HotFolderDriver treats directories as cameras. Each sub-directory of Root
// is a device, or Root itself when it has none. A stream decodes every JPEG
// or PNG that is created or rewritten in its directory.
type HotFolderDriver struct {
	Root string
}

// Devices lists the sub-directories of Root
func (d *HotFolderDriver) Devices(ctx context.Context) ([]Device, error) {
	if d.Root == "" {
		return nil, fmt.Errorf("hot folder root not configured")
	}
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read hot folder: %w", err)
	}

	var devices []Device
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			devices = append(devices, Device{ID: filepath.Join(d.Root, e.Name()), Label: e.Name()})
		}
	}
	if len(devices) == 0 {
		devices = append(devices, Device{ID: d.Root, Label: filepath.Base(d.Root)})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Label < devices[j].Label })
	return devices, nil
}

// Open watches the device directory. The newest existing image, if any, is
// delivered immediately. Width and height are ignored; frames are delivered
// at whatever size the producer writes.
func (d *HotFolderDriver) Open(ctx context.Context, dev Device, width, height int) (Stream, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dev.ID); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dev.ID, err)
	}

	hs := &hotFolderStream{
		watcher: watcher,
		frames:  make(chan image.Image, 1),
		stop:    make(chan struct{}),
	}
	initial := newestImage(dev.ID)
	go hs.run(initial)
	return hs, nil
}

type hotFolderStream struct {
	watcher *fsnotify.Watcher
	frames  chan image.Image
	stop    chan struct{}
	once    sync.Once
}

func (h *hotFolderStream) Frames() <-chan image.Image { return h.frames }

func (h *hotFolderStream) Close() error {
	var err error
	h.once.Do(func() {
		close(h.stop)
		err = h.watcher.Close()
	})
	return err
}

func (h *hotFolderStream) run(initial string) {
	defer close(h.frames)

	if initial != "" {
		if img, err := decodeImageFile(initial); err == nil {
			h.deliver(img)
		}
	}

	for {
		select {
		case <-h.stop:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isImageFile(event.Name) {
				continue
			}
			img, err := decodeImageFile(event.Name)
			if err != nil {
				// Producer is still writing; the next write event retries
				util.DebugLog("Skipping partial frame %s: %v", filepath.Base(event.Name), err)
				continue
			}
			h.deliver(img)
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			util.WarnLog("Hot folder watch error: %v", err)
		}
	}
}

// deliver replaces any undelivered frame so the consumer always sees the
// newest one
func (h *hotFolderStream) deliver(img image.Image) {
	select {
	case <-h.frames:
	default:
	}
	select {
	case h.frames <- img:
	case <-h.stop:
	}
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func newestImage(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var newest string
	var newestMod int64
	for _, e := range entries {
		if e.IsDir() || !isImageFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = filepath.Join(dir, e.Name()), mod
		}
	}
	return newest
}
