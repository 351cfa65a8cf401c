package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"

	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// Format is the shape of an export
type Format string

const (
	FormatFolder Format = "folder"
	FormatZip    Format = "zip"
)

// ParseFormat converts a flag value into a Format
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatFolder, FormatZip:
		return Format(s), nil
	case "":
		return FormatFolder, nil
	}
	return "", fmt.Errorf("unknown export format %q: %w", s, util.ErrInvalidInput)
}

// ExportOptions controls Export. When neither Originals nor Processed is set
// both are exported.
type ExportOptions struct {
	Format      Format
	Destination string
	Originals   bool // captured singles and strips
	Processed   bool // template and filter outputs
	Workers     int  // parallel copies for folder exports
	Retries     int  // attempts per copy
	Progress    bool // draw a progress bar on a terminal
}

// ExportResult describes a finished export
type ExportResult struct {
	Path    string
	Files   int
	Bytes   int64
	Skipped []string // photo files missing on disk
}

// Export copies a session's photos into a new folder or zip archive named
// session_<id>_<unix-millis> under the destination
func (s *Service) Export(ctx context.Context, id string, opts ExportOptions) (*ExportResult, error) {
	if opts.Destination == "" {
		return nil, fmt.Errorf("export destination is required: %w", util.ErrInvalidInput)
	}
	if opts.Format == "" {
		opts.Format = FormatFolder
	}
	photos, err := s.Photos(ctx, id)
	if err != nil {
		return nil, err
	}
	photos = selectPhotos(photos, opts)
	if len(photos) == 0 {
		return nil, fmt.Errorf("session %s: %w", id, util.ErrEmptySession)
	}

	base := filepath.Join(opts.Destination, fmt.Sprintf("session_%s_%d", id, s.now().UnixMilli()))
	bar := newExportBar(opts.Progress, len(photos))
	defer bar.finish()

	switch opts.Format {
	case FormatFolder:
		return exportFolder(ctx, base, photos, opts, bar)
	case FormatZip:
		return exportZip(ctx, base+".zip", photos, bar)
	}
	return nil, fmt.Errorf("unknown export format %q: %w", opts.Format, util.ErrInvalidInput)
}

func selectPhotos(photos []*store.Photo, opts ExportOptions) []*store.Photo {
	if !opts.Originals && !opts.Processed {
		return photos
	}
	var out []*store.Photo
	for _, p := range photos {
		processed := p.HasOverlay || p.HasFilter
		if (processed && opts.Processed) || (!processed && opts.Originals) {
			out = append(out, p)
		}
	}
	return out
}

func exportFolder(ctx context.Context, dir string, photos []*store.Photo, opts ExportOptions, bar *exportBar) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export folder: %w", err)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}
	retry := util.ExportRetryConfig(opts.Retries)

	res := &ExportResult{Path: dir}
	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for _, ph := range photos {
		p.Go(func(ctx context.Context) error {
			defer bar.add()
			if !util.FileExists(ph.Filepath) {
				mu.Lock()
				res.Skipped = append(res.Skipped, ph.Filepath)
				mu.Unlock()
				return nil
			}
			dest := filepath.Join(dir, filepath.Base(ph.Filepath))
			var n int64
			err := util.Retry(ctx, retry, func() error {
				var err error
				n, err = util.CopyFile(ctx, ph.Filepath, dest)
				return err
			}, "export "+filepath.Base(ph.Filepath))
			if err != nil {
				return fmt.Errorf("failed to export %s: %w", ph.Filename, err)
			}
			mu.Lock()
			res.Files++
			res.Bytes += n
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func exportZip(ctx context.Context, path string, photos []*store.Photo, bar *exportBar) (*ExportResult, error) {
	res := &ExportResult{Path: path}
	n, err := util.WriteFileAtomic(path, func(w io.Writer) error {
		zw := zip.NewWriter(w)
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, flate.BestCompression)
		})
		for _, ph := range photos {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := addToZip(zw, ph)
			bar.add()
			if err != nil {
				return err
			}
			if !ok {
				res.Skipped = append(res.Skipped, ph.Filepath)
				continue
			}
			res.Files++
		}
		return zw.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	res.Bytes = n
	return res, nil
}

func addToZip(zw *zip.Writer, ph *store.Photo) (bool, error) {
	f, err := os.Open(ph.Filepath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", ph.Filename, err)
	}
	defer f.Close()

	modified := ph.TakenAt
	if modified.IsZero() {
		modified = time.Now()
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     filepath.Base(ph.Filepath),
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return false, fmt.Errorf("failed to add %s: %w", ph.Filename, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return false, fmt.Errorf("failed to compress %s: %w", ph.Filename, err)
	}
	return true, nil
}

// exportBar is a progress bar that is only drawn on an interactive stderr
type exportBar struct {
	bar *progressbar.ProgressBar
}

func newExportBar(enabled bool, total int) *exportBar {
	if !enabled || util.IsQuiet() || !util.IsTerminal(os.Stderr.Fd()) {
		return &exportBar{}
	}
	return &exportBar{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Exporting"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *exportBar) add() {
	if b.bar != nil {
		b.bar.Add(1)
	}
}

func (b *exportBar) finish() {
	if b.bar != nil {
		b.bar.Finish()
	}
}
