// Package photo writes composed images to the save directory and keeps the
// photo records that point at them.
package photo

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // stored photo decoders
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/settings"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// Service saves, lists and deletes photos
type Service struct {
	store    *store.Store
	settings *settings.Service
	now      func() time.Time
}

// New returns a photo service
func New(s *store.Store, st *settings.Service) *Service {
	return &Service{store: s, settings: st, now: time.Now}
}

// SaveInput is one bitmap to persist
type SaveInput struct {
	Image     image.Image
	SessionID string
	Layout    layout.Layout
	Metadata  any             // typed view, raw JSON string, or nil
	Settings  *store.Settings // snapshot to honour; current settings when nil
}

// Save writes the primary image and its thumbnail into a dated folder of the
// save directory and inserts the photo record. If the insert fails the
// written files stay on disk and the error is returned.
func (s *Service) Save(ctx context.Context, in SaveInput) (*store.Photo, error) {
	if in.Image == nil {
		return nil, fmt.Errorf("no image to save: %w", util.ErrInvalidInput)
	}
	l := in.Layout
	if l == "" {
		l = layout.Single
	}
	if !l.Valid() {
		return nil, fmt.Errorf("unknown layout %q: %w", l, util.ErrInvalidInput)
	}

	st := in.Settings
	if st == nil {
		var err error
		if st, err = s.settings.Get(ctx); err != nil {
			return nil, err
		}
	}
	format, err := compose.ParseFormat(st.PhotoFormat)
	if err != nil {
		return nil, err
	}
	metadata, err := EncodeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	saveDir, err := s.settings.SaveDirectory(st)
	if err != nil {
		return nil, err
	}
	now := s.now()
	dir := filepath.Join(saveDir, now.Format("2006-01-02"))

	base := fmt.Sprintf("photo_%d_%s", now.UnixMilli(), randomSuffix())
	filename := base + "." + format.Ext()
	path := filepath.Join(dir, filename)
	thumbPath := filepath.Join(dir, "thumb_"+base+".jpg")

	if _, err := util.WriteFileAtomic(path, func(w io.Writer) error {
		return compose.Encode(w, in.Image, format, st.PhotoQuality)
	}); err != nil {
		return nil, fmt.Errorf("failed to write photo: %w", err)
	}
	if _, err := util.WriteFileAtomic(thumbPath, func(w io.Writer) error {
		return compose.EncodeThumbnail(w, in.Image)
	}); err != nil {
		util.RemoveIfExists(path)
		return nil, fmt.Errorf("failed to write thumbnail: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat photo: %w", err)
	}

	overlay, filter := metadataFlags(in.Metadata)
	b := in.Image.Bounds()
	p := &store.Photo{
		ID:            uuid.NewString(),
		SessionID:     in.SessionID,
		Filename:      filename,
		Filepath:      path,
		ThumbnailPath: thumbPath,
		Width:         b.Dx(),
		Height:        b.Dy(),
		FileSize:      info.Size(),
		TakenAt:       now.UTC(),
		LayoutType:    l,
		HasOverlay:    overlay,
		HasFilter:     filter,
		Metadata:      metadata,
	}
	if err := s.store.InsertPhoto(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a photo or a wrapped util.ErrNotFound
func (s *Service) Get(ctx context.Context, id string) (*store.Photo, error) {
	p, err := s.store.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("photo %s: %w", id, util.ErrNotFound)
	}
	return p, nil
}

// List returns photos newest first
func (s *Service) List(ctx context.Context, limit, offset int) ([]*store.Photo, error) {
	return s.store.ListPhotos(ctx, limit, offset)
}

// Delete removes the primary and thumbnail files, then the record. Files
// already gone are ignored; any other file error aborts before the record
// is touched.
func (s *Service) Delete(ctx context.Context, id string) (*store.Photo, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RemoveFiles(p); err != nil {
		return nil, err
	}
	if err := s.store.DeletePhoto(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// RemoveFiles deletes a photo's primary and thumbnail files
func RemoveFiles(p *store.Photo) error {
	if err := util.RemoveIfExists(p.Filepath); err != nil {
		return fmt.Errorf("failed to delete photo file: %w", err)
	}
	if err := util.RemoveIfExists(p.ThumbnailPath); err != nil {
		return fmt.Errorf("failed to delete thumbnail: %w", err)
	}
	return nil
}

// Load decodes a stored photo's primary image
func (s *Service) Load(p *store.Photo) (image.Image, error) {
	f, err := os.Open(p.Filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}
	return img, nil
}

// ApplyFilter saves a filtered copy of a stored photo as a new photo in the
// same session. The original is left untouched.
func (s *Service) ApplyFilter(ctx context.Context, id string, f compose.Filter) (*store.Photo, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	orig, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	img, err := s.Load(orig)
	if err != nil {
		return nil, err
	}

	return s.Save(ctx, SaveInput{
		Image:     compose.ApplyFilter(img, f),
		SessionID: orig.SessionID,
		Layout:    orig.LayoutType,
		Metadata: FilterMetadata{
			OriginalPhotoID: orig.ID,
			Filter:          f,
			AppliedAt:       s.now().UTC(),
		},
	})
}

// DisplayPath picks the file a gallery should show: the thumbnail, else the
// primary image, else "" for a placeholder
func DisplayPath(p *store.Photo) string {
	if util.FileExists(p.ThumbnailPath) {
		return p.ThumbnailPath
	}
	if util.FileExists(p.Filepath) {
		return p.Filepath
	}
	return ""
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
