package booth

import (
	"context"
	"time"

	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/session"
	"github.com/franz/photobooth/internal/store"
)

// DeletePhoto removes a photo with its files and refreshes the count of
// the session that owned it
func (b *Booth) DeletePhoto(ctx context.Context, id string) (*store.Photo, error) {
	p, err := b.photos.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SessionID != "" {
		if _, err := b.sessions.UpdatePhotoCount(ctx, p.SessionID); err != nil {
			return p, err
		}
	}
	b.events.LogPhotoDeleted(p)
	return p, nil
}

// ApplyTemplate saves a templated copy of a stored photo
func (b *Booth) ApplyTemplate(ctx context.Context, photoID, templateID string, o compose.Overrides) (*store.Photo, error) {
	p, err := b.templates.ApplyToPhoto(ctx, photoID, templateID, o)
	if err != nil {
		return nil, err
	}
	if err := b.recount(ctx, p); err != nil {
		return p, err
	}
	b.events.LogTemplateApplied(photoID, templateID, p)
	return p, nil
}

// ApplyFilter saves a filtered copy of a stored photo
func (b *Booth) ApplyFilter(ctx context.Context, photoID string, f compose.Filter) (*store.Photo, error) {
	p, err := b.photos.ApplyFilter(ctx, photoID, f)
	if err != nil {
		return nil, err
	}
	if err := b.recount(ctx, p); err != nil {
		return p, err
	}
	b.events.LogFilterApplied(photoID, string(f.Type), p)
	return p, nil
}

// ExportSession exports a session and records the export
func (b *Booth) ExportSession(ctx context.Context, id string, opts session.ExportOptions) (*session.ExportResult, error) {
	start := time.Now()
	res, err := b.sessions.Export(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	b.events.LogSessionExported(id, res.Path, res.Files, res.Bytes, time.Since(start))
	return res, nil
}

func (b *Booth) recount(ctx context.Context, p *store.Photo) error {
	if p.SessionID == "" {
		return nil
	}
	_, err := b.sessions.UpdatePhotoCount(ctx, p.SessionID)
	return err
}
