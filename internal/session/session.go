// Package session manages booth sessions: the active-session convention,
// ending and cancelling, photo counts, export and deletion with files.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/franz/photobooth/internal/photo"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// Service is the session lifecycle layer
type Service struct {
	store *store.Store
	now   func() time.Time
}

// New returns a session service
func New(s *store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Stats summarises one session
type Stats struct {
	PhotoCount         int
	DurationSeconds    float64
	AvgPhotosPerMinute float64
}

// Create starts a new active session. An empty name becomes
// "Session <local time>".
func (s *Service) Create(ctx context.Context, name string) (*store.Session, error) {
	now := s.now()
	if name == "" {
		name = "Session " + now.Local().Format("2006-01-02 15:04:05")
	}
	sess := &store.Session{
		ID:        uuid.NewString(),
		Name:      name,
		StartedAt: now.UTC(),
		Status:    store.SessionActive,
	}
	if err := s.store.InsertSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ActiveOrCreate returns the most recently started active session, creating
// one when none is active. The bool reports whether a session was created.
func (s *Service) ActiveOrCreate(ctx context.Context) (*store.Session, bool, error) {
	sess, err := s.store.GetLatestActiveSession(ctx)
	if err != nil {
		return nil, false, err
	}
	if sess != nil {
		return sess, false, nil
	}
	sess, err = s.Create(ctx, "")
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// List returns all sessions, newest first
func (s *Service) List(ctx context.Context) ([]*store.Session, error) {
	return s.store.ListSessions(ctx)
}

// Get returns a session or a wrapped util.ErrNotFound
func (s *Service) Get(ctx context.Context, id string) (*store.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session %s: %w", id, util.ErrNotFound)
	}
	return sess, nil
}

// End marks a session completed and stamps its end time
func (s *Service) End(ctx context.Context, id string) (*store.Session, error) {
	return s.finish(ctx, id, store.SessionCompleted)
}

// Cancel marks a session cancelled and stamps its end time
func (s *Service) Cancel(ctx context.Context, id string) (*store.Session, error) {
	return s.finish(ctx, id, store.SessionCancelled)
}

func (s *Service) finish(ctx context.Context, id string, status store.SessionStatus) (*store.Session, error) {
	if err := s.store.FinishSession(ctx, id, status, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// UpdatePhotoCount recounts the photo rows owned by a session
func (s *Service) UpdatePhotoCount(ctx context.Context, id string) (int, error) {
	return s.store.RecountSessionPhotos(ctx, id)
}

// Photos returns a session's photos in capture order
func (s *Service) Photos(ctx context.Context, id string) ([]*store.Photo, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListSessionPhotos(ctx, id)
}

// DeleteWithFiles removes every file of the session's photos, then the
// session and its photo rows. A file failure aborts before any row goes.
func (s *Service) DeleteWithFiles(ctx context.Context, id string) (int, error) {
	photos, err := s.Photos(ctx, id)
	if err != nil {
		return 0, err
	}
	for _, p := range photos {
		if err := photo.RemoveFiles(p); err != nil {
			return 0, fmt.Errorf("photo %s: %w", p.ID, err)
		}
	}
	if err := s.store.DeleteSessionWithPhotos(ctx, id); err != nil {
		return 0, err
	}
	return len(photos), nil
}

// Stats returns the photo count, the duration up to the end time (or now
// while active) and the capture rate
func (s *Service) Stats(ctx context.Context, id string) (*Stats, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	end := s.now()
	if sess.EndedAt != nil {
		end = *sess.EndedAt
	}
	st := &Stats{
		PhotoCount:      sess.PhotoCount,
		DurationSeconds: end.Sub(sess.StartedAt).Seconds(),
	}
	if st.DurationSeconds > 0 {
		st.AvgPhotosPerMinute = float64(st.PhotoCount) / st.DurationSeconds * 60
	}
	return st, nil
}
