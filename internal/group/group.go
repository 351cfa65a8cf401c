// Package group manages named, many-to-many photo collections
package group

import (
	"context"
	"fmt"
	"strings"

	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// Service is the group association layer
type Service struct {
	store *store.Store
}

// New returns a group service
func New(s *store.Store) *Service {
	return &Service{store: s}
}

// Create inserts a group with no photos
func (s *Service) Create(ctx context.Context, name, description, thumbnail string) (*store.Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("group name is required: %w", util.ErrInvalidInput)
	}
	g := &store.Group{Name: name, Description: description, ThumbnailPath: thumbnail}
	if err := s.store.InsertGroup(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// List returns all groups
func (s *Service) List(ctx context.Context) ([]*store.Group, error) {
	return s.store.ListGroups(ctx)
}

// Get returns a group or a wrapped util.ErrNotFound
func (s *Service) Get(ctx context.Context, id int64) (*store.Group, error) {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("group %d: %w", id, util.ErrNotFound)
	}
	return g, nil
}

// Update applies p and returns the stored group
func (s *Service) Update(ctx context.Context, id int64, p store.GroupPatch) (*store.Group, error) {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, fmt.Errorf("group name is required: %w", util.ErrInvalidInput)
	}
	if err := s.store.UpdateGroup(ctx, id, p); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a group. Its photos are untouched.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.DeleteGroup(ctx, id)
}

// AddPhotos associates photos with a group and refreshes its count.
// Unknown photo ids fail the whole batch; photos already in the group are
// skipped. Returns the number of new associations.
func (s *Service) AddPhotos(ctx context.Context, id int64, photoIDs []string) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	for _, pid := range photoIDs {
		p, err := s.store.GetPhoto(ctx, pid)
		if err != nil {
			return 0, err
		}
		if p == nil {
			return 0, fmt.Errorf("photo %s: %w", pid, util.ErrNotFound)
		}
	}
	added, err := s.store.AddGroupPhotos(ctx, id, photoIDs)
	if err != nil {
		return 0, err
	}
	if _, err := s.store.RecountGroupPhotos(ctx, id); err != nil {
		return added, err
	}
	return added, nil
}

// RemovePhotos drops associations in one batch and refreshes the count
func (s *Service) RemovePhotos(ctx context.Context, id int64, photoIDs []string) (int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, err
	}
	n, err := s.store.RemoveGroupPhotos(ctx, id, photoIDs)
	if err != nil {
		return 0, err
	}
	if _, err := s.store.RecountGroupPhotos(ctx, id); err != nil {
		return int(n), err
	}
	return int(n), nil
}

// PhotoIDs returns the photos of a group in the order they were added
func (s *Service) PhotoIDs(ctx context.Context, id int64) ([]string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListGroupPhotoIDs(ctx, id)
}

// UpdatePhotoCount recounts a group's associations
func (s *Service) UpdatePhotoCount(ctx context.Context, id int64) (int, error) {
	return s.store.RecountGroupPhotos(ctx, id)
}
