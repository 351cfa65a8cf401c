package group

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

func setup(t *testing.T, photos int) (*Service, *store.Store, []string) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "booth.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	var ids []string
	for i := 0; i < photos; i++ {
		id := fmt.Sprintf("p%d", i)
		p := &store.Photo{ID: id, Filename: id + ".jpg", Filepath: "/tmp/" + id + ".jpg"}
		if err := s.InsertPhoto(context.Background(), p); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	return New(s), s, ids
}

func TestGroupLifecycle(t *testing.T) {
	svc, _, _ := setup(t, 0)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "  ", "", ""); !errors.Is(err, util.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank name, got %v", err)
	}

	g, err := svc.Create(ctx, "Wedding", "Saturday", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if g.ID == 0 || g.PhotoCount != 0 {
		t.Errorf("unexpected new group %+v", g)
	}

	desc := "Sunday"
	got, err := svc.Update(ctx, g.ID, store.GroupPatch{Description: &desc})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Wedding" || got.Description != "Sunday" {
		t.Errorf("unexpected updated group %+v", got)
	}

	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, g.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, g.ID); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
	if _, err := svc.Update(ctx, g.ID, store.GroupPatch{Description: &desc}); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound updating missing group, got %v", err)
	}
}

func TestAddAndRemovePhotos(t *testing.T) {
	svc, _, ids := setup(t, 4)
	ctx := context.Background()

	g, _ := svc.Create(ctx, "Best of", "", "")
	added, err := svc.AddPhotos(ctx, g.ID, ids[:3])
	if err != nil {
		t.Fatalf("AddPhotos failed: %v", err)
	}
	if added != 3 {
		t.Errorf("expected 3 added, got %d", added)
	}

	// Re-adding is skipped
	added, err = svc.AddPhotos(ctx, g.ID, ids[2:])
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Errorf("expected only the new photo added, got %d", added)
	}
	got, _ := svc.Get(ctx, g.ID)
	if got.PhotoCount != 4 {
		t.Errorf("expected count 4, got %d", got.PhotoCount)
	}

	removed, err := svc.RemovePhotos(ctx, g.ID, []string{ids[0], ids[1], "unknown"})
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	members, err := svc.PhotoIDs(ctx, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 2 || members[0] != ids[2] || members[1] != ids[3] {
		t.Errorf("unexpected members %v", members)
	}
	got, _ = svc.Get(ctx, g.ID)
	if got.PhotoCount != 2 {
		t.Errorf("expected count 2, got %d", got.PhotoCount)
	}
}

func TestAddUnknownPhotoFailsBatch(t *testing.T) {
	svc, _, ids := setup(t, 1)
	ctx := context.Background()

	g, _ := svc.Create(ctx, "x", "", "")
	if _, err := svc.AddPhotos(ctx, g.ID, []string{ids[0], "ghost"}); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	members, _ := svc.PhotoIDs(ctx, g.ID)
	if len(members) != 0 {
		t.Errorf("expected nothing added, got %v", members)
	}
	if _, err := svc.AddPhotos(ctx, 999, ids); !errors.Is(err, util.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing group, got %v", err)
	}
}
