// Package templates stores overlay templates and applies them to photos
package templates

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/franz/photobooth/internal/compose"
	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/photo"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// Canvas defaults for new templates
const (
	DefaultBackground = "#ffffff"
	DefaultWidth      = 1800
	DefaultHeight     = 1200
)

// Input describes a new template
type Input struct {
	Name            string
	Description     string
	Layout          layout.Layout
	FramePath       string
	BackgroundColor string
	Width           int
	Height          int
	TextOverlays    []compose.TextOverlay
	IsDefault       bool
}

// Patch lists the mutable template fields. TextOverlays, when set, replaces
// the whole list.
type Patch struct {
	Name            *string
	Description     *string
	Layout          *layout.Layout
	FramePath       *string
	BackgroundColor *string
	Width           *int
	Height          *int
	TextOverlays    *[]compose.TextOverlay
	IsDefault       *bool
	IsActive        *bool
	ThumbnailPath   *string
}

// Service is the template engine
type Service struct {
	store      *store.Store
	photos     *photo.Service
	compositor *compose.Compositor
}

// New returns a template service
func New(s *store.Store, photos *photo.Service, c *compose.Compositor) *Service {
	return &Service{store: s, photos: photos, compositor: c}
}

// Create validates and inserts a template, filling canvas defaults
func (s *Service) Create(ctx context.Context, in Input) (*store.Template, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("template name is required: %w", util.ErrInvalidInput)
	}
	t, err := build(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func build(in Input) (*store.Template, error) {
	if !in.Layout.Valid() {
		return nil, fmt.Errorf("unknown layout %q: %w", in.Layout, util.ErrInvalidInput)
	}
	t := &store.Template{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Description:     in.Description,
		LayoutType:      in.Layout,
		FramePath:       in.FramePath,
		BackgroundColor: in.BackgroundColor,
		Width:           in.Width,
		Height:          in.Height,
		IsDefault:       in.IsDefault,
		IsActive:        true,
	}
	if t.BackgroundColor == "" {
		t.BackgroundColor = DefaultBackground
	}
	if t.Width <= 0 {
		t.Width = DefaultWidth
	}
	if t.Height <= 0 {
		t.Height = DefaultHeight
	}
	if _, err := compose.ParseColor(t.BackgroundColor); err != nil {
		return nil, err
	}
	overlays, err := encodeOverlays(in.TextOverlays)
	if err != nil {
		return nil, err
	}
	t.TextOverlays = overlays
	return t, nil
}

func encodeOverlays(overlays []compose.TextOverlay) (string, error) {
	for _, ov := range overlays {
		if _, err := compose.ParseColor(ov.Color); err != nil {
			return "", fmt.Errorf("overlay %s: %w", ov.ID, err)
		}
	}
	return compose.EncodeOverlays(overlays)
}

// List returns templates; activeOnly puts defaults first
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*store.Template, error) {
	return s.store.ListTemplates(ctx, activeOnly)
}

// Get returns a template or a wrapped util.ErrNotFound
func (s *Service) Get(ctx context.Context, id string) (*store.Template, error) {
	t, err := s.store.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("template %s: %w", id, util.ErrNotFound)
	}
	return t, nil
}

// Update merges p into the template and returns the result
func (s *Service) Update(ctx context.Context, id string, p Patch) (*store.Template, error) {
	sp := store.TemplatePatch{
		Name:            p.Name,
		Description:     p.Description,
		LayoutType:      p.Layout,
		FramePath:       p.FramePath,
		BackgroundColor: p.BackgroundColor,
		Width:           p.Width,
		Height:          p.Height,
		IsDefault:       p.IsDefault,
		IsActive:        p.IsActive,
		ThumbnailPath:   p.ThumbnailPath,
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, fmt.Errorf("template name is required: %w", util.ErrInvalidInput)
	}
	if p.Layout != nil && !p.Layout.Valid() {
		return nil, fmt.Errorf("unknown layout %q: %w", *p.Layout, util.ErrInvalidInput)
	}
	if p.BackgroundColor != nil {
		if _, err := compose.ParseColor(*p.BackgroundColor); err != nil {
			return nil, err
		}
	}
	if (p.Width != nil && *p.Width <= 0) || (p.Height != nil && *p.Height <= 0) {
		return nil, fmt.Errorf("canvas size must be positive: %w", util.ErrInvalidInput)
	}
	if p.TextOverlays != nil {
		raw, err := encodeOverlays(*p.TextOverlays)
		if err != nil {
			return nil, err
		}
		sp.TextOverlays = &raw
	}

	if err := s.store.UpdateTemplate(ctx, id, sp); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a template
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteTemplate(ctx, id)
}

// Overlays decodes a template's overlay list
func Overlays(t *store.Template) ([]compose.TextOverlay, error) {
	return compose.ParseOverlays(t.TextOverlays)
}

// ApplyDefaults seeds the built-in templates when no template exists and
// returns how many were created
func (s *Service) ApplyDefaults(ctx context.Context) (int, error) {
	var seed []*store.Template
	for _, in := range Defaults() {
		t, err := build(in)
		if err != nil {
			return 0, err
		}
		seed = append(seed, t)
	}
	return s.store.SeedTemplates(ctx, seed)
}

// Defaults returns the built-in template set
func Defaults() []Input {
	return []Input{
		{
			Name:            "Classic Single",
			Description:     "Simple single photo with date overlay",
			Layout:          layout.Single,
			BackgroundColor: "#ffffff",
			Width:           1800,
			Height:          1200,
			TextOverlays: []compose.TextOverlay{
				{ID: "date", Text: "{{eventDate}}", X: 900, Y: 1150, FontSize: 36, FontFamily: "Arial", Color: "#666666", Align: "center"},
			},
			IsDefault: true,
		},
		{
			Name:            "Photo Strip",
			Description:     "Vertical photo strip with branding",
			Layout:          layout.Strip4,
			BackgroundColor: "#ffffff",
			Width:           600,
			Height:          1800,
			TextOverlays: []compose.TextOverlay{
				{ID: "branding", Text: compose.DefaultBrand, X: 300, Y: 1750, FontSize: 24, FontFamily: "Arial", Color: "#999999", Align: "center"},
				{ID: "guest", Text: "{{guestName}}", X: 300, Y: 50, FontSize: 32, FontFamily: "Arial", Color: "#333333", Align: "center"},
			},
			IsDefault: true,
		},
	}
}

// ApplyToPhoto renders a template over a stored photo and saves the result
// as a new photo with the template layout. A missing template fails before
// anything is written.
func (s *Service) ApplyToPhoto(ctx context.Context, photoID, templateID string, o compose.Overrides) (*store.Photo, error) {
	if templateID == "" {
		return nil, fmt.Errorf("template id is required: %w", util.ErrInvalidInput)
	}
	orig, err := s.photos.Get(ctx, photoID)
	if err != nil {
		return nil, err
	}
	img, err := s.photos.Load(orig)
	if err != nil {
		return nil, err
	}

	res, err := s.compositor.Compose(ctx, compose.Request{
		Layout:     layout.Template,
		Frames:     []image.Image{img},
		TemplateID: templateID,
		Overrides:  o,
	})
	if err != nil {
		return nil, err
	}

	return s.photos.Save(ctx, photo.SaveInput{
		Image:     res.Image,
		SessionID: orig.SessionID,
		Layout:    layout.Template,
		Metadata: photo.TemplateMetadata{
			OriginalPhotoID: orig.ID,
			TemplateID:      res.Template.ID,
			TemplateName:    res.Template.Name,
			Overrides:       o,
			AppliedAt:       time.Now().UTC(),
		},
	})
}

// Markup renders a template's text layer as SVG for previews
func (s *Service) Markup(ctx context.Context, id string, o compose.Overrides) (string, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	overlays, err := Overlays(t)
	if err != nil {
		return "", err
	}
	layer, err := compose.NewTextLayer(t.Width, t.Height, overlays, o)
	if err != nil {
		return "", err
	}
	return layer.Markup(), nil
}
