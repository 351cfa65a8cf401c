// Package compose turns an ordered batch of captured frames into one output
// bitmap: vertical strips, template frame art and text layers, encoding and
// gallery thumbnails.
package compose

import (
	"context"
	"fmt"
	"image"

	"github.com/franz/photobooth/internal/layout"
	"github.com/franz/photobooth/internal/store"
	"github.com/franz/photobooth/internal/util"
)

// DefaultBrand is the strip watermark caption
const DefaultBrand = "PhotoBooth Pro"

// TemplateSource looks up templates by id and returns nil for unknown ids.
// *store.Store satisfies it.
type TemplateSource interface {
	GetTemplate(ctx context.Context, id string) (*store.Template, error)
}

// Config configures a Compositor
type Config struct {
	Templates TemplateSource
	Brand     string // strip watermark; DefaultBrand when empty
}

// Compositor combines frames per layout and optionally applies a template
type Compositor struct {
	templates TemplateSource
	brand     string
}

// New returns a compositor
func New(cfg Config) *Compositor {
	brand := cfg.Brand
	if brand == "" {
		brand = DefaultBrand
	}
	return &Compositor{templates: cfg.Templates, brand: brand}
}

// Request describes one composition
type Request struct {
	Layout     layout.Layout
	Frames     []image.Image // capture order
	TemplateID string        // optional
	Overrides  Overrides
}

// Result is the composed bitmap plus what was applied to it
type Result struct {
	Image    image.Image
	Layout   layout.Layout
	Template *store.Template // nil when none was applied
}

// Compose validates the batch against its layout, lays it out and applies
// the requested template. A template id that does not resolve fails the
// whole composition with util.ErrTemplateNotFound.
func (c *Compositor) Compose(ctx context.Context, req Request) (*Result, error) {
	want := req.Layout.ShotCount()
	if req.Layout == layout.Template {
		want = 1
	}
	if want == 0 {
		return nil, fmt.Errorf("cannot compose layout %q: %w", req.Layout, util.ErrInvalidInput)
	}
	if len(req.Frames) != want {
		return nil, fmt.Errorf("layout %s needs %d frames, got %d: %w",
			req.Layout, want, len(req.Frames), util.ErrInvalidInput)
	}
	for i, f := range req.Frames {
		if f == nil {
			return nil, fmt.Errorf("frame %d is empty: %w", i+1, util.ErrInvalidInput)
		}
	}

	var tpl *store.Template
	if req.TemplateID != "" {
		var err error
		if tpl, err = c.lookupTemplate(ctx, req.TemplateID); err != nil {
			return nil, err
		}
	}

	var base image.Image
	if req.Layout.IsStrip() {
		strip, err := Strip(req.Frames, c.brand)
		if err != nil {
			return nil, err
		}
		base = strip
	} else {
		base = req.Frames[0]
	}

	if tpl == nil {
		return &Result{Image: base, Layout: req.Layout}, nil
	}

	img, err := ApplyTemplate(base, tpl, req.Overrides)
	if err != nil {
		return nil, err
	}
	return &Result{Image: img, Layout: req.Layout, Template: tpl}, nil
}

func (c *Compositor) lookupTemplate(ctx context.Context, id string) (*store.Template, error) {
	if c.templates == nil {
		return nil, fmt.Errorf("template %s: %w", id, util.ErrTemplateNotFound)
	}
	tpl, err := c.templates.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if tpl == nil {
		return nil, fmt.Errorf("template %s: %w", id, util.ErrTemplateNotFound)
	}
	return tpl, nil
}
