package compose

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // frame art decoders
	_ "image/png"
	"io/fs"
	"os"

	"github.com/nfnt/resize"

	"github.com/franz/photobooth/internal/store"
)

// ApplyTemplate cover-fits src to the template canvas and stacks the frame
// art and then the text layer on top of it
func ApplyTemplate(src image.Image, tpl *store.Template, o Overrides) (*image.RGBA, error) {
	w, h := tpl.Width, tpl.Height
	if w <= 0 || h <= 0 {
		w, h = 1800, 1200
	}

	bg, err := ParseColor(tpl.BackgroundColor)
	if err != nil {
		return nil, fmt.Errorf("template %s background: %w", tpl.ID, err)
	}
	overlays, err := ParseOverlays(tpl.TextOverlays)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
	}
	layer, err := NewTextLayer(w, h, overlays, o)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
	}

	frame, err := loadFrameArt(tpl.FramePath)
	if err != nil {
		return nil, fmt.Errorf("template %s frame art: %w", tpl.ID, err)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	fitted := CoverFit(src, w, h)
	draw.Draw(canvas, canvas.Bounds(), fitted, fitted.Bounds().Min, draw.Over)

	if frame != nil {
		fb := frame.Bounds()
		offset := image.Pt((w-fb.Dx())/2, (h-fb.Dy())/2)
		draw.Draw(canvas, fb.Sub(fb.Min).Add(offset), frame, fb.Min, draw.Over)
	}

	if err := layer.Draw(canvas); err != nil {
		return nil, err
	}
	return canvas, nil
}

// loadFrameArt decodes the template frame. A path that no longer exists is
// skipped.
func loadFrameArt(path string) (image.Image, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// CoverFit scales img to cover w x h and crops the centre
func CoverFit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	if b.Dx() == 0 || b.Dy() == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}

	scale := float64(w) / float64(b.Dx())
	if s := float64(h) / float64(b.Dy()); s > scale {
		scale = s
	}
	sw := int(float64(b.Dx())*scale + 0.5)
	sh := int(float64(b.Dy())*scale + 0.5)
	if sw < w {
		sw = w
	}
	if sh < h {
		sh = h
	}

	scaled := resize.Resize(uint(sw), uint(sh), img, resize.Bilinear)
	sb := scaled.Bounds()
	x0 := sb.Min.X + (sb.Dx()-w)/2
	y0 := sb.Min.Y + (sb.Dy()-h)/2

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), scaled, image.Pt(x0, y0), draw.Src)
	return out
}
