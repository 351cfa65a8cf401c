package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Strip geometry
const (
	SlotWidth  = 600
	SlotHeight = 400
	Spacing    = 10
	Padding    = 20

	borderWidth   = 2
	watermarkSize = 14
	watermarkLift = 8 // baseline distance from the bottom edge
)

var (
	borderColor    = color.RGBA{0xe5, 0xe7, 0xeb, 0xff}
	watermarkColor = color.RGBA{0x9c, 0xa3, 0xaf, 0xff}
)

// StripSize returns the canvas size for n stacked slots
func StripSize(n int) (int, int) {
	if n < 1 {
		n = 1
	}
	return SlotWidth + 2*Padding, SlotHeight*n + Spacing*(n-1) + 2*Padding
}

// SlotRect returns the canvas rectangle of slot i (0 = top)
func SlotRect(i int) image.Rectangle {
	y := Padding + i*(SlotHeight+Spacing)
	return image.Rect(Padding, y, Padding+SlotWidth, y+SlotHeight)
}

// Strip stacks frames vertically in capture order on a white canvas, each
// cover-fitted to its slot and outlined, with brand centred near the bottom
func Strip(frames []image.Image, brand string) (*image.RGBA, error) {
	w, h := StripSize(len(frames))
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, frame := range frames {
		slot := SlotRect(i)
		fitted := CoverFit(frame, SlotWidth, SlotHeight)
		draw.Draw(canvas, slot, fitted, fitted.Bounds().Min, draw.Src)
		strokeRect(canvas, slot, borderWidth, borderColor)
	}

	if brand != "" {
		if err := drawText(canvas, textItem{
			Text:     brand,
			X:        float64(w) / 2,
			Y:        float64(h - watermarkLift),
			FontSize: watermarkSize,
			Color:    watermarkColor,
			Anchor:   AnchorMiddle,
		}); err != nil {
			return nil, fmt.Errorf("failed to draw watermark: %w", err)
		}
	}
	return canvas, nil
}

// strokeRect draws a border of width px centred on r's edges
func strokeRect(dst draw.Image, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	half := width / 2
	outer := r.Inset(-half)
	inner := r.Inset(width - half)
	edges := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y),
		image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y),
		image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}
