package compose

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/franz/photobooth/internal/util"
)

// FilterType is a whole-image colour transform
type FilterType string

const (
	FilterNone      FilterType = "none"
	FilterGrayscale FilterType = "grayscale"
	FilterSepia     FilterType = "sepia"
	FilterInvert    FilterType = "invert"
)

// Filter is a colour transform followed by brightness and contrast
// adjustments, both in percent with 100 as identity
type Filter struct {
	Type       FilterType `json:"type"`
	Brightness int        `json:"brightness"`
	Contrast   int        `json:"contrast"`
}

// DefaultFilter changes nothing
var DefaultFilter = Filter{Type: FilterNone, Brightness: 100, Contrast: 100}

// Validate checks the filter type and adjustment ranges
func (f Filter) Validate() error {
	switch f.Type {
	case FilterNone, FilterGrayscale, FilterSepia, FilterInvert, "":
	default:
		return fmt.Errorf("unknown filter %q: %w", f.Type, util.ErrInvalidInput)
	}
	if f.Brightness < 0 || f.Contrast < 0 {
		return fmt.Errorf("brightness and contrast must be >= 0: %w", util.ErrInvalidInput)
	}
	return nil
}

// IsIdentity reports whether applying f would leave pixels unchanged
func (f Filter) IsIdentity() bool {
	return (f.Type == FilterNone || f.Type == "") && f.Brightness == 100 && f.Contrast == 100
}

// ApplyFilter returns a filtered copy of img. Colour math runs on
// unpremultiplied values so translucent pixels stay valid; alpha is kept.
func ApplyFilter(img image.Image, f Filter) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	brightness := float64(f.Brightness) / 100
	contrast := float64(f.Contrast) / 100
	intercept := 128 * (1 - contrast)

	px := out.Pix
	for i := 0; i+3 < len(px); i += 4 {
		r, g, bl := float64(px[i]), float64(px[i+1]), float64(px[i+2])

		switch f.Type {
		case FilterGrayscale:
			avg := (r + g + bl) / 3
			r, g, bl = avg, avg, avg
		case FilterSepia:
			r, g, bl = r*0.393+g*0.769+bl*0.189,
				r*0.349+g*0.686+bl*0.168,
				r*0.272+g*0.534+bl*0.131
		case FilterInvert:
			r, g, bl = 255-r, 255-g, 255-bl
		}

		r, g, bl = r*brightness, g*brightness, bl*brightness
		r, g, bl = r*contrast+intercept, g*contrast+intercept, bl*contrast+intercept

		px[i], px[i+1], px[i+2] = clamp8(r), clamp8(g), clamp8(bl)
	}
	return out
}

func clamp8(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
