package compose

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/franz/photobooth/internal/util"
)

// Thumbnail geometry and quality
const (
	ThumbnailSize    = 300
	ThumbnailQuality = 80
)

// Format is an output encoding
type Format string

const (
	JPEG Format = "jpg"
	PNG  Format = "png"
)

// ParseFormat accepts jpg, jpeg and png in any case
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpg", "jpeg", "":
		return JPEG, nil
	case "png":
		return PNG, nil
	}
	return "", fmt.Errorf("unsupported format %q: %w", s, util.ErrInvalidInput)
}

// Ext returns the file extension without a dot
func (f Format) Ext() string { return string(f) }

// Encode writes img in format f. Quality applies to JPEG and is clamped to
// 1-100; PNG is lossless and ignores it.
func Encode(w io.Writer, img image.Image, f Format, quality int) error {
	switch f {
	case PNG:
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if err := enc.Encode(w, img); err != nil {
			return fmt.Errorf("failed to encode png: %w", err)
		}
		return nil
	case JPEG, "":
		if quality < 1 {
			quality = 1
		}
		if quality > 100 {
			quality = 100
		}
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
			return fmt.Errorf("failed to encode jpeg: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported format %q: %w", f, util.ErrInvalidInput)
}

// Thumbnail returns the square gallery thumbnail of img
func Thumbnail(img image.Image) image.Image {
	return CoverFit(img, ThumbnailSize, ThumbnailSize)
}

// EncodeThumbnail writes the gallery thumbnail of img as JPEG
func EncodeThumbnail(w io.Writer, img image.Image) error {
	return Encode(w, Thumbnail(img), JPEG, ThumbnailQuality)
}
