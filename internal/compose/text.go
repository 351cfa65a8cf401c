package compose

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"

	"github.com/franz/photobooth/internal/util"
)

// TextOverlay is one stored text overlay of a template
type TextOverlay struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontSize   float64 `json:"fontSize"`
	Color      string  `json:"color"`
	FontFamily string  `json:"fontFamily"`
	Align      string  `json:"align"` // left, center, right
	Rotation   float64 `json:"rotation,omitempty"`
}

// Overrides fill the placeholders of overlay text
type Overrides struct {
	GuestName  string `json:"guestName,omitempty"`
	EventDate  string `json:"eventDate,omitempty"`
	CustomText string `json:"customText,omitempty"`
}

// IsZero reports whether no override is set
func (o Overrides) IsZero() bool {
	return o.GuestName == "" && o.EventDate == "" && o.CustomText == ""
}

// Substitute replaces every {{guestName}}, {{eventDate}} and {{customText}}
// in s. Placeholders without a value become empty.
func (o Overrides) Substitute(s string) string {
	return strings.NewReplacer(
		"{{guestName}}", o.GuestName,
		"{{eventDate}}", o.EventDate,
		"{{customText}}", o.CustomText,
	).Replace(s)
}

// ParseOverlays decodes a stored overlay list. Empty input is an empty list.
func ParseOverlays(raw string) ([]TextOverlay, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var overlays []TextOverlay
	if err := json.Unmarshal([]byte(raw), &overlays); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrMalformedOverlay, err)
	}
	return overlays, nil
}

// EncodeOverlays serializes an overlay list for storage
func EncodeOverlays(overlays []TextOverlay) (string, error) {
	if len(overlays) == 0 {
		return "", nil
	}
	data, err := json.Marshal(overlays)
	if err != nil {
		return "", fmt.Errorf("failed to encode overlays: %w", err)
	}
	return string(data), nil
}

// Anchor is the horizontal text anchor of a markup text element
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// AnchorFor maps an overlay alignment onto a text anchor
func AnchorFor(align string) Anchor {
	switch strings.ToLower(align) {
	case "center":
		return AnchorMiddle
	case "right":
		return AnchorEnd
	}
	return AnchorStart
}

type textItem struct {
	Text       string
	X, Y       float64
	FontSize   float64
	Color      color.RGBA
	ColorSpec  string
	FontFamily string
	Anchor     Anchor
	Rotation   float64 // degrees, clockwise about (X, Y)
}

// TextLayer is a vector description of a template's text, resolved against
// overrides. It renders either as SVG markup or onto a bitmap.
type TextLayer struct {
	Width, Height int
	items         []textItem
}

// NewTextLayer resolves overlays into a layer of the given canvas size.
// Bad colours fail with util.ErrMalformedOverlay.
func NewTextLayer(width, height int, overlays []TextOverlay, o Overrides) (*TextLayer, error) {
	layer := &TextLayer{Width: width, Height: height}
	for _, ov := range overlays {
		c, err := ParseColor(ov.Color)
		if err != nil {
			return nil, fmt.Errorf("overlay %s: %w", ov.ID, err)
		}
		size := ov.FontSize
		if size <= 0 {
			size = 24
		}
		layer.items = append(layer.items, textItem{
			Text:       norm.NFC.String(o.Substitute(ov.Text)),
			X:          ov.X,
			Y:          ov.Y,
			FontSize:   size,
			Color:      c,
			ColorSpec:  ov.Color,
			FontFamily: ov.FontFamily,
			Anchor:     AnchorFor(ov.Align),
			Rotation:   ov.Rotation,
		})
	}
	return layer, nil
}

// Len returns the number of text elements
func (l *TextLayer) Len() int { return len(l.items) }

// Markup renders the layer as an SVG document
func (l *TextLayer) Markup() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, l.Width, l.Height)
	for _, it := range l.items {
		fmt.Fprintf(&b, `<text x="%s" y="%s" font-family="%s" font-size="%s" fill="%s" text-anchor="%s"`,
			num(it.X), num(it.Y), EscapeMarkup(it.FontFamily), num(it.FontSize), EscapeMarkup(it.ColorSpec), it.Anchor)
		if it.Rotation != 0 {
			fmt.Fprintf(&b, ` transform="rotate(%s %s %s)"`, num(it.Rotation), num(it.X), num(it.Y))
		}
		b.WriteString(">")
		b.WriteString(EscapeMarkup(it.Text))
		b.WriteString("</text>")
	}
	b.WriteString("</svg>")
	return b.String()
}

// Draw rasterises the layer over dst
func (l *TextLayer) Draw(dst draw.Image) error {
	for _, it := range l.items {
		if it.Rotation == 0 {
			if err := drawText(dst, it); err != nil {
				return err
			}
			continue
		}

		// Rotated text is drawn upright on its own layer, then mapped onto
		// dst around the anchor point
		b := dst.Bounds()
		tmp := image.NewRGBA(b)
		if err := drawText(tmp, it); err != nil {
			return err
		}
		draw.BiLinear.Transform(dst, rotationAbout(it.Rotation, it.X, it.Y), tmp, b, draw.Over, nil)
	}
	return nil
}

var markupEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeMarkup escapes the five XML special characters
func EscapeMarkup(s string) string {
	return markupEscaper.Replace(s)
}

// rotationAbout maps source to destination coordinates for a clockwise
// rotation of deg degrees about (cx, cy) in y-down space
func rotationAbout(deg, cx, cy float64) f64.Aff3 {
	rad := deg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	return f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	fontsOnce sync.Once
	fontsErr  error
	fonts     map[string]*opentype.Font
)

func loadFonts() error {
	fontsOnce.Do(func() {
		fonts = make(map[string]*opentype.Font)
		for name, data := range map[string][]byte{
			"regular": goregular.TTF,
			"bold":    gobold.TTF,
			"mono":    gomono.TTF,
		} {
			f, err := opentype.Parse(data)
			if err != nil {
				fontsErr = fmt.Errorf("failed to parse %s font: %w", name, err)
				return
			}
			fonts[name] = f
		}
	})
	return fontsErr
}

// fontFor maps a CSS-style family name onto one of the bundled Go fonts
func fontFor(family string) *opentype.Font {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "mono") || strings.Contains(f, "courier"):
		return fonts["mono"]
	case strings.Contains(f, "bold") || strings.Contains(f, "impact"):
		return fonts["bold"]
	}
	return fonts["regular"]
}

func drawText(dst draw.Image, it textItem) error {
	if it.Text == "" {
		return nil
	}
	if err := loadFonts(); err != nil {
		return err
	}
	face, err := opentype.NewFace(fontFor(it.FontFamily), &opentype.FaceOptions{
		Size:    it.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(it.Color), Face: face}
	width := d.MeasureString(it.Text)

	x := fixed.Int26_6(it.X * 64)
	switch it.Anchor {
	case AnchorMiddle:
		x -= width / 2
	case AnchorEnd:
		x -= width
	}
	d.Dot = fixed.Point26_6{X: x, Y: fixed.Int26_6(it.Y * 64)}
	d.DrawString(it.Text)
	return nil
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa. Empty means black.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.RGBA{A: 0xff}, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("%w: colour %q", util.ErrMalformedOverlay, s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("%w: colour %q", util.ErrMalformedOverlay, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: colour %q", util.ErrMalformedOverlay, s)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
