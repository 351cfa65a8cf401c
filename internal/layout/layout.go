// Package layout defines the arrangement tags shared by capture runs, the
// compositor and stored photos.
package layout

import (
	"fmt"

	"github.com/franz/photobooth/internal/util"
)

// Layout is the shot-count and arrangement tag of a capture run or photo
type Layout string

const (
	Single   Layout = "single"
	Strip3   Layout = "strip-3"
	Strip4   Layout = "strip-4"
	Template Layout = "template"
)

// Capturable lists the layouts a capture run can be started with
var Capturable = []Layout{Single, Strip3, Strip4}

// ShotCount returns how many frames a capture run for l grabs.
// Template is a derived layout and has no shot count.
func (l Layout) ShotCount() int {
	switch l {
	case Single:
		return 1
	case Strip3:
		return 3
	case Strip4:
		return 4
	default:
		return 0
	}
}

// IsStrip reports whether l stacks several frames vertically
func (l Layout) IsStrip() bool {
	return l == Strip3 || l == Strip4
}

// Valid reports whether l is one of the known tags
func (l Layout) Valid() bool {
	switch l {
	case Single, Strip3, Strip4, Template:
		return true
	}
	return false
}

func (l Layout) String() string { return string(l) }

// Parse converts a tag into a Layout
func Parse(s string) (Layout, error) {
	l := Layout(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: unknown layout %q", util.ErrInvalidInput, s)
	}
	return l, nil
}

// ParseCapturable converts a tag into a Layout a capture run accepts
func ParseCapturable(s string) (Layout, error) {
	l, err := Parse(s)
	if err != nil {
		return "", err
	}
	if l.ShotCount() == 0 {
		return "", fmt.Errorf("%w: layout %q cannot be captured directly", util.ErrInvalidInput, s)
	}
	return l, nil
}
