// Package colorutil provides shared color utilities for the editor.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Palette colors offered by the toolbar.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red       = color.RGBA{R: 229, G: 57, B: 53, A: 255}
	Blue      = color.RGBA{R: 30, G: 136, B: 229, A: 255}
	Green     = color.RGBA{R: 67, G: 160, B: 71, A: 255}
	Yellow    = color.RGBA{R: 255, G: 235, B: 59, A: 255}
	Selection = color.RGBA{R: 33, G: 150, B: 243, A: 255}
)

// Palette returns the toolbar palette in display order.
func Palette() []color.RGBA {
	return []color.RGBA{Black, Red, Blue, Green, Yellow}
}

// ParseHex parses "#rgb" or "#rrggbb" (the leading # is optional).
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Hex formats c as "#rrggbb", ignoring alpha.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// WithAlpha returns c as a non-premultiplied color with the given opacity.
func WithAlpha(c color.RGBA, alpha float64) color.NRGBA {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(alpha*255 + 0.5)}
}

// Components returns the 0-255 channel values as ints, the form PDF drawing
// calls take.
func Components(c color.RGBA) (r, g, b int) {
	return int(c.R), int(c.G), int(c.B)
}
